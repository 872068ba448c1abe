package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type userCtxKey string

const (
	UserIDKey userCtxKey = "userID"
)

// TokenParser resolves a bearer token to the user id it was issued for.
type TokenParser interface {
	ParseToken(token string) (int64, error)
}

// UserIDFromContext returns the user id an interceptor authenticated.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

func authenticate(ctx context.Context, tokens TokenParser) (int64, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "metadata is not provided")
	}

	authHeader, ok := md["authorization"]
	if !ok || len(authHeader) == 0 {
		return 0, status.Error(codes.Unauthenticated, "authorization header is not provided")
	}

	if !strings.HasPrefix(authHeader[0], "Bearer ") {
		return 0, status.Error(codes.Unauthenticated, "invalid authorization header format")
	}
	tokenString := strings.TrimPrefix(authHeader[0], "Bearer ")

	userID, err := tokens.ParseToken(tokenString)
	if err != nil {
		return 0, status.Error(codes.Unauthenticated, "invalid token")
	}

	return userID, nil
}

func AuthUnaryInterceptor(tokens TokenParser, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if _, ok := publicMethods[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		userID, err := authenticate(ctx, tokens)
		if err != nil {
			return nil, err
		}

		newCtx := context.WithValue(ctx, UserIDKey, userID)
		return handler(newCtx, req)
	}
}

func AuthStreamInterceptor(tokens TokenParser, publicMethods map[string]bool) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if _, ok := publicMethods[info.FullMethod]; ok {
			return handler(srv, ss)
		}

		ctx := ss.Context()
		userID, err := authenticate(ctx, tokens)
		if err != nil {
			return err
		}

		wrapped := newWrappedServerStream(ss, context.WithValue(ctx, UserIDKey, userID))
		return handler(srv, wrapped)
	}
}

type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func newWrappedServerStream(ss grpc.ServerStream, ctx context.Context) *wrappedServerStream {
	return &wrappedServerStream{ServerStream: ss, ctx: ctx}
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
