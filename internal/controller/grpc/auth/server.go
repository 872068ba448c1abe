package auth

import (
	"context"
	"errors"

	"github.com/christmas-fire/nexus-collab/internal/service/auth"
	authv1 "github.com/christmas-fire/nexus-collab/pkg/auth/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// PublicMethods need no bearer token.
var PublicMethods = map[string]bool{
	authv1.AuthService_Register_FullMethodName: true,
	authv1.AuthService_Login_FullMethodName:    true,
}

type server struct {
	authv1.UnimplementedAuthServiceServer
	authService *auth.AuthService
}

func NewServer(authService *auth.AuthService) *server {
	return &server{authService: authService}
}

func (s *server) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	userID, token, err := s.authService.Register(ctx,
		fields[authv1.FieldEmail].GetStringValue(),
		fields[authv1.FieldUsername].GetStringValue(),
		fields[authv1.FieldPassword].GetStringValue(),
	)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailRequired),
			errors.Is(err, auth.ErrUsernameRequired),
			errors.Is(err, auth.ErrPasswordRequired),
			errors.Is(err, auth.ErrPasswordTooShort):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, auth.ErrUserAlreadyExists):
			return nil, status.Error(codes.AlreadyExists, err.Error())
		}
		return nil, status.Error(codes.Internal, "failed to register")
	}

	return tokenResponse(userID, token)
}

func (s *server) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	token, user, err := s.authService.Login(ctx,
		fields[authv1.FieldEmail].GetStringValue(),
		fields[authv1.FieldPassword].GetStringValue(),
	)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailRequired), errors.Is(err, auth.ErrPasswordRequired):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, auth.ErrInvalidCredentials):
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return nil, status.Error(codes.Internal, "failed to login")
	}

	return tokenResponse(user.ID, token)
}

func tokenResponse(userID int64, token string) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]interface{}{
		authv1.FieldUserID:      userID,
		authv1.FieldAccessToken: token,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}
