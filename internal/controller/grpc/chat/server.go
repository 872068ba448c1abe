package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/christmas-fire/nexus-collab/internal/controller/grpc/interceptors"
	"github.com/christmas-fire/nexus-collab/internal/models"
	chat "github.com/christmas-fire/nexus-collab/internal/service/chat"
	chatv1 "github.com/christmas-fire/nexus-collab/pkg/chat/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type server struct {
	chatv1.UnimplementedChatServiceServer
	chatService *chat.ChatService
	log         *slog.Logger
}

func NewServer(chatService *chat.ChatService, log *slog.Logger) *server {
	return &server{chatService: chatService, log: log}
}

func (s *server) SendMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	senderID, ok := interceptors.UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Internal, "failed to get user id from context")
	}

	receiverID, err := identityField(req, chatv1.FieldReceiverID)
	if err != nil {
		return nil, err
	}

	msg, err := s.chatService.SendMessage(ctx, models.IdentityFromInt(senderID), receiverID, stringField(req, chatv1.FieldContent))
	if err != nil {
		return nil, toStatus(err, "failed to send message")
	}

	out, err := messageToStruct(msg)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode message")
	}
	return out, nil
}

func (s *server) GetHistory(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()

	userID, ok := interceptors.UserIDFromContext(ctx)
	if !ok {
		return status.Error(codes.Internal, "failed to get user id from context")
	}

	otherID, err := identityField(req, chatv1.FieldUserID)
	if err != nil {
		return err
	}

	messages, err := s.chatService.GetHistory(ctx, models.IdentityFromInt(userID), otherID)
	if err != nil {
		return toStatus(err, "failed to get history")
	}

	for _, msg := range messages {
		grpcMsg, err := messageToStruct(msg)
		if err != nil {
			return status.Error(codes.Internal, "failed to encode message")
		}

		if err := stream.Send(grpcMsg); err != nil {
			s.log.Warn("failed to send message to stream", "error", err)
			return status.Error(codes.Internal, "failed to send message stream")
		}
	}

	return nil
}

func toStatus(err error, fallback string) error {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		return status.Error(codes.InvalidArgument, vErr.Error())
	}
	return status.Error(codes.Internal, fallback)
}

func identityField(req *structpb.Struct, name string) (models.Identity, error) {
	value, ok := req.GetFields()[name]
	if !ok {
		return "", nil
	}
	id, err := models.NormalizeIdentity(value.AsInterface())
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "invalid %s: %v", name, err)
	}
	return id, nil
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func messageToStruct(msg models.Message) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		chatv1.FieldID:         msg.ID,
		chatv1.FieldSenderID:   msg.SenderID.String(),
		chatv1.FieldReceiverID: msg.ReceiverID.String(),
		chatv1.FieldContent:    msg.Content,
		chatv1.FieldCreatedAt:  msg.CreatedAt.Format(time.RFC3339Nano),
	})
}
