package auth

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/christmas-fire/nexus-collab/internal/controller/grpc/interceptors"
	"github.com/christmas-fire/nexus-collab/internal/mocks"
	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/repository/user"
	"github.com/christmas-fire/nexus-collab/internal/service/auth"
	authv1 "github.com/christmas-fire/nexus-collab/pkg/auth/v1"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newClient(t *testing.T, users user.UserRepository) (authv1.AuthServiceClient, *auth.AuthService) {
	t.Helper()
	authService := auth.NewAuthService(users, "secret", time.Hour)

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(interceptors.AuthUnaryInterceptor(authService, PublicMethods)),
	)
	authv1.RegisterAuthServiceServer(srv, NewServer(authService))
	go srv.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
	})
	return authv1.NewAuthServiceClient(conn), authService
}

func TestRegister_Returns_Usable_Token(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	client, authService := newClient(t, users)

	users.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u models.User) (int64, error) {
			req.Equal("dave@example.com", u.Email)
			req.NoError(bcrypt.CompareHashAndPassword(u.PasswordHash, []byte("password1")))
			return 12, nil
		})

	in, err := structpb.NewStruct(map[string]interface{}{
		"email": "dave@example.com", "username": "dave", "password": "password1",
	})
	req.NoError(err)

	out, err := client.Register(context.Background(), in)

	req.NoError(err)
	req.Equal(float64(12), out.GetFields()[authv1.FieldUserID].GetNumberValue())
	userID, err := authService.ParseToken(out.GetFields()[authv1.FieldAccessToken].GetStringValue())
	req.NoError(err)
	req.Equal(int64(12), userID)
}

func TestRegister_Duplicate_Is_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	client, _ := newClient(t, users)
	users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(0), user.ErrUserAlreadyExists)

	in, err := structpb.NewStruct(map[string]interface{}{
		"email": "dave@example.com", "username": "dave", "password": "password1",
	})
	require.NoError(t, err)

	_, err = client.Register(context.Background(), in)

	require.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestRegister_Short_Password_Is_InvalidArgument(t *testing.T) {
	ctrl := gomock.NewController(t)
	client, _ := newClient(t, mocks.NewMockUserRepository(ctrl))
	in, err := structpb.NewStruct(map[string]interface{}{
		"email": "dave@example.com", "username": "dave", "password": "short",
	})
	require.NoError(t, err)

	_, err = client.Register(context.Background(), in)

	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestLogin(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	client, _ := newClient(t, users)

	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	req.NoError(err)
	users.EXPECT().GetByEmail(gomock.Any(), "erin@example.com").
		Return(&models.User{ID: 5, Email: "erin@example.com", PasswordHash: hash}, nil).Times(2)
	users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").
		Return(nil, user.ErrUserNotFound)

	good, err := structpb.NewStruct(map[string]interface{}{"email": "erin@example.com", "password": "password1"})
	req.NoError(err)
	out, err := client.Login(context.Background(), good)
	req.NoError(err)
	req.Equal(float64(5), out.GetFields()[authv1.FieldUserID].GetNumberValue())

	wrong, err := structpb.NewStruct(map[string]interface{}{"email": "erin@example.com", "password": "password2"})
	req.NoError(err)
	_, err = client.Login(context.Background(), wrong)
	req.Equal(codes.Unauthenticated, status.Code(err))

	ghost, err := structpb.NewStruct(map[string]interface{}{"email": "ghost@example.com", "password": "password1"})
	req.NoError(err)
	_, err = client.Login(context.Background(), ghost)
	req.Equal(codes.Unauthenticated, status.Code(err))
}
