package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/christmas-fire/nexus-collab/internal/mocks"
	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/repository/message"
	"github.com/christmas-fire/nexus-collab/internal/repository/user"
	"github.com/christmas-fire/nexus-collab/internal/service/auth"
	"github.com/christmas-fire/nexus-collab/internal/service/chat"
	"github.com/christmas-fire/nexus-collab/internal/service/session"
	"github.com/christmas-fire/nexus-collab/internal/storage/badger"
	"github.com/christmas-fire/nexus-collab/internal/storage/uploads"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// 1x1 transparent PNG.
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type fixture struct {
	router http.Handler
	users  *mocks.MockUserRepository
	auth   *auth.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)

	db, err := badger.Open("")
	require.NoError(t, err)
	messages, err := message.NewBadgerRepository(db)
	require.NoError(t, err)
	t.Cleanup(func() {
		messages.Close()
		db.Close()
	})

	store, err := uploads.NewStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	authService := auth.NewAuthService(users, "secret", time.Hour)
	chatService := chat.NewChatService(messages, session.NewRegistry(), nil, log)

	router := NewRouter(Handlers{
		Auth:     NewAuthHandler(authService, users, store, log),
		Users:    NewUserHandler(users, authService, store, log),
		Projects: NewProjectHandler(nil, log),
		Tasks:    NewTaskHandler(nil, log),
		Messages: NewMessageHandler(chatService, log),
	}, authService, nil, store)

	return &fixture{router: router, users: users, auth: authService}
}

func (f *fixture) token(t *testing.T, userID int64) string {
	t.Helper()
	token, err := f.auth.IssueToken(userID)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func (f *fixture) doJSON(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return f.do(t, method, path, token, body, "application/json")
}

func TestAuthenticator(t *testing.T) {
	f := newFixture(t)

	resp := f.doJSON(t, http.MethodGet, "/api/messages/2", "", nil)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.doJSON(t, http.MethodGet, "/api/messages/2", "forged", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRegister(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(3), nil)

	resp := f.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "alice@example.com", "username": "alice", "password": "password1",
	})

	req.Equal(http.StatusCreated, resp.Code)
	var body RegisterResponse
	req.NoError(json.Unmarshal(resp.Body.Bytes(), &body))
	req.Equal(int64(3), body.UserID)
	userID, err := f.auth.ParseToken(body.Token)
	req.NoError(err)
	req.Equal(int64(3), userID)
}

func TestRegister_Rejects_Bad_Input_And_Duplicates(t *testing.T) {
	f := newFixture(t)

	// Malformed email never reaches the repository
	resp := f.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "not-an-email", "username": "alice", "password": "password1",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	f.users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(0), user.ErrUserAlreadyExists)
	resp = f.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "alice@example.com", "username": "alice", "password": "password1",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLogin_Invalid_Credentials(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, user.ErrUserNotFound)

	resp := f.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": "password1",
	})

	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCurrentUser(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.users.EXPECT().GetByID(gomock.Any(), int64(4)).Return(&models.User{ID: 4, Username: "dave"}, nil)

	resp := f.doJSON(t, http.MethodGet, "/api/auth/user", f.token(t, 4), nil)

	req.Equal(http.StatusOK, resp.Code)
	var u models.User
	req.NoError(json.Unmarshal(resp.Body.Bytes(), &u))
	req.Equal("dave", u.Username)
}

func TestMessages_Send_Then_History_Both_Ways(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given user 1 posts to user 2
	resp := f.doJSON(t, http.MethodPost, "/api/messages", f.token(t, 1), map[string]interface{}{
		"receiver_id": 2, "content": "hello",
	})
	req.Equal(http.StatusCreated, resp.Code)
	var sent models.Message
	req.NoError(json.Unmarshal(resp.Body.Bytes(), &sent))
	req.Equal(models.Identity("1"), sent.SenderID)
	req.Equal(models.Identity("2"), sent.ReceiverID)

	// Then both sides read the same history
	for _, tc := range []struct {
		token string
		path  string
	}{
		{f.token(t, 1), "/api/messages/2"},
		{f.token(t, 2), "/api/messages/1"},
	} {
		resp = f.doJSON(t, http.MethodGet, tc.path, tc.token, nil)
		req.Equal(http.StatusOK, resp.Code)
		var history []models.Message
		req.NoError(json.Unmarshal(resp.Body.Bytes(), &history))
		req.Len(history, 1)
		req.Equal(sent.ID, history[0].ID)
	}
}

func TestMessages_Send_Accepts_CamelCase_Receiver(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	resp := f.doJSON(t, http.MethodPost, "/api/messages", f.token(t, 1), map[string]interface{}{
		"receiverId": "2", "content": "hello",
	})

	req.Equal(http.StatusCreated, resp.Code)
	var sent models.Message
	req.NoError(json.Unmarshal(resp.Body.Bytes(), &sent))
	req.Equal(models.Identity("2"), sent.ReceiverID)
}

func TestMessages_Empty_History_Is_Array(t *testing.T) {
	f := newFixture(t)

	resp := f.doJSON(t, http.MethodGet, "/api/messages/9", f.token(t, 1), nil)

	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, "[]", resp.Body.String())
}

func TestMessages_Send_Validation(t *testing.T) {
	f := newFixture(t)

	resp := f.doJSON(t, http.MethodPost, "/api/messages", f.token(t, 1), map[string]interface{}{
		"receiver_id": 2, "content": "  ",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.doJSON(t, http.MethodPost, "/api/messages", f.token(t, 1), map[string]interface{}{
		"content": "hi",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUsers_List_Clamps_Pagination(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.users.EXPECT().List(gomock.Any(), models.Page{Number: 2, Limit: 100}).
		Return([]models.User{{ID: 101}}, 101, nil)

	resp := f.doJSON(t, http.MethodGet, "/api/users?page=2&limit=500", f.token(t, 1), nil)

	req.Equal(http.StatusOK, resp.Code)
	var page models.PageResult[models.User]
	req.NoError(json.Unmarshal(resp.Body.Bytes(), &page))
	req.Equal(2, page.Page)
	req.Equal(100, page.Limit)
	req.Equal(101, page.Total)
	req.Len(page.Items, 1)
}

func TestUsers_Get(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().GetByID(gomock.Any(), int64(77)).Return(nil, user.ErrUserNotFound)

	resp := f.doJSON(t, http.MethodGet, "/api/users/77", f.token(t, 1), nil)
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = f.doJSON(t, http.MethodGet, "/api/users/abc", f.token(t, 1), nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUsers_Create_With_Profile_Picture(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	req.NoError(mw.WriteField("username", "erin"))
	req.NoError(mw.WriteField("email", "erin@example.com"))
	req.NoError(mw.WriteField("password", "password1"))
	part, err := mw.CreateFormFile("profile", "avatar.png")
	req.NoError(err)
	_, err = part.Write(pngPixel)
	req.NoError(err)
	req.NoError(mw.Close())

	var stored models.User
	f.users.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u models.User) (int64, error) {
			stored = u
			return 9, nil
		})
	f.users.EXPECT().GetByID(gomock.Any(), int64(9)).
		DoAndReturn(func(context.Context, int64) (*models.User, error) {
			created := stored
			created.ID = 9
			return &created, nil
		})

	resp := f.do(t, http.MethodPost, "/api/users", f.token(t, 1), &body, mw.FormDataContentType())

	req.Equal(http.StatusCreated, resp.Code, resp.Body.String())
	req.Equal("erin", stored.Username)
	req.NotEmpty(stored.PasswordHash)
	req.NotNil(stored.ProfilePath)
	req.True(strings.HasPrefix(*stored.ProfilePath, "/uploads/"))
	req.True(strings.HasSuffix(*stored.ProfilePath, "-avatar.png"))

	// And the picture is served back
	served := f.do(t, http.MethodGet, *stored.ProfilePath, "", nil, "")
	req.Equal(http.StatusOK, served.Code)
	req.Equal(pngPixel, served.Body.Bytes())
}

func TestUpdateProfile_Rejects_Non_Image(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("bio", "hello"))
	part, err := mw.CreateFormFile("profile", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("just some text"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp := f.do(t, http.MethodPut, "/api/auth/update-profile", f.token(t, 1), &body, mw.FormDataContentType())

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateProfile_JSON_Rehashes_Password(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.users.EXPECT().Update(gomock.Any(), int64(5), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, patch models.UserPatch) (*models.User, error) {
			req.NotNil(patch.Bio)
			req.Equal("new bio", *patch.Bio)
			req.NotEmpty(patch.PasswordHash)
			req.Nil(patch.ProfilePath)
			return &models.User{ID: 5, Bio: *patch.Bio}, nil
		})

	resp := f.doJSON(t, http.MethodPut, "/api/auth/update-profile", f.token(t, 5), map[string]string{
		"bio": "new bio", "password": "password2",
	})

	req.Equal(http.StatusOK, resp.Code, resp.Body.String())
}

func TestProjects_And_Tasks_Require_Title(t *testing.T) {
	f := newFixture(t)

	resp := f.doJSON(t, http.MethodPost, "/api/projects", f.token(t, 1), map[string]string{"description": "no title"})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.doJSON(t, http.MethodPost, "/api/tasks", f.token(t, 1), map[string]string{"title": "   "})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.doJSON(t, http.MethodGet, "/api/tasks?project_id=x", f.token(t, 1), nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMetrics_Exposed(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/metrics", "", nil, "")

	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "nexus_live_channels")
}
