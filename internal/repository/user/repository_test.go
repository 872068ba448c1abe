package user

import (
	"context"
	"os"
	"testing"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/storage/postgres/pgtest"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(pgtest.Main(m, &testPool))
}

func createUser(t *testing.T, repo UserRepository, email string) int64 {
	t.Helper()
	id, err := repo.Create(context.Background(), models.User{
		Email:        email,
		Username:     email,
		PasswordHash: []byte("hash"),
	})
	require.NoError(t, err)
	return id
}

func TestCreate_And_Lookup(t *testing.T) {
	pgtest.Reset(t, testPool)
	req := require.New(t)
	repo := NewPostgresRepository(testPool)
	ctx := context.Background()

	id := createUser(t, repo, "alice@example.com")

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	req.NoError(err)
	req.Equal(id, byEmail.ID)
	req.Equal([]byte("hash"), byEmail.PasswordHash)
	req.Equal("user", byEmail.Role)
	req.True(byEmail.IsActive)

	byID, err := repo.GetByID(ctx, id)
	req.NoError(err)
	req.Equal("alice@example.com", byID.Email)
	req.Empty(byID.Projects)
	req.NotNil(byID.Projects)
}

func TestCreate_Duplicate_Email(t *testing.T) {
	pgtest.Reset(t, testPool)
	repo := NewPostgresRepository(testPool)
	createUser(t, repo, "bob@example.com")

	_, err := repo.Create(context.Background(), models.User{Email: "bob@example.com", Username: "bob2", PasswordHash: []byte("x")})

	require.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestNotFound(t *testing.T) {
	pgtest.Reset(t, testPool)
	repo := NewPostgresRepository(testPool)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 404)
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.Update(ctx, 404, models.UserPatch{})
	require.ErrorIs(t, err, ErrUserNotFound)
	require.ErrorIs(t, repo.Delete(ctx, 404), ErrUserNotFound)
}

func TestUpdate_Only_Touches_Given_Fields(t *testing.T) {
	pgtest.Reset(t, testPool)
	req := require.New(t)
	repo := NewPostgresRepository(testPool)
	id := createUser(t, repo, "carol@example.com")

	bio := "likes go"
	profile := "/uploads/abc-carol.png"
	updated, err := repo.Update(context.Background(), id, models.UserPatch{
		Bio:          &bio,
		ProfilePath:  &profile,
		PasswordHash: []byte("new-hash"),
	})

	req.NoError(err)
	req.Equal("likes go", updated.Bio)
	req.Equal("carol@example.com", updated.Email)
	req.Equal(profile, *updated.ProfilePath)
	req.Equal([]byte("new-hash"), updated.PasswordHash)
}

func TestList_Paginates_And_Loads_Associations(t *testing.T) {
	pgtest.Reset(t, testPool)
	req := require.New(t)
	repo := NewPostgresRepository(testPool)
	ctx := context.Background()

	first := createUser(t, repo, "u1@example.com")
	createUser(t, repo, "u2@example.com")
	createUser(t, repo, "u3@example.com")

	var projectID int64
	req.NoError(testPool.QueryRow(ctx,
		"INSERT INTO projects (title, user_id) VALUES ('launch', $1) RETURNING id", first).Scan(&projectID))
	_, err := testPool.Exec(ctx,
		"INSERT INTO tasks (title, project_id, user_id) VALUES ('ship it', $1, $2)", projectID, first)
	req.NoError(err)

	page1, total, err := repo.List(ctx, models.Page{Number: 1, Limit: 2})
	req.NoError(err)
	req.Equal(3, total)
	req.Len(page1, 2)
	req.Equal(first, page1[0].ID)
	req.Len(page1[0].Projects, 1)
	req.Equal("launch", page1[0].Projects[0].Title)
	req.Len(page1[0].Tasks, 1)
	req.Empty(page1[1].Projects)

	page2, _, err := repo.List(ctx, models.Page{Number: 2, Limit: 2})
	req.NoError(err)
	req.Len(page2, 1)
}

func TestDelete(t *testing.T) {
	pgtest.Reset(t, testPool)
	repo := NewPostgresRepository(testPool)
	id := createUser(t, repo, "dave@example.com")

	require.NoError(t, repo.Delete(context.Background(), id))

	_, err := repo.GetByID(context.Background(), id)
	require.ErrorIs(t, err, ErrUserNotFound)
}
