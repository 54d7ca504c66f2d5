package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() *Service {
	svc := NewService(NewInMemoryRepository(), "test-secret", time.Hour, nil)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "  ", "secret123")
	assert.ErrorIs(t, err, ErrInvalidUsername)
	_, err = svc.Register(ctx, "asha", "12345")
	assert.ErrorIs(t, err, ErrWeakPassword)

	user, err := svc.Register(ctx, "asha", "123456")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.NotEqual(t, []byte("123456"), user.PasswordHash)

	_, err = svc.Register(ctx, "Asha", "another1")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLoginIssuesTokenForUser(t *testing.T) {
	svc := newTestService()
	fixed := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	user, err := svc.Register(ctx, "asha", "secret123")
	require.NoError(t, err)

	token, err := svc.Login(ctx, "asha", "secret123")
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(time.Hour), token.ExpiresAt)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(token.Access, claims, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return fixed }))
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, "asha", "secret123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "asha", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPostgresRepository(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newPostgresRepositoryWithDB(mock)
	ctx := context.Background()
	created := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)

	user := &User{ID: uuid.New(), Username: "asha", PasswordHash: []byte("hash")}
	mock.ExpectQuery("INSERT INTO users").WithArgs(user.ID, "asha", []byte("hash")).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))
	require.NoError(t, repo.Create(ctx, user))
	assert.Equal(t, created, user.CreatedAt)

	mock.ExpectQuery("INSERT INTO users").WithArgs(pgxmock.AnyArg(), "asha", pgxmock.AnyArg()).WillReturnError(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, repo.Create(ctx, &User{ID: uuid.New(), Username: "asha"}), ErrUsernameTaken)

	mock.ExpectQuery("FROM users").WithArgs("ASHA").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).AddRow(user.ID, "asha", []byte("hash"), created))
	got, err := repo.GetByUsername(ctx, "ASHA")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	mock.ExpectQuery("FROM users").WithArgs("ghost").WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerRegisterAndLogin(t *testing.T) {
	h := NewHandler(newTestService(), nil)

	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(`{"username":"asha","password":"secret123"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(`{"username":"asha","password":"secret123"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"asha","password":"secret123"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access"`)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"asha","password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
