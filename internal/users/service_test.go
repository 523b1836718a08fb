package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgauth "github.com/prostorehq/prostore-backend/pkg/auth"
	"github.com/prostorehq/prostore-backend/pkg/config"
	pkgerrors "github.com/prostorehq/prostore-backend/pkg/errors"
	"github.com/prostorehq/prostore-backend/pkg/logger"
)

func openUserTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:users_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

type recordingMerger struct {
	userID        uuid.UUID
	sessionCartID string
	calls         int
	err           error
}

func (m *recordingMerger) MergeAnonymousIntoUser(ctx context.Context, userID uuid.UUID, sessionCartID string) error {
	m.calls++
	m.userID = userID
	m.sessionCartID = sessionCartID
	return m.err
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "prostore-test", ExpirationMinutes: 15}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newTestUserService(t *testing.T, merger *recordingMerger) Service {
	t.Helper()

	db := openUserTestDB(t)
	svc, err := NewService(ServiceParams{
		UserRepo:       NewRepository(db),
		CartMerger:     merger,
		Logger:         logger.New(logger.Options{ServiceName: "users-test", Output: io.Discard}),
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
	})
	require.NoError(t, err)
	return svc
}

func registerShopper(t *testing.T, svc Service, email string) *UserDTO {
	t.Helper()

	dto, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Shopper",
		Email:    email,
		Password: "s3cret-password",
	})
	require.NoError(t, err)
	return dto
}

func TestRegisterAndLoginRoundTrip(t *testing.T) {
	t.Parallel()

	merger := &recordingMerger{}
	svc := newTestUserService(t, merger)

	dto := registerShopper(t, svc, "Shopper@Example.com")
	assert.Equal(t, "shopper@example.com", dto.Email)
	assert.Equal(t, "user", dto.Role)

	resp, err := svc.Login(context.Background(), LoginInput{
		Email:    "shopper@example.com",
		Password: "s3cret-password",
	})
	require.NoError(t, err)
	assert.Equal(t, dto.ID, resp.User.ID)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, dto.ID, claims.UserID)
	assert.Zero(t, merger.calls)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := newTestUserService(t, &recordingMerger{})
	registerShopper(t, svc, "dup@example.com")

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Other",
		Email:    "DUP@example.com",
		Password: "another-password",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	svc := newTestUserService(t, &recordingMerger{})
	registerShopper(t, svc, "shopper@example.com")

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "shopper@example.com",
		Password: "wrong-password",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginTriggersCartMerge(t *testing.T) {
	t.Parallel()

	merger := &recordingMerger{}
	svc := newTestUserService(t, merger)
	dto := registerShopper(t, svc, "shopper@example.com")

	token := uuid.NewString()
	_, err := svc.Login(context.Background(), LoginInput{
		Email:         "shopper@example.com",
		Password:      "s3cret-password",
		SessionCartID: token,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, merger.calls)
	assert.Equal(t, dto.ID, merger.userID)
	assert.Equal(t, token, merger.sessionCartID)
}

func TestLoginSucceedsWhenMergeFails(t *testing.T) {
	t.Parallel()

	merger := &recordingMerger{err: errors.New("merge blew up")}
	svc := newTestUserService(t, merger)
	registerShopper(t, svc, "shopper@example.com")

	resp, err := svc.Login(context.Background(), LoginInput{
		Email:         "shopper@example.com",
		Password:      "s3cret-password",
		SessionCartID: uuid.NewString(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 1, merger.calls)
}
