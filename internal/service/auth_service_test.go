package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"socialposts/internal/config"
	"socialposts/internal/logger"
	"socialposts/internal/models"
	"socialposts/internal/repository"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecretKey:         "test-secret",
		AccessTokenDuration:  time.Hour,
		RefreshTokenDuration: 24 * time.Hour,
		MaxFilesPerPost:      5,
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	req := repository.CreateUserRequest{Username: "alice", Email: "alice@example.com", Password: "password123"}

	t.Run("Успешная регистрация", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testConfig(), logger.Discard())

		repo.On("GetUserByEmail", ctx, req.Email).Return(nil, repository.ErrNotFound)
		repo.On("CreateUser", ctx, mock.AnythingOfType("*models.User"), req.Password).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.User).UserID = "u-1"
			}).
			Return(nil)

		user, err := svc.Register(ctx, req)

		require.NoError(t, err)
		assert.Equal(t, "u-1", user.UserID)
		assert.Equal(t, "alice", user.Username)
		repo.AssertExpectations(t)
	})

	t.Run("Email уже занят", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testConfig(), logger.Discard())

		repo.On("GetUserByEmail", ctx, req.Email).Return(&models.User{UserID: "u-0"}, nil)

		_, err := svc.Register(ctx, req)

		assert.ErrorIs(t, err, ErrConflict)
		repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Имя пользователя уже занято", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testConfig(), logger.Discard())

		repo.On("GetUserByEmail", ctx, req.Email).Return(nil, repository.ErrNotFound)
		repo.On("CreateUser", ctx, mock.Anything, req.Password).Return(repository.ErrDuplicate)

		_, err := svc.Register(ctx, req)

		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestAuthService_LoginAndValidate(t *testing.T) {
	ctx := context.Background()
	user := &models.User{UserID: "u-1", Username: "alice", Email: "alice@example.com"}

	t.Run("Успешный вход выдаёт валидный токен", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testConfig(), logger.Discard())

		repo.On("VerifyPassword", ctx, user.Email, "password123").Return(user, nil)
		repo.On("UpdateRefreshToken", ctx, "u-1", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

		got, access, refresh, err := svc.Login(ctx, user.Email, "password123")

		require.NoError(t, err)
		assert.Equal(t, "u-1", got.UserID)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)

		userID, err := svc.ValidateToken(access)
		require.NoError(t, err)
		assert.Equal(t, "u-1", userID)
		repo.AssertExpectations(t)
	})

	t.Run("Неверный пароль", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testConfig(), logger.Discard())

		repo.On("VerifyPassword", ctx, user.Email, "wrong").Return(nil, repository.ErrInvalidPassword)

		_, _, _, err := svc.Login(ctx, user.Email, "wrong")

		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Неизвестный email", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testConfig(), logger.Discard())

		repo.On("VerifyPassword", ctx, "nobody@example.com", "x").Return(nil, repository.ErrNotFound)

		_, _, _, err := svc.Login(ctx, "nobody@example.com", "x")

		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Ошибка базы данных не маскируется", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testConfig(), logger.Discard())

		repo.On("VerifyPassword", ctx, user.Email, "x").Return(nil, errors.New("db down"))

		_, _, _, err := svc.Login(ctx, user.Email, "x")

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnauthorized)
	})
}

func TestAuthService_ValidateTokenRejects(t *testing.T) {
	cfg := testConfig()
	svc := NewAuthService(new(MockUserRepository), cfg, logger.Discard())

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	valid := jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "Мусор", token: "not-a-token"},
		{name: "Чужой ключ", token: sign(jwt.SigningMethodHS256, []byte("other-secret"), valid)},
		{name: "Другой алгоритм", token: sign(jwt.SigningMethodHS512, []byte(cfg.JWTSecretKey), valid)},
		{name: "Просроченный", token: sign(jwt.SigningMethodHS256, []byte(cfg.JWTSecretKey), jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		})},
		{name: "Без срока действия", token: sign(jwt.SigningMethodHS256, []byte(cfg.JWTSecretKey), jwt.RegisteredClaims{Subject: "u-1"})},
		{name: "Без subject", token: sign(jwt.SigningMethodHS256, []byte(cfg.JWTSecretKey), jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestAuthService_RefreshTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("Токен ротируется", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testConfig(), logger.Discard())

		repo.On("GetUserByRefreshToken", ctx, "old").Return(&models.User{UserID: "u-1"}, nil)
		repo.On("UpdateRefreshToken", ctx, "u-1", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

		_, access, refresh, err := svc.RefreshTokens(ctx, "old")

		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEqual(t, "old", refresh)
	})

	t.Run("Просроченный refresh token", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testConfig(), logger.Discard())

		repo.On("GetUserByRefreshToken", ctx, "expired").Return(nil, repository.ErrNotFound)

		_, _, _, err := svc.RefreshTokens(ctx, "expired")

		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestAuthService_GetUser(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := NewAuthService(repo, testConfig(), logger.Discard())

	repo.On("GetUserByID", ctx, "u-1").Return(&models.User{UserID: "u-1"}, nil)
	repo.On("GetUserByID", ctx, "missing").Return(nil, repository.ErrNotFound)

	user, err := svc.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.UserID)

	_, err = svc.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
