package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"socialposts/internal/models"
)

func userRows(user models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"user_id", "username", "email", "password_hash", "refresh_token", "refresh_token_expiry_time", "created_at",
	}).AddRow(user.UserID, user.Username, user.Email, user.PasswordHash, nil, nil, user.CreatedAt)
}

func TestUserRepository_CreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Успешное создание пользователя", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		user := &models.User{Username: "alice", Email: "alice@example.com"}

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(sqlmock.AnyArg(), "alice", "alice@example.com", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.CreateUser(ctx, user, "password123")

		require.NoError(t, err)
		assert.NotEmpty(t, user.UserID)
		assert.NotEqual(t, "password123", user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ошибка при дублировании email", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err := repo.CreateUser(ctx, &models.User{Username: "alice", Email: "alice@example.com"}, "password123")

		assert.ErrorIs(t, err, ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ошибка базы данных", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("connection reset"))

		err := repo.CreateUser(ctx, &models.User{Username: "bob", Email: "bob@example.com"}, "password123")

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrDuplicate)
		assert.Contains(t, err.Error(), "ошибка при создании пользователя")
	})
}

func TestUserRepository_GetUserByID(t *testing.T) {
	ctx := context.Background()
	user := models.User{UserID: "u-1", Username: "alice", Email: "alice@example.com", CreatedAt: time.Now()}

	t.Run("Пользователь найден", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(`SELECT .+ FROM users WHERE user_id = \$1`).
			WithArgs("u-1").
			WillReturnRows(userRows(user))

		got, err := repo.GetUserByID(ctx, "u-1")

		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.Nil(t, got.RefreshToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пользователь не найден", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(`SELECT .+ FROM users WHERE user_id = \$1`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetUserByID(ctx, "missing")

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserRepository_VerifyPassword(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{UserID: "u-1", Username: "alice", Email: "alice@example.com", PasswordHash: string(hash)}

	t.Run("Верный пароль", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("alice@example.com").
			WillReturnRows(userRows(user))

		got, err := repo.VerifyPassword(ctx, "alice@example.com", "secret-pass")

		require.NoError(t, err)
		assert.Equal(t, "u-1", got.UserID)
	})

	t.Run("Неверный пароль", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("alice@example.com").
			WillReturnRows(userRows(user))

		_, err := repo.VerifyPassword(ctx, "alice@example.com", "wrong")

		assert.ErrorIs(t, err, ErrInvalidPassword)
	})
}

func TestUserRepository_UpdateRefreshToken(t *testing.T) {
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	t.Run("Токен обновлён", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectExec(`UPDATE users`).
			WithArgs("token", expiry, "u-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateRefreshToken(ctx, "u-1", "token", expiry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пользователь не найден", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectExec(`UPDATE users`).
			WithArgs("token", expiry, "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.UpdateRefreshToken(ctx, "missing", "token", expiry), ErrNotFound)
	})
}

func TestUserRepository_GetUserByRefreshToken(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE refresh_token = \$1`).
		WithArgs("expired").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByRefreshToken(context.Background(), "expired")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
