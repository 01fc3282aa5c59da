package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialposts/internal/models"
)

const postColumns = `post_id, user_id, title, content, created_at, updated_at`

type PostRepositoryImpl struct {
	DB *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) *PostRepositoryImpl {
	return &PostRepositoryImpl{DB: db}
}

// Create inserts the post row and its image references in one transaction.
func (r *PostRepositoryImpl) Create(ctx context.Context, post *models.Post) error {
	if post.PostID == "" {
		post.PostID = uuid.New().String()
	}

	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка при открытии транзакции: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO posts (post_id, user_id, title, content, created_at, updated_at)
		VALUES (:post_id, :user_id, :title, :content, :created_at, :updated_at)
	`, post)
	if err != nil {
		return fmt.Errorf("ошибка при создании поста: %w", err)
	}

	for i := range post.Images {
		img := &post.Images[i]
		img.PostID = post.PostID
		img.Position = i

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO post_images (post_id, position, file_id, filename, content_type, size)
			VALUES (:post_id, :position, :file_id, :filename, :content_type, :size)
		`, img)
		if err != nil {
			return fmt.Errorf("ошибка при сохранении изображения поста: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	return nil
}

func (r *PostRepositoryImpl) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE post_id = $1`

	var post models.Post
	err := r.DB.GetContext(ctx, &post, query, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("пост с ID %s: %w", postID, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка при получении поста: %w", err)
	}

	posts := []models.Post{post}
	if err := r.attachImages(ctx, posts); err != nil {
		return nil, err
	}

	return &posts[0], nil
}

// List returns posts newest first.
func (r *PostRepositoryImpl) List(ctx context.Context, limit, offset int) ([]models.Post, error) {
	query := `
		SELECT ` + postColumns + ` FROM posts
		ORDER BY created_at DESC, post_id
		LIMIT $1 OFFSET $2
	`

	posts := []models.Post{}
	if err := r.DB.SelectContext(ctx, &posts, query, limit, offset); err != nil {
		return nil, fmt.Errorf("ошибка при получении постов: %w", err)
	}

	if err := r.attachImages(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostRepositoryImpl) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Post, error) {
	query := `
		SELECT ` + postColumns + ` FROM posts
		WHERE user_id = $1
		ORDER BY created_at DESC, post_id
		LIMIT $2 OFFSET $3
	`

	posts := []models.Post{}
	if err := r.DB.SelectContext(ctx, &posts, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("ошибка при получении постов пользователя %s: %w", userID, err)
	}

	if err := r.attachImages(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostRepositoryImpl) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM posts`); err != nil {
		return 0, fmt.Errorf("ошибка при подсчёте постов: %w", err)
	}
	return count, nil
}

func (r *PostRepositoryImpl) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM posts WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("ошибка при подсчёте постов пользователя: %w", err)
	}
	return count, nil
}

// Update writes title and content only; image references are immutable.
func (r *PostRepositoryImpl) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE posts
		SET title = :title, content = :content, updated_at = :updated_at
		WHERE post_id = :post_id
	`

	result, err := r.DB.NamedExecContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении поста: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке обновленных строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("пост с ID %s: %w", post.PostID, ErrNotFound)
	}

	return nil
}

// Delete removes the post; its post_images rows go with it via ON DELETE CASCADE.
func (r *PostRepositoryImpl) Delete(ctx context.Context, postID string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM posts WHERE post_id = $1`, postID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении поста: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке удаленных строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("пост с ID %s: %w", postID, ErrNotFound)
	}

	return nil
}

func (r *PostRepositoryImpl) attachImages(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, len(posts))
	byID := make(map[string]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].PostID
		byID[posts[i].PostID] = i
		posts[i].Images = []models.PostImageRef{}
	}

	query := `
		SELECT post_id, position, file_id, filename, content_type, size
		FROM post_images
		WHERE post_id = ANY($1)
		ORDER BY post_id, position
	`

	var images []models.PostImageRef
	if err := r.DB.SelectContext(ctx, &images, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("ошибка при получении изображений постов: %w", err)
	}

	for _, img := range images {
		if i, ok := byID[img.PostID]; ok {
			posts[i].Images = append(posts[i].Images, img)
		}
	}
	return nil
}
