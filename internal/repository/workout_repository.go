package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"socialposts/internal/models"
)

const workoutColumns = `workout_id, user_id, title, reps, load, created_at, updated_at`

type workoutRepository struct {
	db *sqlx.DB
}

func NewWorkoutRepository(db *sqlx.DB) WorkoutRepository {
	return &workoutRepository{db: db}
}

func (r *workoutRepository) Create(ctx context.Context, workout *models.Workout) error {
	workout.WorkoutID = uuid.New().String()
	now := time.Now().UTC()
	workout.CreatedAt = now
	workout.UpdatedAt = now

	query := `
		INSERT INTO workouts (workout_id, user_id, title, reps, load, created_at, updated_at)
		VALUES (:workout_id, :user_id, :title, :reps, :load, :created_at, :updated_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, workout); err != nil {
		return fmt.Errorf("ошибка при создании тренировки: %w", err)
	}
	return nil
}

func (r *workoutRepository) GetByID(ctx context.Context, workoutID string) (*models.Workout, error) {
	var workout models.Workout

	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE workout_id = $1`

	if err := r.db.GetContext(ctx, &workout, query, workoutID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("тренировка с ID %s: %w", workoutID, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка при получении тренировки: %w", err)
	}
	return &workout, nil
}

func (r *workoutRepository) ListByUser(ctx context.Context, userID string) ([]models.Workout, error) {
	query := `
		SELECT ` + workoutColumns + ` FROM workouts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	workouts := []models.Workout{}
	if err := r.db.SelectContext(ctx, &workouts, query, userID); err != nil {
		return nil, fmt.Errorf("ошибка при получении тренировок: %w", err)
	}
	return workouts, nil
}

func (r *workoutRepository) Update(ctx context.Context, workout *models.Workout) error {
	workout.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE workouts
		SET title = :title, reps = :reps, load = :load, updated_at = :updated_at
		WHERE workout_id = :workout_id
	`

	result, err := r.db.NamedExecContext(ctx, query, workout)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении тренировки: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке обновленных строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("тренировка с ID %s: %w", workout.WorkoutID, ErrNotFound)
	}
	return nil
}

func (r *workoutRepository) Delete(ctx context.Context, workoutID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workouts WHERE workout_id = $1`, workoutID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении тренировки: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке удаленных строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("тренировка с ID %s: %w", workoutID, ErrNotFound)
	}
	return nil
}
