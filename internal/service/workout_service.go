package service

import (
	"context"
	"errors"
	"strings"

	"socialposts/internal/models"
	"socialposts/internal/repository"
)

type CreateWorkoutRequest struct {
	Title string  `json:"title" validate:"required,max=255"`
	Reps  int     `json:"reps" validate:"gte=0"`
	Load  float64 `json:"load" validate:"gte=0"`
}

// WorkoutPatch lists the only workout fields a client may change.
type WorkoutPatch struct {
	Title *string  `json:"title"`
	Reps  *int     `json:"reps"`
	Load  *float64 `json:"load"`
}

type WorkoutService interface {
	Create(ctx context.Context, userID string, req CreateWorkoutRequest) (*models.Workout, error)
	Get(ctx context.Context, workoutID, userID string) (*models.Workout, error)
	ListByUser(ctx context.Context, userID string) ([]models.Workout, error)
	Update(ctx context.Context, workoutID string, patch WorkoutPatch, userID string) (*models.Workout, error)
	Delete(ctx context.Context, workoutID, userID string) error
}

type workoutService struct {
	repo repository.WorkoutRepository
}

func NewWorkoutService(repo repository.WorkoutRepository) WorkoutService {
	return &workoutService{repo: repo}
}

func (s *workoutService) Create(ctx context.Context, userID string, req CreateWorkoutRequest) (*models.Workout, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, validationError("title is required")
	}
	if req.Reps < 0 || req.Load < 0 {
		return nil, validationError("reps and load must not be negative")
	}

	workout := &models.Workout{
		UserID: userID,
		Title:  title,
		Reps:   req.Reps,
		Load:   req.Load,
	}
	if err := s.repo.Create(ctx, workout); err != nil {
		return nil, err
	}
	return workout, nil
}

func (s *workoutService) Get(ctx context.Context, workoutID, userID string) (*models.Workout, error) {
	workout, err := s.repo.GetByID(ctx, workoutID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("workout not found")
		}
		return nil, err
	}
	if workout.UserID != userID {
		return nil, forbiddenError("you can only access your own workouts")
	}
	return workout, nil
}

func (s *workoutService) ListByUser(ctx context.Context, userID string) ([]models.Workout, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *workoutService) Update(ctx context.Context, workoutID string, patch WorkoutPatch, userID string) (*models.Workout, error) {
	workout, err := s.Get(ctx, workoutID, userID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, validationError("title is required")
		}
		workout.Title = title
	}
	if patch.Reps != nil {
		if *patch.Reps < 0 {
			return nil, validationError("reps must not be negative")
		}
		workout.Reps = *patch.Reps
	}
	if patch.Load != nil {
		if *patch.Load < 0 {
			return nil, validationError("load must not be negative")
		}
		workout.Load = *patch.Load
	}

	if err := s.repo.Update(ctx, workout); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("workout not found")
		}
		return nil, err
	}
	return workout, nil
}

func (s *workoutService) Delete(ctx context.Context, workoutID, userID string) error {
	if _, err := s.Get(ctx, workoutID, userID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, workoutID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError("workout not found")
		}
		return err
	}
	return nil
}
