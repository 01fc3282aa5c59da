package service

import (
	"log/slog"

	"socialposts/internal/config"
	"socialposts/internal/repository"
	"socialposts/internal/storage"
)

type Service struct {
	Auth    AuthService
	Post    PostService
	Upload  UploadService
	Image   ImageService
	Workout WorkoutService
	Health  HealthService
}

func NewService(rep *repository.Repository, cfg *config.Config, gateway *storage.Gateway, log *slog.Logger) *Service {
	uploads := NewUploadService(gateway, log)

	return &Service{
		Auth:    NewAuthService(rep.Users, cfg, log),
		Post:    NewPostService(rep.Posts, uploads, gateway, cfg.MaxFilesPerPost, log),
		Upload:  uploads,
		Image:   NewImageService(gateway),
		Workout: NewWorkoutService(rep.Workouts),
		Health:  NewHealthService(rep.Tables, gateway, cfg.StorageDriver),
	}
}
