package handlers

import (
	"log/slog"

	"github.com/go-playground/validator/v10"

	"socialposts/internal/config"
	"socialposts/internal/service"
)

type Handlers struct {
	AuthService    service.AuthService
	PostService    service.PostService
	ImageService   service.ImageService
	WorkoutService service.WorkoutService
	HealthService  service.HealthService
	Cfg            *config.Config
	Validate       *validator.Validate
	Log            *slog.Logger
}

func NewHandlers(services *service.Service, cfg *config.Config, log *slog.Logger) *Handlers {
	return &Handlers{
		AuthService:    services.Auth,
		PostService:    services.Post,
		ImageService:   services.Image,
		WorkoutService: services.Workout,
		HealthService:  services.Health,
		Cfg:            cfg,
		Validate:       validator.New(validator.WithRequiredStructEnabled()),
		Log:            log,
	}
}
