package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"socialposts/internal/config"
	"socialposts/internal/database"
	handlers "socialposts/internal/handler"
	"socialposts/internal/middleware"
	"socialposts/internal/repository"
	"socialposts/internal/router"
	"socialposts/internal/service"
	"socialposts/internal/storage"
)

// Application holds every long-lived dependency of the API process.
type Application struct {
	Cfg      *config.Config
	Log      *slog.Logger
	DB       *database.DB
	Storage  *storage.Gateway
	Services *service.Service
	Handler  http.Handler

	mongo     *mongo.Client
	redis     *redis.Client
	ipLimiter *middleware.IPRateLimiter
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Application, error) {
	a := &Application{Cfg: cfg, Log: log}

	// connection DB
	db, err := database.ConnectDB(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}
	a.DB = db

	// object storage
	connector, err := a.storageConnector(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Storage = storage.NewGateway(connector)

	// enabling dependencies
	repo := repository.NewRepository(db.DB)
	a.Services = service.NewService(repo, cfg, a.Storage, log)
	h := handlers.NewHandlers(a.Services, cfg, log)

	a.Handler = router.New(h, a.Services.Auth, a.rateLimiter(ctx), cfg, log)

	a.warmUpStorage(ctx)

	return a, nil
}

func (a *Application) storageConnector(ctx context.Context) (storage.Connector, error) {
	switch a.Cfg.StorageDriver {
	case config.StorageGridFS:
		client, err := database.ConnectMongo(ctx, a.Cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("не удалось подключиться к MongoDB: %w", err)
		}
		a.mongo = client
		return storage.GridFSConnector(client, a.Cfg.Mongo), nil
	case config.StorageMinIO:
		return storage.MinIOConnector(a.Cfg.MinIO), nil
	case config.StorageMemory:
		a.Log.Warn("in-memory object storage enabled, uploads are lost on restart")
		return storage.MemoryConnector(storage.NewMemoryStore()), nil
	default:
		return nil, fmt.Errorf("неизвестный STORAGE_DRIVER: %q", a.Cfg.StorageDriver)
	}
}

// rateLimiter prefers Redis so limits are shared between instances and falls
// back to the in-process limiter.
func (a *Application) rateLimiter(ctx context.Context) middleware.Limiter {
	if !a.Cfg.RateLimit.Enabled {
		return nil
	}

	if a.Cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     a.Cfg.Redis.Addr,
			Password: a.Cfg.Redis.Password,
			DB:       a.Cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		err := client.Ping(pingCtx).Err()
		if err == nil {
			a.redis = client
			a.Log.Info("rate limiter uses redis", "addr", a.Cfg.Redis.Addr)
			return middleware.NewRedisRateLimiter(client, a.Cfg.RateLimit)
		}

		a.Log.Warn("redis unavailable, using in-memory rate limiter", "addr", a.Cfg.Redis.Addr, "error", err)
		client.Close()
	}

	a.ipLimiter = middleware.NewIPRateLimiter(a.Cfg.RateLimit.Requests, a.Cfg.RateLimit.Window)
	return a.ipLimiter
}

// warmUpStorage starts the one-time storage initialization without blocking
// startup. Requests arriving earlier share the same attempt.
func (a *Application) warmUpStorage(ctx context.Context) {
	go func() {
		readyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		if _, err := a.Storage.Ready(readyCtx); err != nil {
			a.Log.Warn("object storage not ready yet", "driver", a.Cfg.StorageDriver, "error", err)
			return
		}
		a.Log.Info("object storage ready", "driver", a.Cfg.StorageDriver)
	}()
}

func (a *Application) Close(ctx context.Context) error {
	var errs []error

	if a.ipLimiter != nil {
		a.ipLimiter.Close()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.mongo != nil {
		errs = append(errs, a.mongo.Disconnect(ctx))
	}
	if a.DB != nil {
		errs = append(errs, a.DB.CloseDB())
	}

	return errors.Join(errs...)
}
