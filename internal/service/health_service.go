package service

import (
	"context"
	"time"

	"socialposts/internal/repository"
	"socialposts/internal/storage"
)

const healthCheckTimeout = 5 * time.Second

// StoragePinger reports whether the object store can be reached.
type StoragePinger interface {
	Ready(ctx context.Context) (storage.Store, error)
}

type HealthReport struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Tables    int       `json:"tables"`
	Storage   string    `json:"storage"`
	Driver    string    `json:"storageDriver"`
	Timestamp time.Time `json:"timestamp"`
}

func (r HealthReport) Healthy() bool {
	return r.Status == "ok"
}

type HealthService interface {
	Check(ctx context.Context) HealthReport
}

type healthService struct {
	tablesRepo repository.TablesRepository
	storage    StoragePinger
	driver     string
}

func NewHealthService(tablesRepo repository.TablesRepository, pinger StoragePinger, driver string) HealthService {
	return &healthService{tablesRepo: tablesRepo, storage: pinger, driver: driver}
}

func (h *healthService) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	report := HealthReport{
		Status:    "ok",
		Database:  "ok",
		Storage:   "ok",
		Driver:    h.driver,
		Timestamp: time.Now().UTC(),
	}

	if err := h.tablesRepo.Ping(ctx); err != nil {
		report.Status = "degraded"
		report.Database = "unavailable"
	} else if count, err := h.tablesRepo.CountTablesDB(ctx); err == nil {
		report.Tables = count
	}

	if _, err := h.storage.Ready(ctx); err != nil {
		report.Status = "degraded"
		report.Storage = "unavailable"
	}

	return report
}
