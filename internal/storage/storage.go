package storage

import (
	"context"

	"github.com/AdamLovattDevOps/slow-wifi/internal/storage/models"
)

// Storage defines the interface for the run archive.
type Storage interface {
	// Run operations
	SaveRun(ctx context.Context, run *models.Run, experiments []models.Experiment) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*models.Run, error)
	GetExperiments(ctx context.Context, runID string) ([]models.Experiment, error)

	// Settings operations (persisted flag defaults)
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Close closes the storage connection
	Close() error
}
