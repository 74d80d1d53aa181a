package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AdamLovattDevOps/slow-wifi/internal/storage/models"
	apperrors "github.com/AdamLovattDevOps/slow-wifi/pkg/errors"
)

// DB implements the Storage interface using SQLite
type DB struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	storage := &DB{db: db}
	if err := runMigrations(storage); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return storage, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// SaveRun stores a run and its experiment rows atomically.
func (d *DB) SaveRun(ctx context.Context, run *models.Run, experiments []models.Experiment) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, kind, target, started_at, finished_at, summary)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Kind, run.Target, run.StartedAt, run.FinishedAt, run.Summary)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for i, exp := range experiments {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO experiments (run_id, position, setting_name, setting_value,
				packets_sent, packets_lost, avg_latency_ms, min_latency_ms,
				max_latency_ms, avg_jitter_ms, spike_count, spike_percentage)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, exp.SettingName, exp.SettingValue,
			exp.PacketsSent, exp.PacketsLost, exp.AvgLatencyMs, exp.MinLatencyMs,
			exp.MaxLatencyMs, exp.AvgJitterMs, exp.SpikeCount, exp.SpikePercentage)
		if err != nil {
			return fmt.Errorf("failed to save experiment %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetRun fetches one archived run by id.
func (d *DB) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run := &models.Run{}
	err := d.db.QueryRowContext(ctx, `
		SELECT id, kind, target, started_at, finished_at, summary
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Kind, &run.Target, &run.StartedAt, &run.FinishedAt, &run.Summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, kind, target, started_at, finished_at, summary
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run := &models.Run{}
		if err := rows.Scan(&run.ID, &run.Kind, &run.Target, &run.StartedAt, &run.FinishedAt, &run.Summary); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetExperiments returns a run's experiment rows in battery order.
func (d *DB) GetExperiments(ctx context.Context, runID string) ([]models.Experiment, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, run_id, position, setting_name, setting_value,
			packets_sent, packets_lost, avg_latency_ms, min_latency_ms,
			max_latency_ms, avg_jitter_ms, spike_count, spike_percentage
		FROM experiments WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var experiments []models.Experiment
	for rows.Next() {
		var exp models.Experiment
		if err := rows.Scan(&exp.ID, &exp.RunID, &exp.Position, &exp.SettingName, &exp.SettingValue,
			&exp.PacketsSent, &exp.PacketsLost, &exp.AvgLatencyMs, &exp.MinLatencyMs,
			&exp.MaxLatencyMs, &exp.AvgJitterMs, &exp.SpikeCount, &exp.SpikePercentage); err != nil {
			return nil, err
		}
		experiments = append(experiments, exp)
	}
	return experiments, rows.Err()
}

// GetSetting returns a persisted application setting.
func (d *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting not found: %s", key)
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting stores a persisted application setting.
func (d *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}
