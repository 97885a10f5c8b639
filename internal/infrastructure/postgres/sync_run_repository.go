package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bankledger/internal/domain/bank"
	"bankledger/internal/domain/banksync"
)

// SyncRunRepository persists run reports. It implements banksync.RunRecorder.
type SyncRunRepository struct {
	db *DB
}

// NewSyncRunRepository creates a new PostgreSQL sync run repository
func NewSyncRunRepository(db *DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// RecordRun stores the run and one row per account attempt atomically.
func (r *SyncRunRepository) RecordRun(ctx context.Context, report *banksync.Report) error {
	return r.db.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sync_runs (id, trigger, started_at, finished_at, succeeded, failed)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, report.RunID, string(report.Trigger), report.StartedAt, report.FinishedAt, report.Succeeded(), report.Failed())
		if err != nil {
			return fmt.Errorf("failed to insert sync run: %w", err)
		}

		for _, res := range report.Results {
			var failedStage sql.NullString
			if res.Status == banksync.StatusFailed {
				failedStage = nullString(res.Stage.String())
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO sync_run_accounts (run_id, account_id, variant, status, failed_stage, reason,
					fetched, inserted, skipped, duration_ms)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, report.RunID, res.AccountID, res.Variant.String(), string(res.Status), failedStage,
				nullString(res.Reason), res.Fetched, res.Inserted, res.Skipped, res.Duration.Milliseconds())
			if err != nil {
				return fmt.Errorf("failed to insert sync run account %s: %w", res.AccountID, err)
			}
		}
		return nil
	})
}

// ListRecent returns the latest runs, newest first, with their account results.
func (r *SyncRunRepository) ListRecent(ctx context.Context, limit int) ([]*banksync.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, trigger, started_at, finished_at
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var reports []*banksync.Report
	for rows.Next() {
		var report banksync.Report
		var trigger string
		if err := rows.Scan(&report.RunID, &trigger, &report.StartedAt, &report.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		report.Trigger = banksync.Trigger(trigger)
		reports = append(reports, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}
	rows.Close()

	for _, report := range reports {
		results, err := r.listResults(ctx, report.RunID)
		if err != nil {
			return nil, err
		}
		report.Results = results
	}
	return reports, nil
}

func (r *SyncRunRepository) listResults(ctx context.Context, runID string) ([]banksync.AccountResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id, variant, status, failed_stage, reason, fetched, inserted, skipped, duration_ms
		FROM sync_run_accounts
		WHERE run_id = $1
		ORDER BY account_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run accounts: %w", err)
	}
	defer rows.Close()

	var results []banksync.AccountResult
	for rows.Next() {
		var res banksync.AccountResult
		var variant, status string
		var failedStage, reason sql.NullString
		var durationMS int64

		err := rows.Scan(&res.AccountID, &variant, &status, &failedStage, &reason,
			&res.Fetched, &res.Inserted, &res.Skipped, &durationMS)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run account: %w", err)
		}

		// A variant removed since the run was recorded stays zero.
		res.Variant, _ = bank.ParseVariant(variant)
		res.Status = banksync.Status(status)
		res.Reason = reason.String
		res.Duration = time.Duration(durationMS) * time.Millisecond
		res.Stage = banksync.StageSucceeded
		if failedStage.Valid {
			stage, err := banksync.ParseStage(failedStage.String)
			if err != nil {
				return nil, fmt.Errorf("run %s account %s: %w", runID, res.AccountID, err)
			}
			res.Stage = stage
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run accounts: %w", err)
	}
	return results, nil
}
