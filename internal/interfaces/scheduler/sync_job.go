package scheduler

import (
	"context"
	"fmt"
	"log"

	"bankledger/internal/domain/banksync"
)

const fleetJobKey = "fleet"

// Syncer runs statement syncs. *banksync.Orchestrator implements it.
type Syncer interface {
	SyncAll(ctx context.Context, trigger banksync.Trigger) (*banksync.Report, error)
	SyncAccount(ctx context.Context, accountID string) (*banksync.Report, error)
}

// FleetSyncJob syncs every active account. Only one can be queued or
// running at a time, so a slow run is never overlapped by the next tick.
type FleetSyncJob struct {
	syncer  Syncer
	trigger banksync.Trigger
}

// NewFleetSyncJob creates a new fleet sync job
func NewFleetSyncJob(syncer Syncer, trigger banksync.Trigger) *FleetSyncJob {
	return &FleetSyncJob{syncer: syncer, trigger: trigger}
}

// Execute runs the fleet sync. Per-account failures are part of the report
// and do not fail the job.
func (j *FleetSyncJob) Execute(ctx context.Context) error {
	report, err := j.syncer.SyncAll(ctx, j.trigger)
	if err != nil {
		return fmt.Errorf("fleet sync failed: %w", err)
	}
	if report.Failed() > 0 {
		log.Printf("Scheduler: fleet run %s finished with %d failed account(s)", report.RunID, report.Failed())
	}
	return nil
}

func (j *FleetSyncJob) Key() string { return fleetJobKey }

func (j *FleetSyncJob) Description() string {
	return fmt.Sprintf("%s fleet sync", j.trigger)
}

// AccountSyncJob syncs a single account on demand.
type AccountSyncJob struct {
	accountID string
	syncer    Syncer
}

// NewAccountSyncJob creates a new single-account sync job
func NewAccountSyncJob(accountID string, syncer Syncer) *AccountSyncJob {
	return &AccountSyncJob{accountID: accountID, syncer: syncer}
}

// Execute runs the account sync. A failed attempt is returned as the job error.
func (j *AccountSyncJob) Execute(ctx context.Context) error {
	report, err := j.syncer.SyncAccount(ctx, j.accountID)
	if err != nil {
		return fmt.Errorf("account sync failed: %w", err)
	}
	if res, ok := report.Result(j.accountID); ok && res.Status == banksync.StatusFailed {
		return fmt.Errorf("account sync failed at %s: %w", res.Stage, res.Err)
	}
	return nil
}

func (j *AccountSyncJob) Key() string { return "account:" + j.accountID }

func (j *AccountSyncJob) Description() string {
	return fmt.Sprintf("sync of account %s", j.accountID)
}
