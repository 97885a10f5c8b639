package main

import (
	"context"
	"log"

	"bankledger/internal/domain/account"
	"bankledger/internal/domain/banksync"
	"bankledger/internal/domain/transaction"
	"bankledger/internal/infrastructure/bankapi"
	"bankledger/internal/infrastructure/crypto"
	"bankledger/internal/infrastructure/postgres"
	"bankledger/internal/interfaces/scheduler"
	"bankledger/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	Accounts     *account.Service
	Orchestrator *banksync.Orchestrator
	Transactions *postgres.TransactionRepository
	Runs         *postgres.SyncRunRepository
	Jobs         *postgres.ScheduledJobRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString(), postgres.PoolConfig{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	accountRepo := postgres.NewAccountRepository(db)
	runRepo := postgres.NewSyncRunRepository(db)
	accounts := account.NewService(accountRepo, encryptor)

	reconciler := transaction.NewReconciler(postgres.NewLedgerStore(db))
	orchestrator := banksync.NewOrchestrator(
		banksync.Config{
			LookbackDays: cfg.Sync.LookbackDays,
			Concurrency:  cfg.Sync.Concurrency,
			CallTimeout:  cfg.Sync.CallTimeout,
			Location:     cfg.Sync.BankTimeZone,
		},
		accounts,
		transaction.NewNormalizer(),
		reconciler,
		runRepo,
		newAdapters(cfg)...,
	)

	return &Dependencies{
		DB:           db,
		Accounts:     accounts,
		Orchestrator: orchestrator,
		Transactions: postgres.NewTransactionRepository(db),
		Runs:         runRepo,
		Jobs:         postgres.NewScheduledJobRepository(db),
	}, nil
}

// newAdapters builds an adapter for every bank with a configured endpoint.
func newAdapters(cfg *config.Config) []banksync.Adapter {
	opts := bankapi.Options{
		Timeout:     cfg.Sync.CallTimeout,
		MinInterval: cfg.Sync.MinRequestInterval,
	}

	var adapters []banksync.Adapter
	if cfg.Banks.BankAURL != "" {
		adapters = append(adapters, bankapi.NewAdapterA(cfg.Banks.BankAURL, opts))
	}
	if cfg.Banks.BankBURL != "" {
		adapters = append(adapters, bankapi.NewAdapterB(cfg.Banks.BankBURL, opts))
	}
	if cfg.Banks.BankCURL != "" {
		adapters = append(adapters, bankapi.NewAdapterC(cfg.Banks.BankCURL, opts))
	}
	for _, a := range adapters {
		log.Printf("Sync: %s adapter enabled", a.Variant())
	}
	if len(adapters) == 0 {
		log.Println("Warning: no bank endpoints configured, every sync will fail")
	}
	return adapters
}

// NewScheduler seeds the scheduled job row from configuration and builds a
// scheduler that re-reads it on every tick.
func NewScheduler(ctx context.Context, deps *Dependencies, cfg *config.Config) (*scheduler.Scheduler, error) {
	job, err := deps.Jobs.EnsureDefault(ctx, scheduler.SyncJobName, cfg.Scheduler.Spec)
	if err != nil {
		return nil, err
	}
	if job.Spec != cfg.Scheduler.Spec {
		log.Printf("Scheduler: stored spec %q overrides SCHEDULER_SPEC %q", job.Spec, cfg.Scheduler.Spec)
	}

	return scheduler.NewScheduler(scheduler.SchedulerConfig{
		Spec:         job.Spec,
		WorkerCount:  cfg.Scheduler.WorkerCount,
		JobDelay:     cfg.Scheduler.JobDelay,
		QueueSize:    cfg.Scheduler.QueueSize,
		JobTimeout:   cfg.Scheduler.JobTimeout,
		RunOnStartup: cfg.Scheduler.RunOnStartup,
		Syncer:       deps.Orchestrator,
		Definition: func(ctx context.Context) (scheduler.Definition, error) {
			job, err := deps.Jobs.Get(ctx, scheduler.SyncJobName)
			if err != nil {
				return scheduler.Definition{}, err
			}
			return scheduler.Definition{Spec: job.Spec, Active: job.Active}, nil
		},
	})
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
