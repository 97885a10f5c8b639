package main

import (
	"log"

	"bankledger/internal/domain/account"
	"bankledger/internal/domain/banksync"
	"bankledger/internal/domain/institution"
	"bankledger/internal/domain/transaction"
	"bankledger/internal/infrastructure/bankapi"
	"bankledger/internal/infrastructure/crypto"
	"bankledger/internal/infrastructure/postgres"
	"bankledger/internal/shared/config"
)

// App holds the components the admin commands work with.
type App struct {
	Config *config.Config
	DB     *postgres.DB

	Accounts     *account.Service
	Institutions *institution.Service
	Transactions *postgres.TransactionRepository
	Runs         *postgres.SyncRunRepository
	Jobs         *postgres.ScheduledJobRepository
	Orchestrator *banksync.Orchestrator
}

// NewApp opens the database and wires the services.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := postgres.New(cfg.Database.ConnectionString(), postgres.PoolConfig{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	accounts := account.NewService(postgres.NewAccountRepository(db), encryptor)
	runs := postgres.NewSyncRunRepository(db)

	var adapters []banksync.Adapter
	opts := bankapi.Options{Timeout: cfg.Sync.CallTimeout, MinInterval: cfg.Sync.MinRequestInterval}
	if cfg.Banks.BankAURL != "" {
		adapters = append(adapters, bankapi.NewAdapterA(cfg.Banks.BankAURL, opts))
	}
	if cfg.Banks.BankBURL != "" {
		adapters = append(adapters, bankapi.NewAdapterB(cfg.Banks.BankBURL, opts))
	}
	if cfg.Banks.BankCURL != "" {
		adapters = append(adapters, bankapi.NewAdapterC(cfg.Banks.BankCURL, opts))
	}

	orchestrator := banksync.NewOrchestrator(
		banksync.Config{
			LookbackDays: cfg.Sync.LookbackDays,
			Concurrency:  cfg.Sync.Concurrency,
			CallTimeout:  cfg.Sync.CallTimeout,
			Location:     cfg.Sync.BankTimeZone,
		},
		accounts,
		transaction.NewNormalizer(),
		transaction.NewReconciler(postgres.NewLedgerStore(db)),
		runs,
		adapters...,
	)

	return &App{
		Config:       cfg,
		DB:           db,
		Accounts:     accounts,
		Institutions: institution.NewService(postgres.NewInstitutionRepository(db)),
		Transactions: postgres.NewTransactionRepository(db),
		Runs:         runs,
		Jobs:         postgres.NewScheduledJobRepository(db),
		Orchestrator: orchestrator,
	}, nil
}

// Close releases the database pool.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}
