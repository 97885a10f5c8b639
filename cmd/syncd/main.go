package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankledger/internal/infrastructure/postgres"
	"bankledger/internal/infrastructure/postgres/listener"
	"bankledger/internal/interfaces/scheduler"
	"bankledger/internal/shared/config"
	"bankledger/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			SampleRatio:  cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				log.Printf("Telemetry shutdown error: %v", err)
			}
		}()
	}

	if _, err := postgres.Migrate(cfg.Database.ConnectionString()); err != nil {
		return err
	}

	deps, err := NewDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	var sched *scheduler.Scheduler
	var syncListener *listener.SyncListener
	if cfg.Scheduler.Enabled {
		sched, err = NewScheduler(ctx, deps, cfg)
		if err != nil {
			return err
		}
		sched.Start()

		syncListener = listener.NewSyncListener(cfg.Database.ConnectionString(), sched, cfg.Sync.TriggerDebounce)
		syncListener.Start(ctx)
	} else {
		log.Println("Scheduler is disabled")
	}

	srv := StartServer(cfg.Server.Host+":"+cfg.Server.Port, SetupRoutes(deps, sched))

	<-ctx.Done()
	log.Println("Shutdown signal received")

	if syncListener != nil {
		syncListener.Stop()
	}
	GracefulShutdown(srv, sched, shutdownTimeout)
	return nil
}
