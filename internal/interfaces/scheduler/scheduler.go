package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"bankledger/internal/domain/banksync"
)

// SyncJobName is the scheduled_jobs row that drives the fleet sync.
const SyncJobName = "bank_statement_sync"

// Definition is the stored schedule of the sync job.
type Definition struct {
	Spec   string
	Active bool
}

// Scheduler submits the fleet sync on a cron schedule and takes on-demand
// requests through the same worker pool.
type Scheduler struct {
	workerPool   *WorkerPool
	runOnStartup bool
	jobProvider  func(context.Context) ([]Job, error)
	definition   func(context.Context) (Definition, error)
	syncer       Syncer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	current  Definition
	schedule cron.Schedule
	nextRun  time.Time
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	// Spec is a cron expression or descriptor such as "@every 5m". It is
	// used until Definition returns something else.
	Spec         string
	WorkerCount  int
	JobDelay     time.Duration
	QueueSize    int
	JobTimeout   time.Duration
	RunOnStartup bool
	// Syncer backs on-demand requests and the default job provider.
	Syncer Syncer
	// JobProvider returns the jobs of one tick. Defaults to a single
	// scheduled fleet sync.
	JobProvider func(context.Context) ([]Job, error)
	// Definition is re-read before every tick. Optional.
	Definition func(context.Context) (Definition, error)
}

// ParseSpec validates a schedule expression.
func ParseSpec(spec string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// NewScheduler creates a new scheduler with the given configuration.
func NewScheduler(config SchedulerConfig) (*Scheduler, error) {
	schedule, err := ParseSpec(config.Spec)
	if err != nil {
		return nil, err
	}

	jobProvider := config.JobProvider
	if jobProvider == nil && config.Syncer != nil {
		syncer := config.Syncer
		jobProvider = func(context.Context) ([]Job, error) {
			return []Job{NewFleetSyncJob(syncer, banksync.TriggerScheduled)}, nil
		}
	}

	workerPool := NewWorkerPool(config.WorkerCount, config.JobDelay, config.QueueSize, config.JobTimeout)
	ctx, cancel := context.WithCancel(context.Background())

	log.Printf("Scheduler initialized with schedule %q", config.Spec)
	log.Printf("Worker pool: %d workers, %v delay between jobs", config.WorkerCount, config.JobDelay)

	return &Scheduler{
		workerPool:   workerPool,
		runOnStartup: config.RunOnStartup,
		jobProvider:  jobProvider,
		definition:   config.Definition,
		syncer:       config.Syncer,
		ctx:          ctx,
		cancel:       cancel,
		current:      Definition{Spec: config.Spec, Active: true},
		schedule:     schedule,
	}, nil
}

// Start launches the scheduler and worker pool.
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	s.workerPool.Start()

	if s.runOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if !s.refreshDefinition().Active {
				log.Println("Scheduler: Sync job is inactive, skipping startup run")
				return
			}
			log.Println("Scheduler: Running initial job batch on startup")
			s.runJobs()
		}()
	}

	s.wg.Add(1)
	go s.scheduleLoop()

	log.Println("Scheduler started")
}

// scheduleLoop sleeps until the next activation of the current schedule.
// The definition is reloaded on every pass, so a changed spec applies from
// the following activation and an inactive definition skips the tick.
func (s *Scheduler) scheduleLoop() {
	defer s.wg.Done()

	fired := false
	for {
		def := s.refreshDefinition()
		if fired {
			if def.Active {
				log.Printf("Scheduler: Triggered at %s", time.Now().Format(time.RFC3339))
				s.runJobs()
			} else {
				log.Println("Scheduler: Sync job is inactive, skipping tick")
			}
		}

		next := s.planNext(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-s.ctx.Done():
			timer.Stop()
			log.Println("Scheduler loop: Context cancelled, shutting down")
			return
		case <-timer.C:
			fired = true
		}
	}
}

// refreshDefinition reloads the stored definition. On a load failure or an
// unparsable spec the last good schedule stays in force.
func (s *Scheduler) refreshDefinition() Definition {
	if s.definition == nil {
		return s.Definition()
	}

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	def, err := s.definition(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("Scheduler: Failed to load schedule, keeping current one: %v", err)
		}
		return s.Definition()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if def.Spec != s.current.Spec {
		schedule, err := ParseSpec(def.Spec)
		if err != nil {
			log.Printf("Scheduler: %v, keeping %q", err, s.current.Spec)
			def.Spec = s.current.Spec
		} else {
			log.Printf("Scheduler: Schedule changed from %q to %q", s.current.Spec, def.Spec)
			s.schedule = schedule
		}
	}
	s.current = def
	return def
}

func (s *Scheduler) planNext(now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRun = s.schedule.Next(now)
	return s.nextRun
}

// runJobs executes the job provider and submits jobs to the worker pool.
func (s *Scheduler) runJobs() {
	if s.jobProvider == nil {
		log.Println("Scheduler: No job provider configured")
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	jobs, err := s.jobProvider(ctx)
	if err != nil {
		log.Printf("Scheduler: Failed to fetch jobs: %v", err)
		return
	}

	if len(jobs) == 0 {
		log.Println("Scheduler: No jobs to process")
		return
	}

	log.Printf("Scheduler: Submitting %d jobs to worker pool", len(jobs))
	s.workerPool.SubmitBatch(jobs)
}

// EnqueueAccount queues a sync of one account.
func (s *Scheduler) EnqueueAccount(accountID string) error {
	if s.syncer == nil {
		return fmt.Errorf("scheduler has no syncer")
	}
	return s.workerPool.Submit(NewAccountSyncJob(accountID, s.syncer))
}

// EnqueueFleet queues an on-demand sync of every active account. It is
// refused while another fleet sync is queued or running.
func (s *Scheduler) EnqueueFleet() error {
	if s.syncer == nil {
		return fmt.Errorf("scheduler has no syncer")
	}
	return s.workerPool.Submit(NewFleetSyncJob(s.syncer, banksync.TriggerOnDemand))
}

// Shutdown gracefully stops the scheduler and worker pool.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	log.Println("Scheduler: Initiating graceful shutdown...")

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Scheduler: Scheduler loop stopped gracefully")
	case <-time.After(timeout):
		log.Println("Scheduler: Timeout waiting for scheduler loop to stop")
	}

	s.workerPool.ShutdownWithTimeout(timeout)

	log.Println("Scheduler: Shutdown complete")
}

// Definition returns the definition currently in force.
func (s *Scheduler) Definition() Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// NextRun returns the planned time of the next tick, zero before Start.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRun
}
