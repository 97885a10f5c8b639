package listener

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/patrickmn/go-cache"
)

const (
	// Channel is the NOTIFY channel carrying on-demand sync requests.
	Channel = "bank_account_sync"
	// FleetPayload requests a sync of every active account.
	FleetPayload = "*"

	reconnectInterval = 5 * time.Second
	pingInterval      = 90 * time.Second
)

// Enqueuer accepts sync requests. Both calls must not block on the sync itself.
type Enqueuer interface {
	EnqueueAccount(accountID string) error
	EnqueueFleet() error
}

// Execer is satisfied by *postgres.DB and *sql.DB.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Notify publishes a sync request for target, an account id or FleetPayload.
func Notify(ctx context.Context, db Execer, target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("sync target is required")
	}
	if _, err := db.ExecContext(ctx, `SELECT request_bank_account_sync($1)`, target); err != nil {
		return fmt.Errorf("failed to notify %s: %w", Channel, err)
	}
	return nil
}

// SyncListener turns NOTIFY bank_account_sync messages into queued sync jobs.
// Repeated requests for the same target inside the debounce window are dropped.
type SyncListener struct {
	connStr    string
	enqueuer   Enqueuer
	recent     *cache.Cache
	shutdownCh chan struct{}
	done       chan struct{}
}

// NewSyncListener creates a new listener for on-demand sync requests
func NewSyncListener(connStr string, enqueuer Enqueuer, debounce time.Duration) *SyncListener {
	if debounce <= 0 {
		debounce = 30 * time.Second
	}
	return &SyncListener{
		connStr:    connStr,
		enqueuer:   enqueuer,
		recent:     cache.New(debounce, 2*debounce),
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins listening for notifications in a background goroutine
func (l *SyncListener) Start(ctx context.Context) {
	go l.listen(ctx)
	log.Println("Sync listener: started")
}

// Stop gracefully shuts down the listener
func (l *SyncListener) Stop() {
	close(l.shutdownCh)
	<-l.done
	log.Println("Sync listener: stopped")
}

func (l *SyncListener) listen(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
			l.connectAndListen(ctx)
		}

		// Wait before reconnecting
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(reconnectInterval):
			log.Println("Sync listener: reconnecting to PostgreSQL...")
		}
	}
}

func (l *SyncListener) connectAndListen(ctx context.Context) {
	listener := pq.NewListener(l.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			log.Println("Sync listener: connected")
		case pq.ListenerEventDisconnected:
			log.Printf("Sync listener: disconnected: %v", err)
		case pq.ListenerEventReconnected:
			log.Println("Sync listener: reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			log.Printf("Sync listener: connection attempt failed: %v", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(Channel); err != nil {
		log.Printf("Sync listener: failed to listen on %s: %v", Channel, err)
		return
	}
	log.Printf("Sync listener: listening on %s", Channel)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			if n == nil {
				// Connection lost; pq re-establishes it and we re-LISTEN.
				return
			}
			l.handlePayload(n.Extra)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					log.Printf("Sync listener: ping failed: %v", err)
				}
			}()
		}
	}
}

// handlePayload enqueues the request unless an identical one was seen
// within the debounce window. It reports whether a job was enqueued.
func (l *SyncListener) handlePayload(payload string) bool {
	target := strings.TrimSpace(payload)
	if target == "" {
		log.Printf("Sync listener: ignoring empty payload")
		return false
	}

	if err := l.recent.Add(target, struct{}{}, cache.DefaultExpiration); err != nil {
		log.Printf("Sync listener: dropping repeated request for %s", target)
		return false
	}

	var err error
	if target == FleetPayload {
		err = l.enqueuer.EnqueueFleet()
	} else {
		err = l.enqueuer.EnqueueAccount(target)
	}
	if err != nil {
		// Let a retry through immediately.
		l.recent.Delete(target)
		log.Printf("Sync listener: failed to enqueue %s: %v", target, err)
		return false
	}

	log.Printf("Sync listener: enqueued sync for %s", target)
	return true
}
