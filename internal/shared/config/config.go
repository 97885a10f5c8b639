package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Encryption EncryptionConfig
	Scheduler  SchedulerConfig
	Sync       SyncConfig
	Banks      BanksConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type EncryptionConfig struct {
	Key string
}

type SchedulerConfig struct {
	Enabled      bool
	Spec         string
	WorkerCount  int
	JobDelay     time.Duration
	JobTimeout   time.Duration
	QueueSize    int
	RunOnStartup bool
}

type SyncConfig struct {
	LookbackDays       int
	Concurrency        int
	CallTimeout        time.Duration
	MinRequestInterval time.Duration
	TriggerDebounce    time.Duration
	// BankTimeZone is where the banks keep their wall clock.
	BankTimeZone *time.Location
}

// BanksConfig holds the SOAP endpoint of each bank. An empty URL disables
// that bank's adapter.
type BanksConfig struct {
	BankAURL string
	BankBURL string
	BankCURL string
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	// SampleRatio is the fraction of root traces kept, in (0, 1].
	SampleRatio  float64
}

// Load reads the configuration from the environment. Variables from the
// file named by ENV_FILE (default .env) are applied first without
// overriding anything already set.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	dbMaxOpen, err := getIntEnv("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	dbMaxIdle, err := getIntEnv("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}

	// Parse scheduler configuration
	schedulerWorkers, err := getIntEnv("SCHEDULER_WORKERS", 2)
	if err != nil {
		return nil, err
	}
	schedulerQueueSize, err := getIntEnv("SCHEDULER_QUEUE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	schedulerJobDelay, err := getDurationEnv("SCHEDULER_JOB_DELAY", 0)
	if err != nil {
		return nil, err
	}
	schedulerJobTimeout, err := getDurationEnv("SCHEDULER_JOB_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	// Parse sync configuration
	lookbackDays, err := getIntEnv("SYNC_LOOKBACK_DAYS", 7)
	if err != nil {
		return nil, err
	}
	concurrency, err := getIntEnv("SYNC_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	callTimeout, err := getDurationEnv("SYNC_CALL_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	minInterval, err := getDurationEnv("SYNC_MIN_REQUEST_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}
	debounce, err := getDurationEnv("SYNC_TRIGGER_DEBOUNCE", 30*time.Second)
	if err != nil {
		return nil, err
	}
	bankTZ, err := getLocationEnv("SYNC_BANK_TIMEZONE", "Europe/Istanbul")
	if err != nil {
		return nil, err
	}

	sampleRatio, err := getFloatEnv("OTEL_TRACES_SAMPLE_RATIO", 1)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         dbPort,
			User:         getEnv("DB_USER", "bankledger"),
			Password:     getEnv("DB_PASSWORD", ""),
			DBName:       getEnv("DB_NAME", "bankledger"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: dbMaxOpen,
			MaxIdleConns: dbMaxIdle,
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:      getBoolEnv("SCHEDULER_ENABLED", true),
			Spec:         getEnv("SCHEDULER_SPEC", "@every 5m"),
			WorkerCount:  schedulerWorkers,
			JobDelay:     schedulerJobDelay,
			JobTimeout:   schedulerJobTimeout,
			QueueSize:    schedulerQueueSize,
			RunOnStartup: getBoolEnv("SCHEDULER_RUN_ON_STARTUP", false),
		},
		Sync: SyncConfig{
			LookbackDays:       lookbackDays,
			Concurrency:        concurrency,
			CallTimeout:        callTimeout,
			MinRequestInterval: minInterval,
			TriggerDebounce:    debounce,
			BankTimeZone:       bankTZ,
		},
		Banks: BanksConfig{
			BankAURL: getEnv("BANK_A_URL", ""),
			BankBURL: getEnv("BANK_B_URL", ""),
			BankCURL: getEnv("BANK_C_URL", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "bankledger-syncd"),
			Environment:  getEnv("OTEL_ENVIRONMENT", "development"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			SampleRatio:  sampleRatio,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Encryption.Key == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(c.Encryption.Key) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes")
	}
	if c.Scheduler.WorkerCount < 1 {
		return fmt.Errorf("SCHEDULER_WORKERS must be at least 1")
	}
	if c.Scheduler.QueueSize < 1 {
		return fmt.Errorf("SCHEDULER_QUEUE_SIZE must be at least 1")
	}
	if strings.TrimSpace(c.Scheduler.Spec) == "" {
		return fmt.Errorf("SCHEDULER_SPEC must not be empty")
	}
	if c.Sync.LookbackDays < 0 {
		return fmt.Errorf("SYNC_LOOKBACK_DAYS must not be negative")
	}
	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("SYNC_CONCURRENCY must be at least 1")
	}
	if c.Sync.CallTimeout <= 0 {
		return fmt.Errorf("SYNC_CALL_TIMEOUT must be positive")
	}
	if c.Telemetry.SampleRatio <= 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLE_RATIO must be in (0, 1]")
	}
	for name, raw := range map[string]string{
		"BANK_A_URL": c.Banks.BankAURL,
		"BANK_B_URL": c.Banks.BankBURL,
		"BANK_C_URL": c.Banks.BankCURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL", name)
		}
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		log.Printf("Config: loaded %s", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloatEnv(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getLocationEnv(key, defaultValue string) (*time.Location, error) {
	loc, err := time.LoadLocation(getEnv(key, defaultValue))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return loc, nil
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
