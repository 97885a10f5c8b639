package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("ENCRYPTION_KEY", "01234567890123456789012345678901") // 32 bytes
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Scheduler.Spec != "@every 5m" {
		t.Errorf("Scheduler.Spec = %q, want %q", cfg.Scheduler.Spec, "@every 5m")
	}
	if cfg.Sync.LookbackDays != 7 {
		t.Errorf("Sync.LookbackDays = %d, want 7", cfg.Sync.LookbackDays)
	}
	if cfg.Sync.CallTimeout != 30*time.Second {
		t.Errorf("Sync.CallTimeout = %v, want 30s", cfg.Sync.CallTimeout)
	}
	if cfg.Telemetry.SampleRatio != 1 {
		t.Errorf("Telemetry.SampleRatio = %v, want 1", cfg.Telemetry.SampleRatio)
	}
}

func TestLoad_InvalidEncryptionKeyLength(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("ENCRYPTION_KEY", "too-short")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid ENCRYPTION_KEY length, got nil")
	}
}

func TestLoad_MissingEncryptionKey(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("ENCRYPTION_KEY", "")
	os.Unsetenv("ENCRYPTION_KEY")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing ENCRYPTION_KEY, got nil")
	}
}

func TestLoad_InvalidNumbers(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DB_PORT", "not-a-number"},
		{"SCHEDULER_WORKERS", "0"},
		{"SCHEDULER_QUEUE_SIZE", "many"},
		{"SYNC_CONCURRENCY", "0"},
		{"SYNC_LOOKBACK_DAYS", "-1"},
		{"SYNC_CALL_TIMEOUT", "soon"},
		{"SYNC_TRIGGER_DEBOUNCE", "10"},
		{"SYNC_BANK_TIMEZONE", "Mars/Olympus_Mons"},
		{"OTEL_TRACES_SAMPLE_RATIO", "half"},
		{"OTEL_TRACES_SAMPLE_RATIO", "0"},
		{"OTEL_TRACES_SAMPLE_RATIO", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequiredEnvVars(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() expected error for %s=%q, got nil", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_BankURLs(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("BANK_A_URL", "https://bank-a.example/StatementService.asmx")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Banks.BankAURL != "https://bank-a.example/StatementService.asmx" {
		t.Errorf("Banks.BankAURL = %q", cfg.Banks.BankAURL)
	}

	t.Setenv("BANK_B_URL", "bank-b.example/soap")
	if _, err := Load(); err == nil {
		t.Error("Load() expected error for relative BANK_B_URL, got nil")
	}
}

func TestLoad_BankTimeZone(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got := cfg.Sync.BankTimeZone.String(); got != "Europe/Istanbul" {
		t.Errorf("Sync.BankTimeZone = %q, want Europe/Istanbul", got)
	}

	t.Setenv("SYNC_BANK_TIMEZONE", "UTC")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Sync.BankTimeZone != time.UTC {
		t.Errorf("Sync.BankTimeZone = %v, want UTC", cfg.Sync.BankTimeZone)
	}
}

func TestLoad_SchedulerConfig(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("SCHEDULER_WORKERS", "10")
	t.Setenv("SCHEDULER_RUN_ON_STARTUP", "true")
	t.Setenv("SCHEDULER_SPEC", "*/15 * * * *")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Scheduler.Enabled != false {
		t.Error("Scheduler.Enabled should be false")
	}
	if cfg.Scheduler.WorkerCount != 10 {
		t.Errorf("Scheduler.WorkerCount = %d, want 10", cfg.Scheduler.WorkerCount)
	}
	if cfg.Scheduler.RunOnStartup != true {
		t.Error("Scheduler.RunOnStartup should be true")
	}
	if cfg.Scheduler.Spec != "*/15 * * * *" {
		t.Errorf("Scheduler.Spec = %q", cfg.Scheduler.Spec)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	setRequiredEnvVars(t)
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SYNC_LOOKBACK_DAYS=3\nPORT=9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("PORT", "7000")
	t.Setenv("SYNC_LOOKBACK_DAYS", "")
	os.Unsetenv("SYNC_LOOKBACK_DAYS")
	t.Cleanup(func() { os.Unsetenv("SYNC_LOOKBACK_DAYS") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Sync.LookbackDays != 3 {
		t.Errorf("Sync.LookbackDays = %d, want 3 from file", cfg.Sync.LookbackDays)
	}
	if cfg.Server.Port != "7000" {
		t.Errorf("Server.Port = %q, environment must win over file", cfg.Server.Port)
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		defVal   bool
		expected bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"invalid", true, true},   // returns default
		{"invalid", false, false}, // returns default
		{"", true, true},          // empty returns default
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			key := "TEST_BOOL_ENV"
			if tt.value == "" {
				os.Unsetenv(key)
			} else {
				t.Setenv(key, tt.value)
			}

			got := getBoolEnv(key, tt.defVal)
			if got != tt.expected {
				t.Errorf("getBoolEnv(%q, %v) = %v, want %v", tt.value, tt.defVal, got, tt.expected)
			}
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	got := cfg.ConnectionString()
	if got != expected {
		t.Errorf("ConnectionString() = %q, want %q", got, expected)
	}
}
