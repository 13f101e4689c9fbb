package config

import (
	"testing"
	"time"
)

func env(vars map[string]string) envLookup {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(nil, env(map[string]string{
		"DATABASE_URI":     "postgres://localhost/payout",
		"PROVIDER_ADDRESS": "http://provider.local",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RunAddress != ":8080" {
		t.Errorf("unexpected run address %q", cfg.RunAddress)
	}
	if cfg.MetricsAddress != ":9090" {
		t.Errorf("unexpected metrics address %q", cfg.MetricsAddress)
	}
	if cfg.WorkerPoolSize != 4 || cfg.MaxRetries != 3 || cfg.DispatchBatch != 32 {
		t.Errorf("unexpected pipeline defaults: %+v", cfg)
	}
	if cfg.ProviderTimeout != 10*time.Second {
		t.Errorf("unexpected provider timeout %v", cfg.ProviderTimeout)
	}
	if cfg.FeedReconnectDelay != 5*time.Second || cfg.FeedPollInterval != 60*time.Second {
		t.Errorf("unexpected feed defaults: %+v", cfg)
	}
	if cfg.RedisAddress != "" {
		t.Errorf("redis must default to disabled, got %q", cfg.RedisAddress)
	}
}

func TestLoadEnvironment(t *testing.T) {
	cfg, err := load(nil, env(map[string]string{
		"DATABASE_URI":         "postgres://localhost/payout",
		"PROVIDER_ADDRESS":     "http://provider.local",
		"RUN_ADDRESS":          ":9000",
		"REDIS_ADDRESS":        "redis:6379",
		"WORKER_POOL_SIZE":     "8",
		"MAX_TRANSFER_RETRIES": "5",
		"PROVIDER_TIMEOUT":     "3s",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RunAddress != ":9000" {
		t.Errorf("unexpected run address %q", cfg.RunAddress)
	}
	if cfg.RedisAddress != "redis:6379" {
		t.Errorf("unexpected redis address %q", cfg.RedisAddress)
	}
	if cfg.WorkerPoolSize != 8 || cfg.MaxRetries != 5 {
		t.Errorf("environment overrides lost: %+v", cfg)
	}
	if cfg.ProviderTimeout != 3*time.Second {
		t.Errorf("unexpected provider timeout %v", cfg.ProviderTimeout)
	}
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	args := []string{
		"-a", ":7070",
		"-d", "postgres://flag/payout",
		"-provider", "http://flag-provider",
		"-max-retries", "7",
		"-provider-timeout", "2s",
	}
	cfg, err := load(args, env(map[string]string{
		"RUN_ADDRESS":  ":9000",
		"DATABASE_URI": "postgres://env/payout",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RunAddress != ":7070" {
		t.Errorf("flag must win over environment, got %q", cfg.RunAddress)
	}
	if cfg.DatabaseURI != "postgres://flag/payout" {
		t.Errorf("unexpected database URI %q", cfg.DatabaseURI)
	}
	if cfg.ProviderAddress != "http://flag-provider" {
		t.Errorf("unexpected provider address %q", cfg.ProviderAddress)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("unexpected retry ceiling %d", cfg.MaxRetries)
	}
	if cfg.ProviderTimeout != 2*time.Second {
		t.Errorf("unexpected provider timeout %v", cfg.ProviderTimeout)
	}
}

func TestLoadRequiresDatabaseURI(t *testing.T) {
	if _, err := load(nil, env(map[string]string{"PROVIDER_ADDRESS": "http://provider.local"})); err == nil {
		t.Fatal("expected error without a database URI")
	}
}

func TestLoadRequiresProviderAddress(t *testing.T) {
	if _, err := load(nil, env(map[string]string{"DATABASE_URI": "postgres://localhost/payout"})); err == nil {
		t.Fatal("expected error without a provider address")
	}
}

func TestLoadSanitizesNonPositiveValues(t *testing.T) {
	cfg, err := load(nil, env(map[string]string{
		"DATABASE_URI":     "postgres://localhost/payout",
		"PROVIDER_ADDRESS": "http://provider.local",
		"WORKER_POOL_SIZE": "-2",
		"PROVIDER_TIMEOUT": "0s",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WorkerPoolSize != 4 {
		t.Errorf("non-positive pool size must fall back to default, got %d", cfg.WorkerPoolSize)
	}
	if cfg.ProviderTimeout != 10*time.Second {
		t.Errorf("zero timeout must fall back to default, got %v", cfg.ProviderTimeout)
	}
}
