package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	MetricsAddress  string
	DatabaseURI     string
	RedisAddress    string
	ProviderAddress string
	ProviderTimeout time.Duration

	WorkerPoolSize int
	MaxRetries     int
	DispatchBatch  int

	FeedReconnectDelay time.Duration
	FeedPollInterval   time.Duration

	ShutdownTimeout time.Duration
}

const (
	defaultRunAddress         = ":8080"
	defaultMetricsAddress     = ":9090"
	defaultProviderTimeout    = 10 * time.Second
	defaultWorkerPoolSize     = 4
	defaultMaxRetries         = 3
	defaultDispatchBatch      = 32
	defaultFeedReconnectDelay = 5 * time.Second
	defaultFeedPollInterval   = 60 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		MetricsAddress:     getString(lookup, "METRICS_ADDRESS", defaultMetricsAddress),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		RedisAddress:       getString(lookup, "REDIS_ADDRESS", ""),
		ProviderAddress:    getString(lookup, "PROVIDER_ADDRESS", ""),
		ProviderTimeout:    getDuration(lookup, "PROVIDER_TIMEOUT", defaultProviderTimeout),
		WorkerPoolSize:     getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		MaxRetries:         getInt(lookup, "MAX_TRANSFER_RETRIES", defaultMaxRetries),
		DispatchBatch:      getInt(lookup, "DISPATCH_BATCH_SIZE", defaultDispatchBatch),
		FeedReconnectDelay: getDuration(lookup, "FEED_RECONNECT_DELAY", defaultFeedReconnectDelay),
		FeedPollInterval:   getDuration(lookup, "FEED_POLL_INTERVAL", defaultFeedPollInterval),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("payout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		providerTimeoutStr = cfg.ProviderTimeout.String()
		reconnectDelayStr  = cfg.FeedReconnectDelay.String()
		pollIntervalStr    = cfg.FeedPollInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.MetricsAddress, "m", cfg.MetricsAddress, "Metrics/health listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "Redis address for the change feed")
	fs.StringVar(&cfg.ProviderAddress, "provider", cfg.ProviderAddress, "Payout provider base URL")
	fs.StringVar(&providerTimeoutStr, "provider-timeout", providerTimeoutStr, "Provider call timeout")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent dispatch workers")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Transfer retry ceiling before terminal failure")
	fs.IntVar(&cfg.DispatchBatch, "dispatch-batch", cfg.DispatchBatch, "Maximum transfers per settlement batch")
	fs.StringVar(&reconnectDelayStr, "feed-reconnect", reconnectDelayStr, "Change feed reconnect delay")
	fs.StringVar(&pollIntervalStr, "feed-poll", pollIntervalStr, "Change feed reconciliation poll interval")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ProviderTimeout, err = time.ParseDuration(providerTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid provider timeout: %w", err)
	}
	if cfg.FeedReconnectDelay, err = time.ParseDuration(reconnectDelayStr); err != nil {
		return nil, fmt.Errorf("invalid feed reconnect delay: %w", err)
	}
	if cfg.FeedPollInterval, err = time.ParseDuration(pollIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid feed poll interval: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.DispatchBatch <= 0 {
		cfg.DispatchBatch = defaultDispatchBatch
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}
	if cfg.FeedReconnectDelay <= 0 {
		cfg.FeedReconnectDelay = defaultFeedReconnectDelay
	}
	if cfg.FeedPollInterval <= 0 {
		cfg.FeedPollInterval = defaultFeedPollInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}
	if cfg.ProviderAddress == "" {
		return nil, fmt.Errorf("payout provider address must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
