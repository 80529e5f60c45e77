package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN          string `env:"DATABASE_DSN,required=true"`
	RedisURL             string `env:"REDIS_URL,required=true"`
	TransportURL         string `env:"TRANSPORT_URL,required=true"`
	CronSecret           string `env:"CRON_SECRET,required=true"`
	BaseURL              string `env:"BASE_URL,default=http://localhost:8080"`
	APIPort              int    `env:"API_PORT,default=8080"`
	LogLevel             string `env:"LOG_LEVEL,default=info"`
	ProcessBatchLimit    int    `env:"PROCESS_BATCH_LIMIT,default=10"`
	RetryBackoffMinutes  int    `env:"RETRY_BACKOFF_MINUTES,default=15"`
	LeaseMinutes         int    `env:"LEASE_MINUTES,default=10"`
	SweepIntervalMinutes int    `env:"SWEEP_INTERVAL_MINUTES,default=5"`
	SendRatePerSec       int    `env:"SEND_RATE_PER_SEC,default=1"`
	SchedulerTickSeconds int    `env:"SCHEDULER_TICK_SECONDS,default=60"`
	CooldownStrict       bool   `env:"COOLDOWN_STRICT,default=false"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
