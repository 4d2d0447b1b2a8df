package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN         string        `env:"DATABASE_DSN,required=true"`
	RedisURL            string        `env:"REDIS_URL,required=true"`
	GatewayURL          string        `env:"GATEWAY_URL,required=true"`
	Lookahead           time.Duration `env:"LOOKAHEAD,default=24h"`
	TriggerInterval     time.Duration `env:"TRIGGER_INTERVAL,default=1h"`
	MaxAttempts         int           `env:"MAX_ATTEMPTS,default=5"`
	FlightConcurrency   int           `env:"FLIGHT_CONCURRENCY,default=4"`
	DispatchConcurrency int           `env:"DISPATCH_CONCURRENCY,default=8"`
	GatewayTimeout      time.Duration `env:"GATEWAY_TIMEOUT,default=10s"`
	RateLimitPerSec     int           `env:"RATE_LIMIT_PER_SEC,default=100"`
	APIPort             int           `env:"API_PORT,default=8080"`
	LogLevel            string        `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Lookahead <= 0 {
		return nil, fmt.Errorf("LOOKAHEAD must be positive, got %s", cfg.Lookahead)
	}
	if cfg.TriggerInterval <= 0 {
		return nil, fmt.Errorf("TRIGGER_INTERVAL must be positive, got %s", cfg.TriggerInterval)
	}
	return &cfg, nil
}
