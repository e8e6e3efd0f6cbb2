package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	Port        string `env:"PORT" envDefault:"3001"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite:./vfnode.db"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`

	SettlementBatchSize  int           `env:"SETTLEMENT_BATCH_SIZE" envDefault:"50"`
	SettlementInterval   time.Duration `env:"SETTLEMENT_INTERVAL" envDefault:"10s"`
	SettlementMaxRetries int           `env:"SETTLEMENT_MAX_RETRIES" envDefault:"3"`

	MockDriverFailureRate float64 `env:"MOCK_DRIVER_FAILURE_RATE" envDefault:"0.02"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
