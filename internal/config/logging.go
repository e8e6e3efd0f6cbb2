package config

import "github.com/caarlos0/env/v11"

// LogConfig drives the zerolog global logger and the sink it shares with the
// HTTP request logger. Sampling exists to tame the per-bet debug lines the
// settlement drainer emits under load.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`

	// File replaces stdout when set; the node truncates it in place once it
	// passes MaxMB so an unattended instance cannot fill the disk.
	File  string `env:"LOG_FILE"`
	MaxMB int    `env:"LOG_MAX_MB" envDefault:"10"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	err := env.Parse(&cfg)
	return cfg, err
}
