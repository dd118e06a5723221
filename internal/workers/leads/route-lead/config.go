// internal/workers/leads/route-lead/config.go
package routelead

import "time"

type Config struct {
	Timeout        time.Duration
	IdempotencyTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		IdempotencyTTL: 24 * time.Hour,
	}
}
