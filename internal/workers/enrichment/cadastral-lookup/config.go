// internal/workers/enrichment/cadastral-lookup/config.go
package cadastrallookup

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
