// internal/workers/zones/zone-summary/config.go
package zonesummary

import "time"

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  30 * time.Second,
		CacheTTL: 60 * time.Second,
	}
}
