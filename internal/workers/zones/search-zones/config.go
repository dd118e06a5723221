// internal/workers/zones/search-zones/config.go
package searchzones

import "time"

type Config struct {
	Timeout   time.Duration
	ZoneIndex string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		ZoneIndex: "zones",
	}
}
