// internal/workers/zones/ingest-zone-batch/config.go
package ingestzonebatch

import "time"

type Config struct {
	Timeout      time.Duration
	MaxBatchRows int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      60 * time.Second,
		MaxBatchRows: 10000,
	}
}
