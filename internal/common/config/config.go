// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Zones         ZonesConfig             `mapstructure:"zones"`
	Routing       RoutingConfig           `mapstructure:"routing"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Cadastral     CadastralConfig         `mapstructure:"cadastral"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	ZoneIndex  string   `mapstructure:"zone_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Domain Configuration Sections ---

// ZonesConfig holds capacity-model settings for the zone registry.
type ZonesConfig struct {
	SummaryCacheTTL int `mapstructure:"summary_cache_ttl"` // seconds
	MaxBatchRows    int `mapstructure:"max_batch_rows"`
}

// RoutingConfig holds lead-routing settings, including the static
// province fallback table used when no occupancy rows exist yet.
type RoutingConfig struct {
	CentralBucketID  string            `mapstructure:"central_bucket_id"`
	ProvinceFallback map[string]string `mapstructure:"province_fallback"`
	IdempotencyTTL   int               `mapstructure:"idempotency_ttl"` // seconds
}

type NotificationConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	AWSRegion        string `mapstructure:"aws_region"`
	SenderEmail      string `mapstructure:"sender_email"`
	TemplateRegistry string `mapstructure:"template_registry"`
}

// CadastralConfig drives the detached address enrichment pool.
type CadastralConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	PoolSize       int    `mapstructure:"pool_size"`
	QueueSize      int    `mapstructure:"queue_size"`
	StatusTTLHours int    `mapstructure:"status_ttl_hours"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
