// internal/workers/notification/notify-lead/config.go
package notifylead

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled          bool          `mapstructure:"enabled"`
	Timeout          time.Duration `mapstructure:"timeout"`
	SenderEmail      string        `mapstructure:"sender_email"`
	TemplateRegistry string        `mapstructure:"template_registry"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Timeout:     30 * time.Second,
		SenderEmail: "noreply@example.com",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Enabled && c.SenderEmail == "" {
		return fmt.Errorf("sender_email is required")
	}
	return nil
}
