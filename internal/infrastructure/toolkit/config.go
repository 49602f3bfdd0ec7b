package toolkit

import (
	"fmt"
	"time"
)

// Config holds the connection settings for a remote signing toolkit
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Validate checks the configuration for required fields
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("toolkit base URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("toolkit API key is required")
	}
	return nil
}

// applyDefaults fills optional settings
func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}
