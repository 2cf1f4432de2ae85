package notify

import "time"

// Config represents the configuration for the email relay client
type Config struct {
	// BaseURL is the relay API base URL, e.g. https://mail.example.com/v1
	BaseURL string

	// APIKey is sent as a bearer token
	APIKey string

	// From is the sender address of every message
	From string

	// Timeout bounds a single HTTP call
	Timeout time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" || c.APIKey == "" || c.From == "" {
		return ErrInvalidConfig
	}
	return nil
}
