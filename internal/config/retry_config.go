package config

import "time"

// RetryConfig defines how requests to the crawl backend are retried
type RetryConfig struct {
	// Attempts after the first; 0 disables retries
	MaxRetries int `json:"max_retries" yaml:"max_retries" validate:"min=0,max=10"`
	// Initial backoff, doubled per attempt
	BaseDelay Duration `json:"base_delay,omitempty" yaml:"base_delay,omitempty" validate:"min=0"`
	// Upper bound for a single backoff
	MaxDelay Duration `json:"max_delay,omitempty" yaml:"max_delay,omitempty" validate:"gtefield=BaseDelay"`
	// Enable jitter to randomize delays slightly
	EnableJitter bool `json:"enable_jitter" yaml:"enable_jitter"`
	// HTTP status codes that should trigger retries
	RetryStatusCodes []int `json:"retry_status_codes,omitempty" yaml:"retry_status_codes,omitempty" validate:"dive,min=400,max=599"`
}

// NewDefaultRetryConfig creates default retry configuration
func NewDefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:       2,
		BaseDelay:        Duration(200 * time.Millisecond),
		MaxDelay:         Duration(2 * time.Second),
		EnableJitter:     true,
		RetryStatusCodes: []int{429, 502, 503, 504},
	}
}
