package config

// RateLimitConfig throttles traffic toward the backend and per API caller
type RateLimitConfig struct {
	// Minimum spacing between backend submissions; 0 disables pacing
	BackendInterval Duration `json:"backend_interval" yaml:"backend_interval" validate:"min=0"`
	BackendBurst    int      `json:"backend_burst,omitempty" yaml:"backend_burst,omitempty" validate:"min=0"`
	// Requests per caller, e.g. "10/minute"; empty disables the limit
	CallerLimit string `json:"caller_limit,omitempty" yaml:"caller_limit,omitempty" validate:"omitempty,ratespec"`
}

func NewDefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		BackendInterval: Duration(DefaultBackendInterval),
		BackendBurst:    DefaultBackendBurst,
		CallerLimit:     DefaultCallerLimit,
	}
}
