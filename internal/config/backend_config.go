package config

// BackendConfig points at the Crawl4AI instance
type BackendConfig struct {
	BaseURL      string   `json:"base_url" yaml:"base_url" validate:"required,http_url"`
	APIToken     string   `json:"api_token,omitempty" yaml:"api_token,omitempty"`
	PollInterval Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty" validate:"gt=0"`
	PollTimeout  Duration `json:"poll_timeout,omitempty" yaml:"poll_timeout,omitempty" validate:"gtfield=PollInterval"`
	UserAgent    string   `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

func NewDefaultBackendConfig() BackendConfig {
	return BackendConfig{
		BaseURL:      DefaultBackendBaseURL,
		PollInterval: Duration(DefaultBackendPollInterval),
		PollTimeout:  Duration(DefaultBackendPollTimeout),
		UserAgent:    DefaultBackendUserAgent,
	}
}
