package config

// HTTPClientConfig tunes the client used to reach the backend
type HTTPClientConfig struct {
	Timeout            Duration          `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"min=0"`
	InsecureSkipVerify bool              `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	Proxy              string            `json:"proxy,omitempty" yaml:"proxy,omitempty" validate:"omitempty,url"`
	EnableHTTP2        bool              `json:"enable_http2" yaml:"enable_http2"`
	MaxContentSizeMB   int               `json:"max_content_size_mb,omitempty" yaml:"max_content_size_mb,omitempty" validate:"min=0"`
	CustomHeaders      map[string]string `json:"custom_headers,omitempty" yaml:"custom_headers,omitempty"`
}

func NewDefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:          Duration(DefaultHTTPClientTimeout),
		EnableHTTP2:      true,
		MaxContentSizeMB: DefaultHTTPClientMaxContentSize,
	}
}
