package config

// ServerConfig configures the HTTP API listener
type ServerConfig struct {
	ListenAddr      string   `json:"listen_addr" yaml:"listen_addr" validate:"required,hostname_port"`
	ReadTimeout     Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty" validate:"min=0"`
	WriteTimeout    Duration `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty" validate:"min=0"`
	ShutdownTimeout Duration `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty" validate:"min=0"`
	MaxBodyBytes    int64    `json:"max_body_bytes,omitempty" yaml:"max_body_bytes,omitempty" validate:"min=0"`
}

// NewDefaultServerConfig creates default server configuration. WriteTimeout is
// left at zero since a recursive crawl may legitimately run for minutes.
func NewDefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      DefaultServerListenAddr,
		ReadTimeout:     Duration(DefaultServerReadTimeout),
		ShutdownTimeout: Duration(DefaultServerShutdownTimeout),
		MaxBodyBytes:    DefaultServerMaxBodyBytes,
	}
}
