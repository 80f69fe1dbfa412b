package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const maxConfigFileSize = 10 * 1024 * 1024

// GlobalConfig contains all configuration sections for the application
type GlobalConfig struct {
	ServerConfig          ServerConfig          `json:"server_config,omitempty" yaml:"server_config,omitempty"`
	BackendConfig         BackendConfig         `json:"backend_config,omitempty" yaml:"backend_config,omitempty"`
	CacheConfig           CacheConfig           `json:"cache_config,omitempty" yaml:"cache_config,omitempty"`
	RateLimitConfig       RateLimitConfig       `json:"rate_limit_config,omitempty" yaml:"rate_limit_config,omitempty"`
	HTTPClientConfig      HTTPClientConfig      `json:"http_client_config,omitempty" yaml:"http_client_config,omitempty"`
	RetryConfig           RetryConfig           `json:"retry_config,omitempty" yaml:"retry_config,omitempty"`
	CrawlConfig           CrawlConfig           `json:"crawl_config,omitempty" yaml:"crawl_config,omitempty"`
	ResourceLimiterConfig ResourceLimiterConfig `json:"resource_limiter_config,omitempty" yaml:"resource_limiter_config,omitempty"`
	LogConfig             LogConfig             `json:"log_config,omitempty" yaml:"log_config,omitempty"`
}

// NewDefaultGlobalConfig creates a new GlobalConfig with default values
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		ServerConfig:          NewDefaultServerConfig(),
		BackendConfig:         NewDefaultBackendConfig(),
		CacheConfig:           NewDefaultCacheConfig(),
		RateLimitConfig:       NewDefaultRateLimitConfig(),
		HTTPClientConfig:      NewDefaultHTTPClientConfig(),
		RetryConfig:           NewDefaultRetryConfig(),
		CrawlConfig:           NewDefaultCrawlConfig(),
		ResourceLimiterConfig: NewDefaultResourceLimiterConfig(),
		LogConfig:             NewDefaultLogConfig(),
	}
}

// LoadGlobalConfig loads the configuration from a file or default locations,
// then applies environment overrides. Fields absent from the file keep their
// defaults. YAML is used for .yaml and .yml files, JSON otherwise.
func LoadGlobalConfig(providedPath string, logger zerolog.Logger) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	if providedPath != "" && !fileExists(providedPath) {
		return nil, fmt.Errorf("config file %q does not exist", providedPath)
	}

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		logger.Debug().Msg("No config file found, using defaults")
	} else {
		data, err := readConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file content: %w", err)
		}
		if err := parseConfigContent(data, filePath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config content: %w", err)
		}
		logger.Info().Str("path", filePath).Msg("Loaded configuration file")
	}

	applyEnvOverrides(cfg, os.Getenv)
	return cfg, nil
}

func readConfigFile(filePath string) ([]byte, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file '%s' is %d bytes, limit is %d", filePath, info.Size(), maxConfigFileSize)
	}
	return os.ReadFile(filePath)
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	if isYAMLFile(filepath.Ext(filePath)) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}

func isYAMLFile(ext string) bool {
	ext = strings.ToLower(ext)
	return ext == ".yaml" || ext == ".yml"
}

// applyEnvOverrides lets deployments keep the backend token out of the file.
func applyEnvOverrides(cfg *GlobalConfig, getenv func(string) string) {
	if token := getenv(EnvBackendToken); token != "" {
		cfg.BackendConfig.APIToken = token
	}
	if baseURL := getenv(EnvBackendURL); baseURL != "" {
		cfg.BackendConfig.BaseURL = baseURL
	}
}
