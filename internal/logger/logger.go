// Package logger builds the root zerolog logger from configuration.
package logger

import (
	"github.com/aleister1102/crawlgate/internal/config"
	"github.com/rs/zerolog"
)

// New creates the application logger from cfg.
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	return NewLoggerBuilder().WithConfig(cfg).Build()
}
