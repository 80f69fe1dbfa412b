package logger

import (
	"github.com/aleister1102/crawlgate/internal/config"
)

// fromLogConfig converts the file configuration into a LoggerConfig. An
// unknown level falls back to info; ValidateConfig rejects it earlier.
func fromLogConfig(cfg config.LogConfig) LoggerConfig {
	out := DefaultLoggerConfig()
	out.Level, _ = ParseLevel(cfg.LogLevel)
	out.Format = ParseFormat(cfg.LogFormat)
	out.EnableFile = cfg.LogFile != ""
	out.FilePath = cfg.LogFile
	if cfg.MaxLogSizeMB > 0 {
		out.MaxSizeMB = cfg.MaxLogSizeMB
	}
	if cfg.MaxLogBackups > 0 {
		out.MaxBackups = cfg.MaxLogBackups
	}
	return out
}
