package logger

import (
	"fmt"
	"io"
	stdlog "log"

	"github.com/aleister1102/crawlgate/internal/config"
	"github.com/rs/zerolog"
)

// LoggerBuilder provides fluent interface for building loggers
type LoggerBuilder struct {
	config  LoggerConfig
	factory *WriterFactory
}

// NewLoggerBuilder creates a new logger builder
func NewLoggerBuilder() *LoggerBuilder {
	return &LoggerBuilder{
		config:  DefaultLoggerConfig(),
		factory: NewWriterFactory(),
	}
}

// WithConfig applies the log section of the application config
func (lb *LoggerBuilder) WithConfig(cfg config.LogConfig) *LoggerBuilder {
	console := lb.config.Console
	lb.config = fromLogConfig(cfg)
	lb.config.Console = console
	return lb
}

// WithConsole redirects console output, mostly for tests
func (lb *LoggerBuilder) WithConsole(w io.Writer) *LoggerBuilder {
	lb.config.Console = w
	return lb
}

// Build creates the logger instance
func (lb *LoggerBuilder) Build() (zerolog.Logger, error) {
	if err := lb.validateConfig(); err != nil {
		return zerolog.Logger{}, err
	}

	var writers []io.Writer
	if lb.config.EnableConsole {
		writers = append(writers, lb.factory.CreateConsoleWriter(lb.config))
	}
	if lb.config.EnableFile {
		fileWriter, err := lb.factory.CreateFileWriter(lb.config)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file %q: %w", lb.config.FilePath, err)
		}
		writers = append(writers, fileWriter)
	}
	if len(writers) == 0 {
		return zerolog.Logger{}, fmt.Errorf("no output writers configured")
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lb.config.Level).
		With().
		Timestamp().
		Logger()

	// Route the standard library logger (net/http server errors) through zerolog
	stdlog.SetOutput(logger)
	stdlog.SetFlags(0)

	return logger, nil
}

func (lb *LoggerBuilder) validateConfig() error {
	if lb.config.EnableFile && lb.config.FilePath == "" {
		return fmt.Errorf("file path required when file logging enabled")
	}
	if lb.config.MaxSizeMB <= 0 {
		return fmt.Errorf("max size must be positive, got %d", lb.config.MaxSizeMB)
	}
	return nil
}
