// Package logging provides zap-based logging for the xmig IPC fabric.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level that gets emitted.
	Level zapcore.Level
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{Level: zapcore.InfoLevel}
}

var (
	mu            sync.RWMutex
	defaultLogger *zap.SugaredLogger
)

// Init builds a console logger writing to stderr. Colorized level names are
// used when stderr is a terminal.
func Init(cfg *Config) (*zap.SugaredLogger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	if term.IsTerminal(int(os.Stderr.Fd())) {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(cfg.Level),
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Default returns the process-wide logger, creating a no-op logger if none
// has been installed. Library code logs through this so that applications
// that never call Init pay nothing.
func Default() *zap.SugaredLogger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = zap.NewNop().Sugar()
	}
	return defaultLogger
}

// SetDefault installs the process-wide logger.
func SetDefault(logger *zap.SugaredLogger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// Debugf logs through the default logger.
func Debugf(format string, args ...any) {
	Default().Debugf(format, args...)
}

// Infof logs through the default logger.
func Infof(format string, args ...any) {
	Default().Infof(format, args...)
}

// Warnf logs through the default logger.
func Warnf(format string, args ...any) {
	Default().Warnf(format, args...)
}

// Errorf logs through the default logger.
func Errorf(format string, args ...any) {
	Default().Errorf(format, args...)
}
