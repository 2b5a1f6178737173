// Package logger provides the process-wide logger for Whis.
//
// Debug and Info messages are only emitted in verbose mode (the --verbose
// flag). Warnings and errors are always emitted, since they report skipped
// documents, dropped detectors and insecure salts the operator must see.
// Output is rendered by zap; Configure selects console or JSON encoding and
// can mirror every entry to a rotating file.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log formats accepted by Configure.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config controls encoding and the optional log file.
type Config struct {
	// Format is "console" (default) or "json".
	Format string

	// File mirrors every emitted entry to a rotating JSON log when set.
	File string

	// MaxSizeMB, MaxBackups and MaxAgeDays tune file rotation.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	config            = Config{Format: FormatConsole}
	sink    zapcore.WriteSyncer
	log     *zap.Logger
	file    *lumberjack.Logger
)

func init() {
	rebuild()
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// Configure applies encoding and file settings.
func Configure(cfg Config) error {
	if cfg.Format == "" {
		cfg.Format = FormatConsole
	}
	if cfg.Format != FormatConsole && cfg.Format != FormatJSON {
		return fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	mu.Lock()
	defer mu.Unlock()
	config = cfg
	rebuild()
	return nil
}

// Sync flushes buffered entries and closes the log file, if any.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	_ = log.Sync()
	if file != nil {
		err := file.Close()
		file = nil
		rebuild()
		return err
	}
	return nil
}

// rebuild recreates the zap logger. Callers must hold mu for writing.
func rebuild() {
	sink = zapcore.Lock(zapcore.AddSync(output))

	var encoder zapcore.Encoder
	if config.Format == FormatJSON {
		encoder = zapcore.NewJSONEncoder(jsonEncoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	}
	cores := []zapcore.Core{zapcore.NewCore(encoder, sink, zapcore.DebugLevel)}

	if file != nil {
		_ = file.Close()
		file = nil
	}
	if config.File != "" {
		file = &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    orDefault(config.MaxSizeMB, 10),
			MaxBackups: orDefault(config.MaxBackups, 3),
			MaxAge:     orDefault(config.MaxAgeDays, 28),
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(jsonEncoderConfig()), zapcore.AddSync(file), zapcore.DebugLevel))
	}

	log = zap.New(zapcore.NewTee(cores...))
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		LevelKey:   "level",
		MessageKey: "msg",
		LineEnding: zapcore.DefaultLineEnding,
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + l.CapitalString() + "]")
		},
		ConsoleSeparator: " ",
	}
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		log.Debug(fmt.Sprintf(format, args...))
	}
}

// Section prints a section header if verbose mode is enabled.
// Headers are console decoration and bypass the encoder.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose && config.Format == FormatConsole {
		_, _ = fmt.Fprintf(sink, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		log.Info(fmt.Sprintf(format, args...))
	}
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error(fmt.Sprintf(format, args...))
}
