// Package logger builds the zap logger shared by wyvern's storage components.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects where log output goes and how much of it there is.
type Config struct {
	// Level is the minimum level that gets logged ("debug", "info", "warn", "error").
	// Unrecognized values fall back to "info".
	Level string `yaml:"level"`
	// Format is "console" for human-readable output, anything else means JSON.
	Format string `yaml:"format"`
	// OutputFile is a file path, or "stdout"/"stderr". Empty means stdout.
	OutputFile string `yaml:"output_file"`
}

// New builds a logger from the configuration. Called once at startup;
// components receive the logger, they never construct their own.
func New(config Config) (*zap.Logger, error) {

	level, err := zapcore.ParseLevel(config.Level)

	if err != nil {
		level = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if strings.EqualFold(config.Format, "console") {
		zapConfig.Encoding = "console"
	}

	output := config.OutputFile

	if output == "" {
		output = "stdout"
	}

	// zap resolves "stdout" and "stderr" itself; anything else is opened as a file.
	zapConfig.OutputPaths = []string{output}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapConfig.Build()

	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger.With(zap.String("service", "wyvern")), nil
}
