// Package logging builds the zap.SugaredLogger used throughout the tool,
// following the console-encoder-with-terminal-aware-colors setup the
// teacher's common/go/logging package uses for every binary in that repo.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Config selects the logging level; Verbose maps to debug, matching the
// -v/--verbose flag's effect on the CLI.
type Config struct {
	Verbose bool
}

// Init builds a console-encoded logger writing to stderr, with colored
// level names when stderr is a terminal and plain capitalized names
// otherwise (so piping logs to a file or another process never embeds ANSI
// escapes).
func Init(cfg Config) (*zap.SugaredLogger, error) {
	level := zapcore.InfoLevel
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	if term.IsTerminal(int(os.Stderr.Fd())) {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}
