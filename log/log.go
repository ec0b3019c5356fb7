package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gammadia/awsrun/flags"
	"github.com/spf13/viper"
)

// Logs go to stderr: stdout belongs to the operator output and the countdown.

// Base is a bare logger without attributes
var Base = slog.New(slog.DiscardHandler)

// logger is the command logger with default attributes
var logger = Base

func Init() error {
	return InitWithWriter(os.Stderr)
}

func InitWithWriter(w io.Writer) error {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(viper.GetString(flags.LogLevel))); err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	if viper.GetBool(flags.Verbose) {
		logLevel = slog.LevelDebug
	}

	options := slog.HandlerOptions{
		AddSource: viper.GetBool(flags.LogSource),
		Level:     logLevel,
	}

	switch format := viper.GetString(flags.LogFormat); format {
	case "json":
		Base = slog.New(slog.NewJSONHandler(w, &options))
	case "text":
		Base = slog.New(slog.NewTextHandler(w, &options))
	default:
		return fmt.Errorf("unknown log format '%s'", format)
	}

	logger = Base.With("component", "awsrun")
	return nil
}

// Proxies for slog.Logger methods

func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}
