package local

import (
	"log/slog"
)

type Config struct {
	// Logger to use
	Logger *slog.Logger `json:"-"`
	// Image the containers are created from, it must provide bash
	Image string `json:"image"`
}
