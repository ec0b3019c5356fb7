package fleet

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gammadia/awsrun/bootscript"
)

type Config struct {
	BootScript   *bootscript.Template `json:"-"`
	Interactive  bool                 `json:"interactive"`
	Lifetime     int                  `json:"lifetime"`
	Logger       *slog.Logger         `json:"-"`
	PollInterval time.Duration        `json:"poll-interval"`
	Tick         time.Duration        `json:"tick"`
}

func Validate(config Config) error {
	if config.Lifetime < 0 {
		return fmt.Errorf("lifetime must not be negative")
	}
	if config.Tick <= 0 {
		return fmt.Errorf("tick must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be greater than 0")
	}
	return nil
}
