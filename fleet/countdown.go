package fleet

import (
	"context"
	"fmt"
	"io"
	"time"
)

// countdown blocks for from+1 ticks, rewriting a single status line before
// each one. It returns ctx.Err() if ctx is done first.
//
// Non-interactive writers get one plain line per minute instead.
func countdown(ctx context.Context, out io.Writer, from int, tick time.Duration, interactive bool) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for remaining := from; remaining >= 0; remaining-- {
		if interactive {
			fmt.Fprintf(out, "\rRemaining time before terminating instances: %-10d\r", remaining)
		} else if remaining == from || remaining%60 == 0 {
			fmt.Fprintf(out, "Remaining time before terminating instances: %d\n", remaining)
		}

		select {
		case <-ctx.Done():
			if interactive {
				fmt.Fprintln(out)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if interactive {
		fmt.Fprintln(out)
	}
	return nil
}
