package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

type RepeatFunc func(t time.Time) error

// Repeat executes f n times, once per interval, starting at startTime. A
// run that takes longer than the interval delays the next one. If n is
// negative, f is repeated until ctx is done.
func Repeat(ctx context.Context, f RepeatFunc, startTime time.Time, interval time.Duration, n int) error {
	t := startTime
	for n != 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if wait := time.Until(t); wait > 0 {
			msg := fmt.Sprintf("Next scheduled at %s", t)
			if n >= 0 {
				msg += fmt.Sprintf(" (%d remaining)", n)
			}
			log.Debug().Msgf(msg)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := f(t); err != nil {
			return err
		}
		t = t.Add(interval)
		if n > 0 {
			n--
		}
	}
	return nil
}
