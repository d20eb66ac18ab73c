package trending

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// Jitter sleeps for a random duration in [min, max] or until the context is
// done. It is a pure delay primitive used to decorrelate scheduled fetches;
// it carries no retry semantics.
func Jitter(ctx context.Context, min, max time.Duration) error {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	delay := min
	if span := max - min; span > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(span)))
		if err != nil {
			delay = min + span/2
		} else {
			delay = min + time.Duration(n.Int64())
		}
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
