package audio

import (
	"context"
	"time"
)

// Clock drives a push-style sink at a fixed tick rate. Each wakeup renders
// every tick that fell due since start, so a late wakeup catches up instead of
// drifting.
type Clock struct {
	Rate     int
	Interval time.Duration // wakeup period, default 1ms
	// OnBlock runs after each batch, e.g. to flush a buffered sink.
	OnBlock func() error
}

// Run calls tick Rate times per second until ctx is done.
func (c Clock) Run(ctx context.Context, tick func()) error {
	interval := c.Interval
	if interval <= 0 {
		interval = time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	start := time.Now()
	var done int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			el := now.Sub(start)
			sec := int64(el / time.Second)
			due := sec*int64(c.Rate) + int64(el%time.Second)*int64(c.Rate)/int64(time.Second)
			for ; done < due; done++ {
				tick()
			}
			if c.OnBlock != nil {
				if err := c.OnBlock(); err != nil {
					return err
				}
			}
		}
	}
}
