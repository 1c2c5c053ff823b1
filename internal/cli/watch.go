package cli

import (
	"context"
	"time"
)

// runWatch reruns fn on every tick until the context is cancelled. A
// failed run is reported through onError and the loop keeps ticking;
// transient outages end a single run, never the watch session.
func runWatch(ctx context.Context, interval time.Duration, fn func() error, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(); err != nil {
				onError(err)
			}
		}
	}
}
