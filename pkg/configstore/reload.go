package configstore

import (
	"context"
	"log/slog"
	"time"
)

// Reloader periodically commits capture files that changed on disk.
type Reloader struct {
	store    *Store
	interval time.Duration
}

// NewReloader creates a reloader for store.
func NewReloader(store *Store, interval time.Duration) *Reloader {
	return &Reloader{store: store, interval: interval}
}

// Run starts the reload loop. It blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) {
	slog.Info("capture reload started", "dir", r.store.dir, "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("capture reload stopped")
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Reloader) sweep() {
	changed, err := r.store.Reload()
	if err != nil {
		slog.Warn("capture reload failed", "err", err)
	}
	if len(changed) > 0 {
		slog.Info("captures reloaded", "scopes", changed)
	}
}
