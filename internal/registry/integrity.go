package registry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CheckIntegrity scans the face-template store for templates whose username
// has no account record. Orphans are logged as warnings and never
// authenticate anyone; removal is left to the operator.
func (r *Registry) CheckIntegrity() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	orphans := 0
	for _, name := range r.templates.Usernames {
		if r.userLocked(name) == nil {
			r.log.Warn("orphaned face template", zap.String("username", name))
			orphans++
		}
	}
	return orphans
}

// StartIntegrityChecker runs CheckIntegrity with interval until ctx is done.
func StartIntegrityChecker(ctx context.Context, r *Registry, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.CheckIntegrity(); n > 0 {
					log.Warn("integrity check found orphaned face templates", zap.Int("count", n))
				}
			}
		}
	}()
}
