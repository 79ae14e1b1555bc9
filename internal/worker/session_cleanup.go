package worker

import (
	"context"
	"time"

	"github.com/clinicore/phi-gate/internal/service/session"
	"github.com/clinicore/phi-gate/pkg/logger"
)

// SessionCleanupWorker expires idle sessions and sweeps stale lockouts
// so that terminal state is visible to queries even when nobody touches
// the rows.
type SessionCleanupWorker struct {
	sessions *session.Service
	interval time.Duration
	logger   *logger.Logger
}

func NewSessionCleanupWorker(sessions *session.Service, interval time.Duration, log *logger.Logger) *SessionCleanupWorker {
	return &SessionCleanupWorker{
		sessions: sessions,
		interval: interval,
		logger:   log.WithComponent("session_cleanup"),
	}
}

func (w *SessionCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("session cleanup worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session cleanup worker shutting down")
			return
		case <-ticker.C:
			expired, lockouts, err := w.sessions.CleanupExpired(ctx)
			if err != nil {
				w.logger.Error(err, "session cleanup failed")
				continue
			}
			if expired > 0 || lockouts > 0 {
				w.logger.Info("session cleanup done",
					"expired_sessions", expired, "removed_lockouts", lockouts)
			}
		}
	}
}
