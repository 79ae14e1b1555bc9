package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicore/phi-gate/internal/repository"
	"github.com/clinicore/phi-gate/pkg/logger"
)

type AuditRetentionWorker struct {
	repo          repository.AuditRepository
	retentionDays int
	interval      time.Duration
	logger        *logger.Logger
}

func NewAuditRetentionWorker(repo repository.AuditRepository, retentionDays int, interval time.Duration, log *logger.Logger) *AuditRetentionWorker {
	return &AuditRetentionWorker{
		repo:          repo,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        log.WithComponent("audit_retention"),
	}
}

func (w *AuditRetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("audit retention worker started", "retention_days", w.retentionDays)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("audit retention worker shutting down")
			return
		case <-ticker.C:
			if err := w.prune(ctx); err != nil {
				w.logger.Error(err, "audit retention pass failed")
			}
		}
	}
}

func (w *AuditRetentionWorker) prune(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune audit logs: %w", err)
	}

	if rows > 0 {
		w.logger.Info("pruned audit logs", "rows", rows, "cutoff", cutoff)
	}
	return nil
}
