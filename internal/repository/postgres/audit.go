package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

// Create appends one entry. There is deliberately no update or delete
// for individual rows anywhere in this repository.
func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLogEntry) error {
	query := `
        INSERT INTO audit_log (
            id, actor_id, resource_type, resource_id, action, patient_id,
            phi_accessed, success, reason, error_message, severity,
            metadata, ip_address, user_agent, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.ResourceType,
		entry.ResourceID,
		entry.Action,
		entry.PatientID,
		entry.PHIAccessed,
		entry.Success,
		entry.Reason,
		entry.ErrorMessage,
		entry.Severity,
		entry.Metadata,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

func (r *auditRepository) Report(ctx context.Context, start, end time.Time, filters *model.AuditReportFilters) (*model.AuditReport, error) {
	whereClause := "WHERE created_at >= $1 AND created_at <= $2"
	args := []interface{}{start, end}

	if filters != nil {
		if filters.ActorID != nil {
			args = append(args, *filters.ActorID)
			whereClause += fmt.Sprintf(" AND actor_id = $%d", len(args))
		}
		if filters.PatientID != nil {
			args = append(args, *filters.PatientID)
			whereClause += fmt.Sprintf(" AND patient_id = $%d", len(args))
		}
		if filters.ResourceType != "" {
			args = append(args, filters.ResourceType)
			whereClause += fmt.Sprintf(" AND resource_type = $%d", len(args))
		}
		if filters.Action != "" {
			args = append(args, filters.Action)
			whereClause += fmt.Sprintf(" AND action = $%d", len(args))
		}
	}

	report := &model.AuditReport{
		WindowStart:  start,
		WindowEnd:    end,
		ActionCounts: make(map[string]int),
	}

	countQuery := "SELECT COUNT(*), COUNT(DISTINCT actor_id) FROM audit_log " + whereClause
	row := r.GetDB().QueryRowContext(ctx, countQuery, args...)
	if err := row.Scan(&report.TotalActions, &report.UniqueActors); err != nil {
		return nil, fmt.Errorf("failed to get report totals: %w", err)
	}

	actionQuery := `
        SELECT action, COUNT(*) AS count
        FROM audit_log ` + whereClause + `
        GROUP BY action
    `
	rows, err := r.GetDB().QueryContext(ctx, actionQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get action histogram: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		report.ActionCounts[action] = count
	}

	return report, rows.Err()
}

func (r *auditRepository) CountPatientReadsByActor(ctx context.Context, since time.Time, minCount int64) ([]model.ActorAccessCount, error) {
	query := `
        SELECT actor_id, COUNT(*) AS count
        FROM audit_log
        WHERE action = $1
          AND patient_id IS NOT NULL
          AND created_at >= $2
        GROUP BY actor_id
        HAVING COUNT(*) >= $3
        ORDER BY count DESC
    `

	var counts []model.ActorAccessCount
	if err := r.GetDB().SelectContext(ctx, &counts, query, model.AuditActionRead, since, minCount); err != nil {
		return nil, fmt.Errorf("failed to count patient reads: %w", err)
	}

	return counts, nil
}

func (r *auditRepository) ListFailedSince(ctx context.Context, since time.Time) ([]*model.AuditLogEntry, error) {
	query := `
        SELECT * FROM audit_log
        WHERE success = false AND created_at >= $1
        ORDER BY created_at DESC
    `

	var entries []*model.AuditLogEntry
	if err := r.GetDB().SelectContext(ctx, &entries, query, since); err != nil {
		return nil, fmt.Errorf("failed to list failed actions: %w", err)
	}

	return entries, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM audit_log WHERE created_at < $1`

	result, err := r.GetDB().ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit log: %w", err)
	}

	return result.RowsAffected()
}
