package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/phi-gate/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestAuditCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(NewBaseRepository(db))

	entry := &model.AuditLogEntry{
		ID:           uuid.New(),
		ActorID:      uuid.New(),
		ResourceType: model.AuditEntityConsent,
		ResourceID:   "r1",
		Action:       model.AuditActionCreate,
		Success:      true,
		Severity:     model.SeverityLow,
		CreatedAt:    time.Now(),
	}

	mock.ExpectExec(`INSERT INTO audit_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditReport(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(NewBaseRepository(db))

	start := time.Now().Add(-24 * time.Hour)
	end := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(DISTINCT actor_id\) FROM audit_log`).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count", "count"}).AddRow(42, 7))

	mock.ExpectQuery(`SELECT action, COUNT\(\*\) AS count`).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"action", "count"}).
			AddRow(model.AuditActionRead, 30).
			AddRow(model.AuditActionCreate, 12))

	report, err := repo.Report(context.Background(), start, end, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), report.TotalActions)
	assert.Equal(t, int64(7), report.UniqueActors)
	assert.Equal(t, 30, report.ActionCounts[model.AuditActionRead])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditReportWithFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(NewBaseRepository(db))

	start := time.Now().Add(-time.Hour)
	end := time.Now()
	actorID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(DISTINCT actor_id\) FROM audit_log WHERE created_at >= \$1 AND created_at <= \$2 AND actor_id = \$3 AND action = \$4`).
		WithArgs(start, end, actorID, model.AuditActionExport).
		WillReturnRows(sqlmock.NewRows([]string{"count", "count"}).AddRow(3, 1))

	mock.ExpectQuery(`SELECT action, COUNT\(\*\) AS count`).
		WithArgs(start, end, actorID, model.AuditActionExport).
		WillReturnRows(sqlmock.NewRows([]string{"action", "count"}).
			AddRow(model.AuditActionExport, 3))

	report, err := repo.Report(context.Background(), start, end, &model.AuditReportFilters{
		ActorID: &actorID,
		Action:  model.AuditActionExport,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.TotalActions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditCountPatientReadsByActor(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(NewBaseRepository(db))

	since := time.Now().Add(-24 * time.Hour)
	hot := uuid.New()

	mock.ExpectQuery(`SELECT actor_id, COUNT\(\*\) AS count`).
		WithArgs(model.AuditActionRead, since, int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"actor_id", "count"}).AddRow(hot, 73))

	counts, err := repo.CountPatientReadsByActor(context.Background(), since, 50)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, hot, counts[0].ActorID)
	assert.Equal(t, int64(73), counts[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditDeleteBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(NewBaseRepository(db))

	cutoff := time.Now().AddDate(-6, 0, 0)

	mock.ExpectExec(`DELETE FROM audit_log WHERE created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 128))

	rows, err := repo.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(128), rows)
	require.NoError(t, mock.ExpectationsWereMet())
}
