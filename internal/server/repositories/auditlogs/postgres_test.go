package auditlogs

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ = `(?s)^INSERT\s+INTO\s+audit_logs\s*\(id,\s*user_id,\s*action,\s*ip_address,\s*user_agent,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*$`
	listQ   = `(?s)^SELECT\s+id,\s*user_id,\s*action,\s*ip_address,\s*user_agent,\s*created_at\s+FROM\s+audit_logs\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC,\s*id\s+DESC\s+LIMIT\s+\$2\s*$`
)

func strp(s string) *string { return &s }

func TestCreate_AssignsULID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	mock.ExpectExec(insertQ).
		WithArgs(sqlmock.AnyArg(), "u1", "LOGIN", "10.0.0.1", nil, fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := &models.AuditLogEntry{UserID: "u1", Action: models.AuditLogin, IPAddress: strp("10.0.0.1")}
	require.NoError(t, repo.Create(context.Background(), e))

	id, err := ulid.ParseStrict(e.ID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(fixed), id.Time())
	assert.Equal(t, fixed, e.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_KeepsGivenID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WithArgs("given", "u1", "LOGOUT", nil, "curl/8", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := &models.AuditLogEntry{ID: "given", UserID: "u1", Action: models.AuditLogout, UserAgent: strp("curl/8")}
	require.NoError(t, repo.Create(context.Background(), e))
	assert.Equal(t, "given", e.ID)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(errors.New("boom"))

	err := repo.Create(context.Background(), &models.AuditLogEntry{UserID: "u1", Action: models.AuditLogin})
	require.ErrorContains(t, err, "db error: boom")
}

func TestListByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "action", "ip_address", "user_agent", "created_at"}).
		AddRow("b", "u1", "LOGOUT", nil, nil, now).
		AddRow("a", "u1", "LOGIN", "1.2.3.4", "ua", now.Add(-time.Minute))

	mock.ExpectQuery(listQ).WithArgs("u1", 10).WillReturnRows(rows)

	got, err := repo.ListByUser(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.AuditLogout, got[0].Action)
	assert.Nil(t, got[0].IPAddress)
	assert.Equal(t, "1.2.3.4", *got[1].IPAddress)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WithArgs("u2", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "action", "ip_address", "user_agent", "created_at"}))

	got, err := repo.ListByUser(context.Background(), "u2", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListByUser_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WillReturnError(errors.New("down"))

	_, err := repo.ListByUser(context.Background(), "u1", 10)
	require.ErrorContains(t, err, "db error: down")
}
