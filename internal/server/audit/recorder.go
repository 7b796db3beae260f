// Package audit records security-relevant events. Recording is best effort:
// a failed write is logged and never reaches the caller.
package audit

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/auditlogs"
)

type Recorder struct {
	repo   auditlogs.Repository
	logger logging.Logger
}

func NewRecorder(repo auditlogs.Repository, logger logging.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger.With("module", "audit")}
}

// Record appends an entry for userID. Empty meta fields are stored as NULL.
func (r *Recorder) Record(ctx context.Context, userID string, action models.AuditAction, meta models.RequestMeta) {
	entry := &models.AuditLogEntry{
		UserID:    userID,
		Action:    action,
		IPAddress: optional(meta.IPAddress),
		UserAgent: optional(meta.UserAgent),
	}

	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Error(ctx, "audit write failed", "user_id", userID, "action", string(action), "error", err)
		return
	}
	r.logger.Debug(ctx, "audit recorded", "user_id", userID, "action", string(action), "id", entry.ID)
}

func (r *Recorder) List(ctx context.Context, userID string, limit int) ([]models.AuditLogEntry, error) {
	return r.repo.ListByUser(ctx, userID, limit)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
