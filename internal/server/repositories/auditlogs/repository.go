// Package auditlogs persists append-only security events.
package auditlogs

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	// ListByUser returns at most limit entries of the user, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.AuditLogEntry, error)
}
