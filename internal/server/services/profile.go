package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const (
	DefaultAuditLimit = 10
	MaxAuditLimit     = 100
)

// Me returns the caller's user record.
func (s *UserService) Me(ctx context.Context, id models.Identity) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// ListAuditLogs returns the caller's most recent audit entries, newest first.
// A non-positive limit means DefaultAuditLimit; larger ones are capped at
// MaxAuditLimit.
func (s *UserService) ListAuditLogs(ctx context.Context, id models.Identity, limit int) ([]models.AuditLogEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultAuditLimit
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}

	entries, err := s.audit.List(ctx, id.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing audit logs: %w", err)
	}
	return entries, nil
}
