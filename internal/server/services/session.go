package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// RefreshToken rotates a refresh token: the presented token is consumed and a
// successor stored in the same transaction.
//
// Of two concurrent rotations of one token only one gets a pair; the other
// sees common.ErrInvalidRefreshToken. An expired token is still deleted and
// common.ErrRefreshTokenExpired returned.
func (s *UserService) RefreshToken(ctx context.Context, meta models.RequestMeta, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrInvalidRefreshToken
	}

	var (
		pair    *TokenPair
		expired bool
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrInvalidRefreshToken
			}
			return fmt.Errorf("error consuming refresh token: %w", err)
		}

		if token.Expired(s.now()) {
			// the delete must still commit
			expired = true
			return nil
		}

		pair, err = s.issueSession(ctx, tx, models.Identity{UserID: token.UserID, Email: token.Email})
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, common.ErrRefreshTokenExpired
	}

	s.logger.Debug(ctx, "refresh token rotated", "ip", meta.IPAddress)
	return pair, nil
}

// Logout revokes one refresh token.
func (s *UserService) Logout(ctx context.Context, meta models.RequestMeta, refreshToken string) error {
	if refreshToken == "" {
		return common.ErrInvalidRefreshToken
	}

	token, err := s.repomanager.RefreshTokens(s.db).Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidRefreshToken
		}
		return fmt.Errorf("error deleting refresh token: %w", err)
	}

	s.audit.Record(ctx, token.UserID, models.AuditLogout, meta)
	return nil
}

// LogoutAll revokes every refresh token of the caller. Having none is fine.
func (s *UserService) LogoutAll(ctx context.Context, meta models.RequestMeta, id models.Identity) error {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteByUser(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("error deleting refresh tokens: %w", err)
	}

	s.audit.Record(ctx, id.UserID, models.AuditLogoutAll, meta)
	s.logger.Info(ctx, "all sessions revoked", "user_id", id.UserID, "count", n)
	return nil
}
