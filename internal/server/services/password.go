package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// ForgotPassword issues a reset token and mails it. Unknown emails are
// accepted silently so the endpoint does not reveal which accounts exist.
func (s *UserService) ForgotPassword(ctx context.Context, meta models.RequestMeta, email string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Debug(ctx, "password reset for unknown email", "ip", meta.IPAddress)
			return nil
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	token, err := s.newToken(common.DefaultTokenSize)
	if err != nil {
		return fmt.Errorf("error generating reset token: %w", err)
	}

	expiresAt := s.now().Add(s.resetTokenValidityDuration)
	if err := s.repomanager.Users(s.db).SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return fmt.Errorf("error storing reset token: %w", err)
	}

	s.sendMail(ctx, mailer.PasswordResetEmail(s.appURL, user.Email, token))
	return nil
}

// ResetPassword sets a new password for the holder of token and revokes all
// of their sessions. The token is cleared in the same transaction, so it can
// be used only once.
func (s *UserService) ResetPassword(ctx context.Context, meta models.RequestMeta, token, newPassword string) error {
	if token == "" {
		return common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidToken
		}
		return fmt.Errorf("error loading user: %w", err)
	}
	if user.ResetTokenExpiresAt == nil || !s.now().Before(*user.ResetTokenExpiresAt) {
		return common.ErrTokenExpired
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).ResetPassword(ctx, user.ID, token, hash); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error updating password: %w", err)
		}
		if _, err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("error revoking sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, user.ID, models.AuditPasswordReset, meta)
	return nil
}
