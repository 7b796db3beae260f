package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Register creates an unverified password account and sends the verification
// email. A taken email yields common.ErrAlreadyExists; the check is the
// unique constraint, so two concurrent registrations cannot both succeed.
func (s *UserService) Register(ctx context.Context, meta models.RequestMeta, email, password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	token, err := s.newToken(common.DefaultTokenSize)
	if err != nil {
		return "", fmt.Errorf("error generating verification token: %w", err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:             email,
		Credentials:       models.PasswordCredentials{Hash: hash},
		VerificationToken: &token,
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return "", common.ErrAlreadyExists
		}
		return "", fmt.Errorf("error creating user: %w", err)
	}

	s.sendMail(ctx, mailer.VerificationEmail(s.appURL, user.Email, token))
	s.audit.Record(ctx, user.ID, models.AuditRegister, meta)

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user.ID, nil
}

// VerifyEmail consumes a verification token. Each token works once.
func (s *UserService) VerifyEmail(ctx context.Context, meta models.RequestMeta, token string) error {
	if token == "" {
		return common.ErrInvalidToken
	}

	userID, err := s.repomanager.Users(s.db).MarkEmailVerified(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidToken
		}
		return fmt.Errorf("error verifying email: %w", err)
	}

	s.audit.Record(ctx, userID, models.AuditEmailVerified, meta)
	return nil
}
