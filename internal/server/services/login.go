package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Login checks email and password and opens a session.
//
// An unknown email, an account without a password and a wrong password all
// produce the same common.ErrInvalidCredentials. The verified flag is checked
// only after the password matched.
func (s *UserService) Login(ctx context.Context, meta models.RequestMeta, email, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.burnPasswordCheck(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	hash, ok := user.PasswordHash()
	if !ok {
		s.burnPasswordCheck(password)
		return nil, common.ErrInvalidCredentials
	}

	match, err := s.hasher.Verify(hash, password)
	if err != nil {
		return nil, fmt.Errorf("error checking password: %w", err)
	}
	if !match {
		return nil, common.ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, common.ErrEmailNotVerified
	}

	pair, err := s.issueSession(ctx, s.db, models.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, user.ID, models.AuditLogin, meta)
	return pair, nil
}
