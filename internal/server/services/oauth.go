package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/oauth"
)

// errLostRace means a concurrent sign-in created the user or link we were
// about to create.
var errLostRace = errors.New("concurrent oauth sign-in")

// GoogleAuthURL returns the consent page URL with a fresh single-use state.
func (s *UserService) GoogleAuthURL(ctx context.Context) (string, error) {
	if s.google == nil {
		return "", common.ErrOAuthNotConfigured
	}

	state := ""
	if s.states != nil {
		var err error
		if state, err = s.states.Issue(ctx); err != nil {
			return "", fmt.Errorf("error issuing oauth state: %w", err)
		}
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleLogin signs in with a Google authorization code. The Google account
// is matched by its provider id first, then by email; when neither is known a
// verified password-less user is created.
func (s *UserService) GoogleLogin(ctx context.Context, meta models.RequestMeta, code, state string) (*TokenPair, error) {
	if s.google == nil {
		return nil, common.ErrOAuthNotConfigured
	}

	if s.states != nil {
		if err := s.states.Consume(ctx, state); err != nil {
			if errors.Is(err, oauth.ErrInvalidState) {
				return nil, common.ErrOAuthExchangeFailed
			}
			return nil, fmt.Errorf("error checking oauth state: %w", err)
		}
	}

	info, err := s.google.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn(ctx, "google code exchange failed", "error", err)
		return nil, common.ErrOAuthExchangeFailed
	}
	if info.ProviderAccountID == "" || info.Email == "" {
		s.logger.Warn(ctx, "google profile incomplete", "has_id", info.ProviderAccountID != "", "has_email", info.Email != "")
		return nil, common.ErrOAuthExchangeFailed
	}

	user, created, err := s.resolveOAuthUser(ctx, oauth.ProviderGoogle, info)
	if errors.Is(err, errLostRace) {
		user, created, err = s.resolveOAuthUser(ctx, oauth.ProviderGoogle, info)
	}
	if err != nil {
		return nil, err
	}
	if created {
		s.audit.Record(ctx, user.ID, models.AuditRegister, meta)
	}

	pair, err := s.issueSession(ctx, s.db, models.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, user.ID, models.AuditLogin, meta)
	return pair, nil
}

func (s *UserService) resolveOAuthUser(ctx context.Context, provider string, info *oauth.UserInfo) (*models.User, bool, error) {
	links := s.repomanager.OAuthAccounts(s.db)

	user, err := links.FindUser(ctx, provider, info.ProviderAccountID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, fmt.Errorf("error loading oauth link: %w", err)
	}

	link := &models.OAuthAccount{Provider: provider, ProviderAccountID: info.ProviderAccountID}

	user, err = s.repomanager.Users(s.db).GetByEmail(ctx, info.Email)
	switch {
	case err == nil:
		link.UserID = user.ID
		if _, err := links.Create(ctx, link); err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				return nil, false, errLostRace
			}
			return nil, false, fmt.Errorf("error linking oauth account: %w", err)
		}
		s.logger.Info(ctx, "oauth account linked", "user_id", user.ID, "provider", provider)
		return user, false, nil

	case !errors.Is(err, common.ErrNotFound):
		return nil, false, fmt.Errorf("error loading user: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:         info.Email,
			Credentials:   models.ExternalOnly{},
			EmailVerified: true,
		})
		if err != nil {
			return err
		}
		link.UserID = u.ID
		if _, err := s.repomanager.OAuthAccounts(tx).Create(ctx, link); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, false, errLostRace
		}
		return nil, false, fmt.Errorf("error creating oauth user: %w", err)
	}
	return user, true, nil
}
