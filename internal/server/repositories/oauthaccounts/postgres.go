package oauthaccounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/google/uuid"
)

// ProviderAccountConstraint guards (provider, provider_account_id).
const ProviderAccountConstraint = "oauth_accounts_provider_account_key"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.OAuthAccount) (*models.OAuthAccount, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO oauth_accounts (id, provider, provider_account_id, user_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.Provider, account.ProviderAccountID, account.UserID).Scan(&account.CreatedAt)
	if err != nil {
		if c, ok := dbx.UniqueViolation(err); ok && c == ProviderAccountConstraint {
			return nil, common.ErrAlreadyExists
		}
		if dbx.IsForeignKeyViolation(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) FindUser(ctx context.Context, provider, providerAccountID string) (*models.User, error) {
	query :=
		`SELECT ` + prefixed("u.") + `
		 FROM oauth_accounts oa
		 JOIN users u ON u.id = oa.user_id
		 WHERE oa.provider = $1 AND oa.provider_account_id = $2
		 `

	user, err := users.ScanUser(r.db.QueryRowContext(ctx, query, provider, providerAccountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func prefixed(alias string) string {
	return alias + "id, " + alias + "email, " + alias + "password_hash, " + alias + "email_verified, " +
		alias + "verification_token, " + alias + "reset_token, " + alias + "reset_token_expires_at, " + alias + "created_at"
}
