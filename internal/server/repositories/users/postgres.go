package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// EmailConstraint is the unique constraint guarding users.email.
const EmailConstraint = "users_email_key"

// Columns lists the user columns in the order ScanUser expects.
const Columns = `id, email, password_hash, email_verified, verification_token, reset_token, reset_token_expires_at, created_at`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user. An empty ID is replaced with a fresh UUID.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	var passwordHash *string
	if h, ok := user.PasswordHash(); ok {
		passwordHash = &h
	}

	query :=
		`INSERT INTO users (id, email, password_hash, email_verified, verification_token)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, passwordHash, user.EmailVerified, user.VerificationToken).Scan(&user.CreatedAt)

	if err != nil {
		if c, ok := dbx.UniqueViolation(err); ok && c == EmailConstraint {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+Columns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+Columns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+Columns+` FROM users WHERE reset_token = $1`, token)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := ScanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, verificationToken string) (string, error) {
	query :=
		`UPDATE users SET email_verified = TRUE, verification_token = NULL
		 WHERE verification_token = $1
		 RETURNING id
		 `

	var id string
	if err := r.db.QueryRowContext(ctx, query, verificationToken).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	query :=
		`UPDATE users SET reset_token = $2, reset_token_expires_at = $3
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) ResetPassword(ctx context.Context, userID, resetToken, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $3, reset_token = NULL, reset_token_expires_at = NULL
		 WHERE id = $1 AND reset_token = $2
		 `

	res, err := r.db.ExecContext(ctx, query, userID, resetToken, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// RowScanner is implemented by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanUser reads one row laid out as Columns.
func ScanUser(row RowScanner) (*models.User, error) {
	var (
		u            models.User
		passwordHash sql.NullString
		verifyToken  sql.NullString
		resetToken   sql.NullString
		resetExpires sql.NullTime
	)

	if err := row.Scan(&u.ID, &u.Email, &passwordHash, &u.EmailVerified,
		&verifyToken, &resetToken, &resetExpires, &u.CreatedAt); err != nil {
		return nil, err
	}

	if passwordHash.Valid {
		u.Credentials = models.PasswordCredentials{Hash: passwordHash.String}
	} else {
		u.Credentials = models.ExternalOnly{}
	}
	if verifyToken.Valid {
		u.VerificationToken = &verifyToken.String
	}
	if resetToken.Valid {
		u.ResetToken = &resetToken.String
	}
	if resetExpires.Valid {
		u.ResetTokenExpiresAt = &resetExpires.Time
	}

	return &u, nil
}
