package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidToken indicates the bearer token is malformed or unknown
	ErrInvalidToken = errors.New("invalid token")
	// ErrSessionExpired indicates the session exists but is no longer usable
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates no user matches the lookup
	ErrUserNotFound = errors.New("user not found")
)

// Service manages users and sessions
type Service interface {
	ProvisionUser(ctx context.Context, email, name, ssoSubject string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*Session, string, error)
	ValidateToken(ctx context.Context, token string) (*Context, error)
	RevokeSession(ctx context.Context, sessionID string) error
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// PostgresService implements Service backed by PostgreSQL
type PostgresService struct {
	db        *sql.DB
	generator *TokenGenerator
}

// NewPostgresService creates a new auth service
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{
		db:        db,
		generator: NewTokenGenerator(),
	}
}

// ProvisionUser creates a user on first SSO login or updates the stored
// name and subject on subsequent logins.
func (s *PostgresService) ProvisionUser(ctx context.Context, email, name, ssoSubject string) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	user := &User{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, sso_subject, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, sso_subject = EXCLUDED.sso_subject, updated_at = now()
		RETURNING id, email, name, COALESCE(sso_subject, ''), created_at, updated_at`,
		uuid.New().String(), email, name, ssoSubject,
	).Scan(&user.ID, &user.Email, &user.Name, &user.SSOSubject, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to provision user: %w", err)
	}

	return user, nil
}

// GetUser fetches a user by ID
func (s *PostgresService) GetUser(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail fetches a user by email
func (s *PostgresService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *PostgresService) getUser(ctx context.Context, column, value string) (*User, error) {
	user := &User{}
	query := fmt.Sprintf(`
		SELECT id, email, name, COALESCE(sso_subject, ''), created_at, updated_at
		FROM users WHERE %s = $1`, column)
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Email, &user.Name, &user.SSOSubject, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateSession issues a new session and returns the one-time-visible token
func (s *PostgresService) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*Session, string, error) {
	token, tokenHash, tokenPrefix, err := s.generator.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &Session{
		ID:          uuid.New().String(),
		UserID:      userID,
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		ExpiresAt:   time.Now().Add(ttl),
		CreatedAt:   time.Now(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, token_prefix, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.UserID, session.TokenHash, session.TokenPrefix,
		session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	return session, token, nil
}

// ValidateToken resolves a bearer token to an authenticated context
func (s *PostgresService) ValidateToken(ctx context.Context, token string) (*Context, error) {
	if err := s.generator.ValidateTokenFormat(token); err != nil {
		return nil, ErrInvalidToken
	}

	tokenHash := s.generator.HashToken(token)

	var (
		sessionID string
		userID    string
		email     string
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.user_id, u.email, s.expires_at, s.revoked_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1`,
		tokenHash,
	).Scan(&sessionID, &userID, &email, &expiresAt, &revokedAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	if revokedAt.Valid || time.Now().After(expiresAt) {
		return nil, ErrSessionExpired
	}

	return &Context{
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
	}, nil
}

// RevokeSession invalidates a session immediately
func (s *PostgresService) RevokeSession(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = now()
		WHERE id = $1 AND revoked_at IS NULL`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check revocation: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found or already revoked")
	}

	return nil
}

// CleanupExpiredSessions deletes sessions past their expiry. Run
// periodically by the janitor.
func (s *PostgresService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE expires_at < now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleaned sessions: %w", err)
	}
	return rows, nil
}
