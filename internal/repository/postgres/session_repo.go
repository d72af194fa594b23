package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/repository"
)

// sessionRepository implements repository.SessionRepository.
type sessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(db *DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create stores a new session.
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`

	_, err := r.db.conn(ctx).Exec(ctx, query, session.ID, session.UserID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound.WithResource(session.UserID.String())
		}
		return fmt.Errorf("%w: failed to create session: %v", domain.ErrUnavailable, err)
	}
	return nil
}

// GetByID retrieves a session by ID.
func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = $1`

	session := &domain.Session{}
	err := r.db.conn(ctx).QueryRow(ctx, query, id).Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: failed to get session: %v", domain.ErrUnavailable, err)
	}
	return session, nil
}

// Delete deletes a session.
func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: failed to delete session: %v", domain.ErrUnavailable, err)
	}
	return nil
}

// DeleteExpired deletes all sessions that expired at or before now.
func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to delete expired sessions: %v", domain.ErrUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
