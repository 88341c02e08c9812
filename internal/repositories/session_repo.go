package repositories

import (
	"context"
	"time"

	"github.com/openveil/veilforum/internal/database"
	"github.com/openveil/veilforum/internal/models"
)

type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (token_hash, identity_id, anonymous_handle, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		session.TokenHash, session.IdentityID, session.AnonymousHandle,
		session.ExpiresAt, session.CreatedAt,
	)
	return database.MapPostgresError(err)
}

// GetByTokenHash resolves a live session. Expired sessions are invisible
// here; the sweeper removes the rows later.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	query := `
		SELECT token_hash, identity_id, anonymous_handle, expires_at, created_at
		FROM sessions
		WHERE token_hash = $1 AND expires_at > now()
	`

	var session models.Session
	err := r.db.Pool.QueryRow(ctx, query, tokenHash).Scan(
		&session.TokenHash, &session.IdentityID, &session.AnonymousHandle,
		&session.ExpiresAt, &session.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return database.MapPostgresError(err)
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
