package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/openveil/veilforum/internal/database"
	"github.com/openveil/veilforum/internal/models"
)

type IdentityRepository struct {
	db *database.DB
}

func NewIdentityRepository(db *database.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

const identityColumns = `id, reg_no_hash, reg_no_index, password_hash, anonymous_handle, login_attempts, login_success_count, created_at, updated_at`

// rowScanner interface for scanning identity rows (single row or rows iteration)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIdentityRow(scanner rowScanner) (*models.Identity, error) {
	var identity models.Identity

	err := scanner.Scan(
		&identity.ID, &identity.RegNoHash, &identity.RegNoIndex,
		&identity.PasswordHash, &identity.AnonymousHandle,
		&identity.LoginAttempts, &identity.LoginSuccessCount,
		&identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &identity, nil
}

func (r *IdentityRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	identity.ID = uuid.New().String()

	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	query := `
		INSERT INTO identities (id, reg_no_hash, reg_no_index, password_hash, anonymous_handle, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + identityColumns

	created, err := scanIdentityRow(r.db.Pool.QueryRow(ctx, query,
		identity.ID, identity.RegNoHash, identity.RegNoIndex,
		identity.PasswordHash, identity.AnonymousHandle,
		identity.CreatedAt, identity.UpdatedAt,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

// GetByRegNoIndex fetches the single candidate identity for a registration
// number via its deterministic keyed digest. The caller still authenticates
// against the salted hash; the index only narrows the candidate set.
func (r *IdentityRepository) GetByRegNoIndex(ctx context.Context, index string) (*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE reg_no_index = $1`
	return scanIdentityRow(r.db.Pool.QueryRow(ctx, query, index))
}

func (r *IdentityRepository) GetByHandle(ctx context.Context, handle string) (*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE anonymous_handle = $1`
	return scanIdentityRow(r.db.Pool.QueryRow(ctx, query, handle))
}

// ListAll returns every identity record, ordered by creation time. Used by
// the scan-verify fallback; the cohort is bounded by design, so a full scan
// stays cheap.
func (r *IdentityRepository) ListAll(ctx context.Context) ([]*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities ORDER BY created_at`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query identities: %w", err)
	}
	return scanIdentityRows(rows)
}

func scanIdentityRows(rows pgx.Rows) ([]*models.Identity, error) {
	defer rows.Close()

	identities := make([]*models.Identity, 0)

	for rows.Next() {
		identity, err := scanIdentityRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, identity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return identities, nil
}

// RecordLoginAttempt prunes the identity's attempt timestamps to the sliding
// window and appends the current attempt, all as one conditional UPDATE so
// concurrent logins against the same identity serialize in the store. It
// returns false without appending when the pruned window is already at the
// attempt limit.
func (r *IdentityRepository) RecordLoginAttempt(ctx context.Context, id string, now time.Time, windowStart time.Time, maxAttempts int) (bool, error) {
	query := `
		UPDATE identities
		SET login_attempts = (
				SELECT COALESCE(array_agg(a ORDER BY a), '{}')
				FROM unnest(login_attempts) AS a
				WHERE a > $2
			) || $3::timestamptz,
			updated_at = $3
		WHERE id = $1
		  AND (SELECT count(*) FROM unnest(login_attempts) AS a WHERE a > $2) < $4
	`

	result, err := r.db.Pool.Exec(ctx, query, id, windowStart, now, maxAttempts)
	if err != nil {
		return false, database.MapPostgresError(err)
	}

	return result.RowsAffected() == 1, nil
}

// RecordLoginSuccess bumps the success counter and touches updated_at,
// which doubles as the "recently active" signal.
func (r *IdentityRepository) RecordLoginSuccess(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE identities
		SET login_success_count = login_success_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING login_success_count
	`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

func (r *IdentityRepository) CountMembers(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM identities`).Scan(&count)
	return count, database.MapPostgresError(err)
}

// CountActiveSince counts identities whose updated_at is newer than the
// given instant.
func (r *IdentityRepository) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM identities WHERE updated_at >= $1`, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

// FirstCreatedAt returns the creation instant of the oldest identity, i.e.
// when the community came into existence.
func (r *IdentityRepository) FirstCreatedAt(ctx context.Context) (*time.Time, error) {
	var createdAt time.Time
	err := r.db.Pool.QueryRow(ctx, `SELECT created_at FROM identities ORDER BY created_at LIMIT 1`).Scan(&createdAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &createdAt, nil
}
