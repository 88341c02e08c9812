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

type MessageRepository struct {
	db *database.DB
}

func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, identity_id, cipher_text, display_handle, posted_at, active, like_count, report_count, created_at, updated_at`

func scanMessageRow(scanner rowScanner) (*models.Message, error) {
	var message models.Message

	err := scanner.Scan(
		&message.ID, &message.IdentityID, &message.CipherText,
		&message.DisplayHandle, &message.PostedAt, &message.Active,
		&message.LikeCount, &message.ReportCount,
		&message.CreatedAt, &message.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &message, nil
}

func scanMessageRows(rows pgx.Rows) ([]*models.Message, error) {
	defer rows.Close()

	messages := make([]*models.Message, 0)

	for rows.Next() {
		message, err := scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return messages, nil
}

func (r *MessageRepository) Create(ctx context.Context, message *models.Message) (*models.Message, error) {
	message.ID = uuid.New().String()

	now := time.Now()
	message.CreatedAt = now
	message.UpdatedAt = now
	if message.PostedAt.IsZero() {
		message.PostedAt = now
	}
	message.Active = true

	query := `
		INSERT INTO messages (id, identity_id, cipher_text, display_handle, posted_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + messageColumns

	created, err := scanMessageRow(r.db.Pool.QueryRow(ctx, query,
		message.ID, message.IdentityID, message.CipherText,
		message.DisplayHandle, message.PostedAt, message.Active,
		message.CreatedAt, message.UpdatedAt,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

// ListVisible returns active messages posted at or after the visibility
// cutoff, newest first.
func (r *MessageRepository) ListVisible(ctx context.Context, cutoff time.Time, limit int) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE active = true AND posted_at >= $1
		ORDER BY posted_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return scanMessageRows(rows)
}

// ListVisibleByIdentity returns the identity's own messages within the
// visibility window, newest first.
func (r *MessageRepository) ListVisibleByIdentity(ctx context.Context, identityID string, cutoff time.Time) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE identity_id = $1 AND active = true AND posted_at >= $2
		ORDER BY posted_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, identityID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return scanMessageRows(rows)
}

// CountByIdentitySince counts the identity's posts newer than the window
// start. Feeds the posting quota check.
func (r *MessageRepository) CountByIdentitySince(ctx context.Context, identityID string, since time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE identity_id = $1 AND posted_at >= $2`,
		identityID, since,
	).Scan(&count)
	return count, database.MapPostgresError(err)
}

// ToggleLike flips the caller's like on a message inside a transaction,
// keeping the messages.like_count denormalization in step with the
// message_likes rows. Returns whether the message ends up liked by the
// caller.
func (r *MessageRepository) ToggleLike(ctx context.Context, messageID, identityID string) (liked bool, likeCount int, err error) {
	err = r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var active bool
		if err := tx.QueryRow(ctx, `SELECT active FROM messages WHERE id = $1 FOR UPDATE`, messageID).Scan(&active); err != nil {
			return database.MapPostgresError(err)
		}

		inserted, err := tx.Exec(ctx, `
			INSERT INTO message_likes (message_id, identity_id, liked_at)
			VALUES ($1, $2, now())
			ON CONFLICT (message_id, identity_id) DO NOTHING
		`, messageID, identityID)
		if err != nil {
			return database.MapPostgresError(err)
		}

		delta := 1
		liked = true
		if inserted.RowsAffected() == 0 {
			// Already liked: this toggle retracts it.
			if _, err := tx.Exec(ctx,
				`DELETE FROM message_likes WHERE message_id = $1 AND identity_id = $2`,
				messageID, identityID,
			); err != nil {
				return database.MapPostgresError(err)
			}
			delta = -1
			liked = false
		}

		return tx.QueryRow(ctx, `
			UPDATE messages
			SET like_count = greatest(like_count + $2, 0), updated_at = now()
			WHERE id = $1
			RETURNING like_count
		`, messageID, delta).Scan(&likeCount)
	})
	if err != nil {
		return false, 0, err
	}
	return liked, likeCount, nil
}

// Report records the caller's report of a message. A second report of the
// same message by the same identity returns ErrAlreadyReported; the report
// count only ever moves up.
func (r *MessageRepository) Report(ctx context.Context, messageID, identityID, reason string) (reportCount int, err error) {
	err = r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var active bool
		if err := tx.QueryRow(ctx, `SELECT active FROM messages WHERE id = $1 FOR UPDATE`, messageID).Scan(&active); err != nil {
			return database.MapPostgresError(err)
		}

		inserted, err := tx.Exec(ctx, `
			INSERT INTO message_reports (message_id, identity_id, reason, reported_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (message_id, identity_id) DO NOTHING
		`, messageID, identityID, reason)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if inserted.RowsAffected() == 0 {
			return models.ErrAlreadyReported
		}

		return tx.QueryRow(ctx, `
			UPDATE messages
			SET report_count = report_count + 1, updated_at = now()
			WHERE id = $1
			RETURNING report_count
		`, messageID).Scan(&reportCount)
	})
	if err != nil {
		return 0, err
	}
	return reportCount, nil
}

// DeactivateOlderThan flips active off for messages posted before the
// cutoff. Returns how many rows changed.
func (r *MessageRepository) DeactivateOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `
		UPDATE messages
		SET active = false, updated_at = now()
		WHERE active = true AND posted_at < $1
	`, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// DeleteOlderThan hard-deletes messages past the retention horizon. Likes
// and reports go with them via ON DELETE CASCADE.
func (r *MessageRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM messages WHERE posted_at < $1`, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// Stats gathers the message-side community counters in one round trip.
func (r *MessageRepository) Stats(ctx context.Context, visibilityCutoff, dayStart time.Time) (*models.MessageStats, error) {
	var stats models.MessageStats
	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE active = true AND posted_at >= $1),
			count(*) FILTER (WHERE posted_at >= $2)
		FROM messages
	`, visibilityCutoff, dayStart).Scan(&stats.Total, &stats.Active, &stats.Today)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &stats, nil
}
