package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tutor-platform/pkg/utils"
)

// NOTE: This repository assumes:
// - student_progress(topic_id, user_id, completed, last_attempt)
//   with UNIQUE (topic_id, user_id)
// - profiles(external_id, xp)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) MarkComplete(ctx context.Context, topicID, userID string, at time.Time, xp int) (bool, error) {
	var first bool
	err := utils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		first, err = upsertCompleted(ctx, tx, topicID, userID, at)
		if err != nil {
			return err
		}
		if !first || xp == 0 {
			return nil
		}
		return awardXP(ctx, tx, userID, xp)
	})
	if err != nil {
		return false, fmt.Errorf("mark complete: %w", err)
	}
	return first, nil
}

// upsertCompleted only returns a row when it inserted or flipped completed
// from false. Concurrent first completions serialize on the unique index and
// the loser sees the committed row.
func upsertCompleted(ctx context.Context, tx *sql.Tx, topicID, userID string, at time.Time) (bool, error) {
	const upsert = `
INSERT INTO student_progress (topic_id, user_id, completed, last_attempt)
VALUES ($1, $2, true, $3)
ON CONFLICT (topic_id, user_id) DO UPDATE
SET completed = true, last_attempt = EXCLUDED.last_attempt
WHERE student_progress.completed = false
RETURNING topic_id
`
	var id string
	err := tx.QueryRowContext(ctx, upsert, topicID, userID, at).Scan(&id)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	const touch = `
UPDATE student_progress SET last_attempt = $3
WHERE topic_id = $1 AND user_id = $2
`
	if _, err := tx.ExecContext(ctx, touch, topicID, userID, at); err != nil {
		return false, err
	}
	return false, nil
}

func awardXP(ctx context.Context, tx utils.DBTX, userID string, xp int) error {
	const q = `UPDATE profiles SET xp = xp + $2 WHERE external_id = $1`
	_, err := tx.ExecContext(ctx, q, userID, xp)
	return err
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	const q = `
SELECT topic_id, user_id, completed, last_attempt
FROM student_progress
WHERE user_id = $1
ORDER BY last_attempt DESC
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.TopicID, &rec.UserID, &rec.Completed, &rec.LastAttempt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
