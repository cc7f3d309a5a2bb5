package topics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepo reads topics joined with their class and subject.
//
// Tables:
// - topics(id, title, description, order_index, class_id, subject_id)
// - classes(id, name)
// - subjects(id, name)
// - student_progress(topic_id, user_id, completed, last_attempt)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, topicID string) (Topic, error) {
	const q = `
SELECT t.id, t.title, COALESCE(t.description, ''), t.order_index,
       c.id, c.name, s.id, s.name
FROM topics t
JOIN classes c ON c.id = t.class_id
JOIN subjects s ON s.id = t.subject_id
WHERE t.id = $1
`
	var t Topic
	if err := r.db.QueryRowContext(ctx, q, topicID).Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.OrderIndex,
		&t.Class.ID,
		&t.Class.Name,
		&t.Subject.ID,
		&t.Subject.Name,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Topic{}, ErrNotFound
		}
		return Topic{}, fmt.Errorf("get topic: %w", err)
	}
	return t, nil
}

func (r *PostgresRepo) ListByClassSubject(ctx context.Context, classID, subjectID, userID string) ([]Topic, error) {
	const q = `
SELECT t.id, t.title, COALESCE(t.description, ''), t.order_index,
       c.id, c.name, s.id, s.name,
       COALESCE(sp.completed, false)
FROM topics t
JOIN classes c ON c.id = t.class_id
JOIN subjects s ON s.id = t.subject_id
LEFT JOIN student_progress sp ON sp.topic_id = t.id AND sp.user_id = $3
WHERE t.class_id = $1 AND t.subject_id = $2
ORDER BY t.order_index ASC
`
	rows, err := r.db.QueryContext(ctx, q, classID, subjectID, userID)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	out := make([]Topic, 0)
	for rows.Next() {
		var t Topic
		if err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Description,
			&t.OrderIndex,
			&t.Class.ID,
			&t.Class.Name,
			&t.Subject.ID,
			&t.Subject.Name,
			&t.Completed,
		); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
