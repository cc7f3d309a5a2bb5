package classes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepo reads the class catalogue.
//
// Tables:
// - classes(id, name, order_no)
// - subjects(id, name, category, description, image, theme)
// - class_subjects(id, class_id, subject_id)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) List(ctx context.Context) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, COALESCE(order_no, 0) FROM classes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	out := make([]Class, 0)
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Name, &c.OrderNo); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, classID string) (Class, error) {
	var c Class
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(order_no, 0) FROM classes WHERE id = $1`, classID,
	).Scan(&c.ID, &c.Name, &c.OrderNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Class{}, ErrNotFound
		}
		return Class{}, fmt.Errorf("get class: %w", err)
	}
	return c, nil
}

func (r *PostgresRepo) Subjects(ctx context.Context, classID string) ([]Subject, error) {
	const q = `
SELECT s.id, s.name, COALESCE(s.category, ''), COALESCE(s.description, ''),
       COALESCE(s.image, ''), COALESCE(s.theme, '')
FROM class_subjects cs
JOIN subjects s ON s.id = cs.subject_id
WHERE cs.class_id = $1
ORDER BY s.name
`
	rows, err := r.db.QueryContext(ctx, q, classID)
	if err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	defer rows.Close()

	out := make([]Subject, 0)
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.Description, &s.Image, &s.Theme); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
