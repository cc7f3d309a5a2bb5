package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const profileColumns = `id, external_id, email, COALESCE(full_name, ''), COALESCE(class_id, ''),
       COALESCE(avatar_url, ''), role, xp, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID,
		&p.ExternalID,
		&p.Email,
		&p.FullName,
		&p.ClassID,
		&p.AvatarURL,
		&p.Role,
		&p.XP,
		&p.CreatedAt,
	)
	return p, err
}

func (r *PostgresRepo) GetByExternalID(ctx context.Context, externalID string) (Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE external_id = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, q, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, p Profile) (Profile, error) {
	q := `
INSERT INTO profiles (id, external_id, email, full_name, avatar_url, role, xp, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, 0, $7)
ON CONFLICT (external_id) DO UPDATE
SET email = EXCLUDED.email, full_name = EXCLUDED.full_name, avatar_url = EXCLUDED.avatar_url
RETURNING ` + profileColumns
	out, err := scanProfile(r.db.QueryRowContext(ctx, q,
		p.ID, p.ExternalID, p.Email, p.FullName, p.AvatarURL, p.Role, p.CreatedAt,
	))
	if err != nil {
		return Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) DeleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE external_id = $1`, externalID)
	if err != nil {
		return false, fmt.Errorf("delete profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) SetClass(ctx context.Context, externalID, classID string) (Profile, error) {
	q := `UPDATE profiles SET class_id = $2 WHERE external_id = $1 RETURNING ` + profileColumns
	p, err := scanProfile(r.db.QueryRowContext(ctx, q, externalID, classID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("set profile class: %w", err)
	}
	return p, nil
}

func (r *PostgresRepo) TopByXP(ctx context.Context, limit int) ([]Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE role = 'student' ORDER BY xp DESC, created_at ASC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("top profiles: %w", err)
	}
	defer rows.Close()

	out := make([]Profile, 0, limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
