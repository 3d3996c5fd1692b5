package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
)

func scanProfile(row pgx.Row) (*scribe.Profile, error) {
	var p scribe.Profile
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// EnsureProfile inserts p unless the user already has a profile, and returns
// the stored row either way.
func (db *DB) EnsureProfile(ctx context.Context, p *scribe.Profile) (*scribe.Profile, error) {
	id, err := parseID(p.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid profile id %q", p.ID)
	}
	owner, err := parseID(p.UserID)
	if err != nil {
		return nil, err
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO profiles (id, user_id, name, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`, id, owner, p.Name, p.Email, p.CreatedAt)
	if err != nil {
		return nil, err
	}
	prof, err := scanProfile(db.Pool.QueryRow(ctx, `
		SELECT id::text, user_id::text, name, email, created_at
		FROM profiles WHERE user_id = $1
	`, owner))
	if err != nil {
		return nil, notFound(err)
	}
	return prof, nil
}

// UpdateProfileName sets the display name on the user's profile.
func (db *DB) UpdateProfileName(ctx context.Context, userID, name string) (*scribe.Profile, error) {
	owner, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	prof, err := scanProfile(db.Pool.QueryRow(ctx, `
		UPDATE profiles SET name = $2 WHERE user_id = $1
		RETURNING id::text, user_id::text, name, email, created_at
	`, owner, name))
	if err != nil {
		return nil, notFound(err)
	}
	return prof, nil
}
