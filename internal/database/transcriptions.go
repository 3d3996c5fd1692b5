package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
)

const transcriptionColumns = `id::text, user_id::text, video_url, video_title, channel_name,
	transcription_text, status, created_at, updated_at`

func scanTranscription(row pgx.Row) (*scribe.Transcription, error) {
	var t scribe.Transcription
	var status string
	if err := row.Scan(
		&t.ID, &t.UserID, &t.VideoURL, &t.Title, &t.Channel,
		&t.Text, &status, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = scribe.Status(status)
	if !t.Status.Valid() {
		return nil, fmt.Errorf("transcription %s: unknown status %q", t.ID, status)
	}
	return &t, nil
}

// InsertTranscription stores a new record.
func (db *DB) InsertTranscription(ctx context.Context, t *scribe.Transcription) error {
	id, err := parseID(t.ID)
	if err != nil {
		return fmt.Errorf("invalid transcription id %q", t.ID)
	}
	owner, err := parseID(t.UserID)
	if err != nil {
		return fmt.Errorf("invalid user id %q", t.UserID)
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO transcriptions (id, user_id, video_url, video_title, channel_name,
			transcription_text, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, owner, t.VideoURL, t.Title, t.Channel, t.Text, string(t.Status), t.CreatedAt, t.UpdatedAt)
	return err
}

// GetTranscription loads one record regardless of owner.
func (db *DB) GetTranscription(ctx context.Context, id string) (*scribe.Transcription, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	t, err := scanTranscription(db.Pool.QueryRow(ctx,
		`SELECT `+transcriptionColumns+` FROM transcriptions WHERE id = $1`, uid))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// ListTranscriptions returns the owner's records, newest first.
func (db *DB) ListTranscriptions(ctx context.Context, userID string) ([]scribe.Transcription, error) {
	owner, err := parseID(userID)
	if err != nil {
		return []scribe.Transcription{}, nil
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT `+transcriptionColumns+`
		FROM transcriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []scribe.Transcription{}
	for rows.Next() {
		t, err := scanTranscription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

// UpdateTranscriptionText replaces the text of a record owned by userID.
// Status is left untouched.
func (db *DB) UpdateTranscriptionText(ctx context.Context, id, userID, text string) (*scribe.Transcription, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	owner, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	t, err := scanTranscription(db.Pool.QueryRow(ctx, `
		UPDATE transcriptions SET transcription_text = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+transcriptionColumns, uid, owner, text))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// DeleteTranscription removes a record owned by userID.
func (db *DB) DeleteTranscription(ctx context.Context, id, userID string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	owner, err := parseID(userID)
	if err != nil {
		return err
	}
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM transcriptions WHERE id = $1 AND user_id = $2`, uid, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scribe.ErrNotFound
	}
	return nil
}

// FinishTranscription moves a processing record to status, writing the
// result. Empty title or channel keep the stored value. A record that has
// already left processing is not touched and yields scribe.ErrTerminal.
func (db *DB) FinishTranscription(ctx context.Context, id string, status scribe.Status, res scribe.Result) (*scribe.Transcription, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("finish with non-terminal status %q", status)
	}
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	t, err := scanTranscription(db.Pool.QueryRow(ctx, `
		UPDATE transcriptions SET
			status = $2,
			transcription_text = $3,
			video_title = COALESCE(NULLIF($4, ''), video_title),
			channel_name = COALESCE(NULLIF($5, ''), channel_name),
			updated_at = now()
		WHERE id = $1 AND status = 'processing'
		RETURNING `+transcriptionColumns,
		uid, string(status), res.Text, res.Title, res.Channel))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transcriptions WHERE id = $1)`, uid,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, scribe.ErrTerminal
	}
	return nil, scribe.ErrNotFound
}

// CountTranscriptions returns how many records userID owns.
func (db *DB) CountTranscriptions(ctx context.Context, userID string) (int, error) {
	owner, err := parseID(userID)
	if err != nil {
		return 0, nil
	}
	var n int
	err = db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM transcriptions WHERE user_id = $1`, owner,
	).Scan(&n)
	return n, err
}
