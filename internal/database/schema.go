package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// schemaLockID serializes schema setup between instances starting together.
const schemaLockID = 7_345_120_001

// InitSchema applies schemaSQL when the transcriptions table does not exist
// yet. Older databases are left to Migrate.
func (db *DB) InitSchema(ctx context.Context, schemaSQL []byte) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
			return fmt.Errorf("schema lock: %w", err)
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT to_regclass('public.transcriptions') IS NOT NULL`).Scan(&exists); err != nil {
			return fmt.Errorf("check schema: %w", err)
		}
		if exists {
			db.log.Debug().Msg("schema present")
			return nil
		}

		db.log.Info().Msg("empty database, applying schema")
		if _, err := tx.Exec(ctx, string(schemaSQL)); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
}
