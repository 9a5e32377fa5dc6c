package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upAddClaimLease, downAddClaimLease)
}

func upAddClaimLease(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`
		ALTER TABLE scheduled_posts ADD COLUMN claimed_until TIMESTAMP WITH TIME ZONE;
	`)
	if err != nil {
		return err
	}
	return nil
}

func downAddClaimLease(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`
		ALTER TABLE scheduled_posts DROP COLUMN claimed_until;
	`)
	if err != nil {
		return err
	}
	return nil
}
