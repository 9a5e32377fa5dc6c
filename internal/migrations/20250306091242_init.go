package migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upInit, downInit)
}

func upInit(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE scheduled_posts (
		id VARCHAR PRIMARY KEY,
		user_id BIGINT NOT NULL,
		platform VARCHAR NOT NULL,
		ig_nickname VARCHAR NOT NULL DEFAULT '',
		tt_nickname VARCHAR NOT NULL DEFAULT '',
		media_ref VARCHAR NOT NULL,
		caption TEXT NOT NULL DEFAULT '',
		hashtags TEXT[] NOT NULL DEFAULT '{}',
		schedule_kind VARCHAR NOT NULL DEFAULT 'once',
		schedule_at TIMESTAMP WITH TIME ZONE NOT NULL,
		every_hours INTEGER NOT NULL DEFAULT 0,
		status VARCHAR NOT NULL DEFAULT 'queued',
		retry_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	CREATE INDEX idx_scheduled_posts_due ON scheduled_posts (status, schedule_at);

	CREATE TABLE social_accounts (
		id SERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		platform VARCHAR NOT NULL,
		nickname VARCHAR NOT NULL,
		username VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, platform, nickname)
	);
	`)
	if err != nil {
		return err
	}
	return nil
}

func downInit(tx *sql.Tx) error {
	_, err := tx.Exec(`
	DROP TABLE scheduled_posts;
	DROP TABLE social_accounts;
	`)
	if err != nil {
		return err
	}
	return nil
}
