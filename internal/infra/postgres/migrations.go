package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS title_jobs (
	id              UUID PRIMARY KEY,
	channel         TEXT NOT NULL,
	email           TEXT NOT NULL,
	status          TEXT NOT NULL,
	error_message   TEXT NOT NULL DEFAULT '',
	channel_id      TEXT NOT NULL DEFAULT '',
	channel_name    TEXT NOT NULL DEFAULT '',
	videos          JSONB NOT NULL DEFAULT 'null',
	improved_titles JSONB NOT NULL DEFAULT 'null',
	email_id        TEXT NOT NULL DEFAULT '',
	version         BIGINT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	completed_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_title_jobs_stale
	ON title_jobs (updated_at)
	WHERE status NOT IN ('COMPLETED','FAILED');
`

// RunMigrations bootstraps the schema. Statements are idempotent so every
// worker can run them at startup.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
