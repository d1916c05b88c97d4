// internal/database/schema.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         UUID PRIMARY KEY,
	game_id    UUID NOT NULL,
	status     TEXT NOT NULL DEFAULT 'in_progress',
	start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS chains (
	session_id    UUID PRIMARY KEY REFERENCES sessions (id) ON DELETE CASCADE,
	game_id       UUID NOT NULL,
	player_count  INT NOT NULL,
	difficulty    TEXT NOT NULL,
	original_word TEXT NOT NULL,
	completed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chain_steps (
	session_id   UUID NOT NULL REFERENCES chains (session_id) ON DELETE CASCADE,
	step_index   INT NOT NULL,
	id           UUID NOT NULL,
	kind         TEXT NOT NULL,
	player_index INT NOT NULL,
	content      TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, step_index)
);

CREATE TABLE IF NOT EXISTS session_actions (
	session_id     UUID NOT NULL,
	action_index   INT NOT NULL,
	game_id        UUID NOT NULL,
	player_index   INT NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (session_id, action_index)
);
`

// Migrate creates any missing tables.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
