// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/sketchchain/internal/cache"
)

// InsertSessionActionTx inserts a single action record and upserts its
// session row. Entering the reveal phase completes the session.
func InsertSessionActionTx(ctx context.Context, tx pgx.Tx, rec cache.SessionActionRecord) error {
	upsertSessionQ := `
		INSERT INTO sessions (id, game_id, status, start_time)
		VALUES ($1, $2, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertSessionQ, rec.SessionID, rec.GameID); err != nil {
		return err
	}

	payload := rec.ActionPayload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO session_actions (
			session_id, action_index, game_id, player_index, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.SessionID, rec.ActionIndex, rec.GameID, rec.PlayerIndex, rec.ActionType, jsonPayload,
		time.UnixMilli(rec.Timestamp),
	)
	if err != nil {
		return err
	}

	if rec.ActionType == "phase_reveal" {
		finalizeQ := `
			UPDATE sessions
			SET status = 'completed', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.SessionID); err != nil {
			return err
		}
	}
	return nil
}

// MarkSessionAbandonedTx marks a still running session as abandoned.
func MarkSessionAbandonedTx(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID) error {
	q := `
		UPDATE sessions
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	_, err := tx.Exec(ctx, q, sessionID)
	return err
}
