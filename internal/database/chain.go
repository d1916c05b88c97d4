// internal/database/chain.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/sketchchain/internal/chain"
	"github.com/jason-s-yu/sketchchain/internal/models"
)

// ErrChainNotFound is returned when no archived chain has the given session ID.
var ErrChainNotFound = errors.New("chain not found")

// Archive is a finished round as stored for later replay.
type Archive struct {
	SessionID    uuid.UUID         `json:"sessionId"`
	GameID       uuid.UUID         `json:"gameId"`
	PlayerCount  int               `json:"playerCount"`
	Difficulty   models.Difficulty `json:"difficulty"`
	OriginalWord string            `json:"originalWord"`
	Steps        []chain.Step      `json:"steps"`
	CompletedAt  time.Time         `json:"completedAt"`
}

// Chain rebuilds the accumulator for the archived round.
func (a Archive) Chain() *chain.Chain {
	return chain.Restore(a.PlayerCount, a.Steps, 0)
}

// SaveChain stores a finished round and marks its session completed. Saving
// the same session twice replaces the earlier steps.
func SaveChain(ctx context.Context, pool *pgxpool.Pool, a Archive) error {
	err := pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertSession := `
			INSERT INTO sessions (id, game_id, status, end_time)
			VALUES ($1, $2, 'completed', NOW())
			ON CONFLICT (id) DO UPDATE SET status = 'completed', end_time = NOW()
		`
		if _, err := tx.Exec(ctx, upsertSession, a.SessionID, a.GameID); err != nil {
			return err
		}

		upsertChain := `
			INSERT INTO chains (session_id, game_id, player_count, difficulty, original_word)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (session_id)
			DO UPDATE SET player_count = $3, difficulty = $4, original_word = $5, completed_at = NOW()
		`
		if _, err := tx.Exec(ctx, upsertChain, a.SessionID, a.GameID, a.PlayerCount, string(a.Difficulty), a.OriginalWord); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM chain_steps WHERE session_id = $1`, a.SessionID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, s := range a.Steps {
			batch.Queue(`
				INSERT INTO chain_steps (session_id, step_index, id, kind, player_index, content, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, a.SessionID, i, s.ID, string(s.Kind), s.PlayerIndex, s.Content, s.CreatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("save chain %s: %w", a.SessionID, err)
	}
	return nil
}

// GetChain loads an archived round with its steps in order.
func GetChain(ctx context.Context, pool *pgxpool.Pool, sessionID uuid.UUID) (Archive, error) {
	a := Archive{SessionID: sessionID}
	var difficulty string
	q := `
		SELECT game_id, player_count, difficulty, original_word, completed_at
		FROM chains
		WHERE session_id = $1
	`
	err := pool.QueryRow(ctx, q, sessionID).Scan(&a.GameID, &a.PlayerCount, &difficulty, &a.OriginalWord, &a.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Archive{}, ErrChainNotFound
	}
	if err != nil {
		return Archive{}, fmt.Errorf("get chain %s: %w", sessionID, err)
	}
	a.Difficulty = models.Difficulty(difficulty)

	rows, err := pool.Query(ctx, `
		SELECT id, kind, player_index, content, created_at
		FROM chain_steps
		WHERE session_id = $1
		ORDER BY step_index
	`, sessionID)
	if err != nil {
		return Archive{}, fmt.Errorf("get chain steps %s: %w", sessionID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s chain.Step
		var kind string
		if err := rows.Scan(&s.ID, &kind, &s.PlayerIndex, &s.Content, &s.CreatedAt); err != nil {
			return Archive{}, err
		}
		s.Kind = chain.Kind(kind)
		a.Steps = append(a.Steps, s)
	}
	return a, rows.Err()
}
