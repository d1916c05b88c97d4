// internal/game/actions.go
package game

import (
	"context"
	"time"

	"github.com/jason-s-yu/sketchchain/internal/cache"
)

// ActionLogger receives a record of every state-changing action, e.g. to feed
// the historian queue.
type ActionLogger interface {
	LogAction(ctx context.Context, rec cache.SessionActionRecord) error
}

// logAction records an action for the historian. Publishing happens in the
// background and never blocks or fails the game. Assumes lock is held.
func (g *Game) logAction(actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if g.actions == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.SessionActionRecord{
		GameID:        g.ID,
		SessionID:     g.roundID,
		ActionIndex:   g.actionIndex,
		PlayerIndex:   g.chain.CurrentPlayer(),
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.SessionActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.actions.LogAction(ctx, rec); err != nil {
			g.log.Warnf("failed to publish action %d (%s): %v", rec.ActionIndex, rec.ActionType, err)
		}
	}(record)
}
