// internal/handlers/session_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/sketchchain/internal/auth"
	"github.com/jason-s-yu/sketchchain/internal/feedback"
	"github.com/jason-s-yu/sketchchain/internal/game"
	"github.com/jason-s-yu/sketchchain/internal/middleware"
	"github.com/jason-s-yu/sketchchain/internal/models"
	"github.com/jason-s-yu/sketchchain/internal/settings"
	"github.com/sirupsen/logrus"
)

const (
	// Subprotocol is the websocket subprotocol a device UI must request.
	Subprotocol = "sketchchain"

	outboxSize   = 64
	writeTimeout = 3 * time.Second
)

// StreamMessage is everything the server pushes down the session websocket.
type StreamMessage struct {
	Type     string             `json:"type"`
	View     *game.View         `json:"view,omitempty"`
	Event    *feedback.Event    `json:"event,omitempty"`
	Settings *settings.Settings `json:"settings,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// SessionWSHandler upgrades to a websocket that streams the device's game.
// The client receives the current view immediately, then every later view,
// feedback event and settings change. Commands arrive as models.GameAction
// messages and go through the same dispatcher as the HTTP actions.
func (s *Server) SessionWSHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warnf("WebSocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	if c.Subprotocol() != Subprotocol {
		s.logger.Warnf("Client %s connected with invalid subprotocol: %q", r.RemoteAddr, c.Subprotocol())
		c.Close(websocket.StatusCode(BadSubprotocolError), "Client must use the 'sketchchain' subprotocol.")
		return
	}

	g, err := s.gameFromRequest(r)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			c.Close(websocket.StatusCode(InvalidAuthTokenError), "Invalid device token.")
		} else {
			c.Close(websocket.StatusCode(SessionEndedError), "No session for this device.")
		}
		return
	}

	log := s.logger.WithField("game", g.ID)
	middleware.LogWebSocketConnect(log, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cl := newStreamClient(ctx, cancel, c, log)
	go cl.writeLoop()

	stopViews := g.Subscribe(func(v game.View) {
		cl.enqueue(StreamMessage{Type: "view", View: &v})
	})
	defer stopViews()

	if hub, ok := s.Hub(g.ID); ok {
		stopEvents := hub.Listen(func(ev feedback.Event) {
			cl.enqueue(StreamMessage{Type: "feedback", Event: &ev})
		})
		defer stopEvents()
	}

	stopSettings := s.Settings.Subscribe(func(st settings.Settings) {
		cl.enqueue(StreamMessage{Type: "settings", Settings: &st})
	})
	defer stopSettings()

	err = s.readSessionMessages(ctx, c, g, cl, log)
	middleware.LogWebSocketDisconnect(log, r.RemoteAddr, r.URL.Path, err)

	if cl.dropped.Load() {
		// enqueue already sent the slow consumer close.
		return
	}
	c.Close(websocket.StatusNormalClosure, "")
}

// readSessionMessages routes client commands until the connection or ctx ends.
// A clean close returns nil.
func (s *Server) readSessionMessages(ctx context.Context, c *websocket.Conn, g *game.Game, cl *streamClient, log *logrus.Entry) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if ctx.Err() != nil || strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}

		if msgType != websocket.MessageText {
			log.Warnf("Received non-text message type %d. Ignoring.", msgType)
			continue
		}

		var action models.GameAction
		if err := json.Unmarshal(data, &action); err != nil {
			log.Warnf("Invalid JSON received: %v. Data: %s", err, string(data))
			cl.enqueue(StreamMessage{Type: "error", Message: "Invalid JSON format."})
			continue
		}

		if action.ActionType == "ping" {
			cl.enqueue(StreamMessage{Type: "pong"})
			continue
		}

		log.Debugf("Received action %q", action.ActionType)
		if err := s.dispatch(ctx, g, action); err != nil {
			cl.enqueue(StreamMessage{Type: "error", Message: err.Error()})
		}
	}
}

// streamClient serializes writes to one connection. enqueue never blocks the
// game: a client whose outbox is full is cut off instead.
type streamClient struct {
	ctx     context.Context
	cancel  context.CancelFunc
	conn    *websocket.Conn
	out     chan []byte
	dropped atomic.Bool
	log     *logrus.Entry
}

func newStreamClient(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, log *logrus.Entry) *streamClient {
	return &streamClient{
		ctx:    ctx,
		cancel: cancel,
		conn:   conn,
		out:    make(chan []byte, outboxSize),
		log:    log,
	}
}

func (cl *streamClient) enqueue(msg StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		cl.log.Errorf("Failed to marshal %s message: %v", msg.Type, err)
		return
	}
	select {
	case <-cl.ctx.Done():
	case cl.out <- data:
	default:
		if !cl.dropped.Swap(true) {
			cl.log.Warn("Outbox full, dropping slow client")
			go cl.closeSlow()
		}
	}
}

// closeSlow sends the slow consumer close frame, then cancels the client.
func (cl *streamClient) closeSlow() {
	defer cl.cancel()
	if cl.conn == nil {
		return
	}
	if err := cl.conn.Close(websocket.StatusCode(SlowConsumerError), "Client fell behind the view stream."); err != nil {
		cl.log.Debugf("slow consumer close: %v", err)
	}
}

func (cl *streamClient) writeLoop() {
	for {
		select {
		case <-cl.ctx.Done():
			return
		case data := <-cl.out:
			ctx, cancel := context.WithTimeout(cl.ctx, writeTimeout)
			err := cl.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				cl.log.Warnf("Failed to write message: %v", err)
				cl.cancel()
				return
			}
		}
	}
}
