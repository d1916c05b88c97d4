// internal/handlers/handlers_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/sketchchain/internal/auth"
	"github.com/jason-s-yu/sketchchain/internal/feedback"
	"github.com/jason-s-yu/sketchchain/internal/game"
	"github.com/jason-s-yu/sketchchain/internal/models"
	"github.com/jason-s-yu/sketchchain/internal/timer"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentCadence struct{}

func (silentCadence) C() <-chan time.Time { return nil }

func (silentCadence) Stop() {}

type fixedWords struct{ word string }

func (f fixedWords) PickWord(models.Difficulty) (string, error) { return f.word, nil }

func (f fixedWords) PickWords(_ models.Difficulty, n int) ([]string, error) {
	out := make([]string, n)
	for i := range out {
		out[i] = f.word
	}
	return out, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	require.NoError(t, auth.Init())

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := NewServer(logger, nil)
	s.Cadence = func(time.Duration) timer.Cadence { return silentCadence{} }
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, h http.Handler, body string) *http.Cookie {
	t.Helper()
	w := do(t, h, http.MethodPost, "/session", body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("no device token cookie issued")
	return nil
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) game.View {
	t.Helper()
	var v game.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCreateSession(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()

	w := do(t, h, http.MethodPost, "/session", `{"players":5,"difficulty":"hard"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	v := decodeView(t, w)
	assert.Equal(t, game.PhaseLobby, v.Session.Phase)
	assert.Equal(t, 5, v.Session.PlayerCount)
	assert.Equal(t, models.DifficultyHard, v.Session.Difficulty)
	assert.Equal(t, 1, s.GameStore.Len())
}

func TestCreateSessionDefaultsAndBadInput(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()

	cookie := createSession(t, h, "")
	v := decodeView(t, do(t, h, http.MethodGet, "/session", "", cookie))
	assert.Equal(t, 6, v.Session.PlayerCount)
	assert.Equal(t, models.DefaultDifficulty, v.Session.Difficulty)

	w := do(t, h, http.MethodPost, "/session", `{"difficulty":"impossible"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/session", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSessionReplacesDeviceGame(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()

	first := createSession(t, h, "")
	w := do(t, h, http.MethodPost, "/session", "", first)
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, 1, s.GameStore.Len())
	w = do(t, h, http.MethodGet, "/session", "", first)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "old token points at a removed game")
}

func TestSessionRequiresToken(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()

	w := do(t, h, http.MethodGet, "/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	bogus := &http.Cookie{Name: auth.CookieName, Value: "not-a-token"}
	w = do(t, h, http.MethodPost, "/session/advance", "", bogus)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActionsDriveTheRound(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()
	cookie := createSession(t, h, `{"players":4}`)

	w := do(t, h, http.MethodPost, "/session/start", `{"word":"lighthouse"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v := decodeView(t, w)
	assert.Equal(t, game.PhaseCountdown, v.Session.Phase)
	assert.Equal(t, "lighthouse", v.Session.OriginalWord)

	for _, want := range []game.Phase{game.PhaseWordReveal, game.PhaseDrawing, game.PhasePassAfterDraw, game.PhaseGuessing} {
		w = do(t, h, http.MethodPost, "/session/advance", "", cookie)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, want, decodeView(t, w).Session.Phase)
	}

	w = do(t, h, http.MethodPost, "/session/advance", "", cookie)
	assert.Equal(t, http.StatusConflict, w.Code, "guessing needs a guess")

	w = do(t, h, http.MethodPost, "/session/guess", `{"text":"  tower  "}`, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v = decodeView(t, w)
	assert.Equal(t, game.PhasePassAfterGuess, v.Session.Phase)
	require.Len(t, v.Session.Steps, 3)
	assert.Equal(t, "tower", v.Session.Steps[2].Content)
	assert.Equal(t, "tower", v.Session.CurrentVisibleContent)
}

func TestActionErrorsMapToStatus(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()
	cookie := createSession(t, h, "")

	cases := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"illegal transition", "/session/transition", `{"phase":"reveal"}`, http.StatusConflict},
		{"unknown phase", "/session/transition", `{"phase":"intermission"}`, http.StatusConflict},
		{"advance without seed", "/session/advance", "", http.StatusConflict},
		{"guess outside guessing", "/session/guess", `{"text":"cat"}`, http.StatusConflict},
		{"empty guess", "/session/guess", `{"text":"   "}`, http.StatusBadRequest},
		{"skip without timer", "/session/skip", "", http.StatusConflict},
		{"empty seed", "/session/start", `{"word":" "}`, http.StatusBadRequest},
		{"start without word source", "/session/start", "", http.StatusServiceUnavailable},
		{"unknown action", "/session/dance", "", http.StatusNotFound},
		{"players without count", "/session/players", `{"count":"many"}`, http.StatusBadRequest},
		{"bad difficulty", "/session/difficulty", `{"difficulty":"impossible"}`, http.StatusBadRequest},
		{"empty settings", "/session/settings", "", http.StatusBadRequest},
		{"unknown setting", "/session/settings", `{"volume":11}`, http.StatusBadRequest},
		{"reset from lobby", "/session/reset", "", http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, tc.path, tc.body, cookie)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}

	v := decodeView(t, do(t, h, http.MethodGet, "/session", "", cookie))
	assert.Equal(t, game.PhaseLobby, v.Session.Phase, "rejected actions leave the game untouched")
}

func TestStartWithWordSource(t *testing.T) {
	s := newTestServer(t)
	s.Words = fixedWords{word: "volcano"}
	h := s.Routes()
	cookie := createSession(t, h, "")

	w := do(t, h, http.MethodPost, "/session/start", "", cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "volcano", decodeView(t, w).Session.OriginalWord)
}

func TestPlayersDifficultyAndSettings(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()
	cookie := createSession(t, h, "")

	w := do(t, h, http.MethodPost, "/session/players", `{"count":20}`, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 12, decodeView(t, w).Session.PlayerCount)

	w = do(t, h, http.MethodPost, "/session/difficulty", `{"difficulty":"Chaotic"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.DifficultyChaotic, decodeView(t, w).Session.Difficulty)

	w = do(t, h, http.MethodPost, "/session/settings", `{"drawTime":5,"guessTime":90,"toggle":"soundEnabled"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v := decodeView(t, w)
	assert.Equal(t, game.RoundSettings{DrawDurationSec: 10, GuessDurationSec: 90}, v.Session.Settings)

	st := s.Settings.Get()
	assert.False(t, st.SoundEnabled)
	assert.Equal(t, 10, st.DrawDurationSec)

	w = do(t, h, http.MethodGet, "/settings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"drawTime":10`)
}

func TestFailedSettingsKeepGameInSync(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()
	cookie := createSession(t, h, "")

	w := do(t, h, http.MethodPost, "/session/settings", `{"drawTime":90,"volume":1}`, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	assert.Equal(t, 90, s.Settings.Get().DrawDurationSec)
	v := decodeView(t, do(t, h, http.MethodGet, "/session", "", cookie))
	assert.Equal(t, 90, v.Session.Settings.DrawDurationSec)
}

func TestDeleteSession(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()
	cookie := createSession(t, h, "")

	w := do(t, h, http.MethodDelete, "/session", "", cookie)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, s.GameStore.Len())

	w = do(t, h, http.MethodGet, "/session", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthAndChains(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()

	w := do(t, h, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = do(t, h, http.MethodGet, "/chains/"+"00000000-0000-0000-0000-000000000000", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "no archive configured")
}

func TestExtractCookieToken(t *testing.T) {
	header := "theme=dark; device_token=abc.def.ghi; lang=en"
	assert.Equal(t, "abc.def.ghi", extractCookieToken(header, auth.CookieName))
	assert.Equal(t, "", extractCookieToken("theme=dark", auth.CookieName))
}

func dialSession(t *testing.T, srv *httptest.Server, cookie *http.Cookie, subprotocol string) (*websocket.Conn, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	header := http.Header{}
	if cookie != nil {
		header.Set("Cookie", auth.CookieName+"="+cookie.Value)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/session/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
		HTTPHeader:   header,
	})
	return c, err
}

// readUntil reads stream messages until match returns true.
func readUntil(t *testing.T, c *websocket.Conn, match func(StreamMessage) bool) StreamMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var msg StreamMessage
		require.NoError(t, wsjson.Read(ctx, c, &msg))
		if match(msg) {
			return msg
		}
	}
}

func TestSessionWebSocketStreamsViewsAndFeedback(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	cookie := createSession(t, s.Routes(), "")
	c, err := dialSession(t, srv, cookie, Subprotocol)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	first := readUntil(t, c, func(m StreamMessage) bool { return m.Type == "view" })
	require.NotNil(t, first.View)
	assert.Equal(t, game.PhaseLobby, first.View.Session.Phase)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, wsjson.Write(ctx, c, models.GameAction{ActionType: "ping"}))
	readUntil(t, c, func(m StreamMessage) bool { return m.Type == "pong" })

	require.NoError(t, wsjson.Write(ctx, c, models.GameAction{
		ActionType: "start",
		Payload:    map[string]interface{}{"word": "kite"},
	}))

	ev := readUntil(t, c, func(m StreamMessage) bool { return m.Type == "feedback" })
	require.NotNil(t, ev.Event)
	assert.Equal(t, feedback.ChannelAudio, ev.Event.Channel)
	assert.Equal(t, feedback.SoundCountdown, ev.Event.Sound)

	view := readUntil(t, c, func(m StreamMessage) bool {
		return m.Type == "view" && m.View.Session.Phase == game.PhaseCountdown
	})
	assert.Equal(t, "kite", view.View.Session.OriginalWord)
	assert.Greater(t, view.View.Version, first.View.Version)

	require.NoError(t, wsjson.Write(ctx, c, models.GameAction{ActionType: "guess", Payload: map[string]interface{}{"text": "bird"}}))
	errMsg := readUntil(t, c, func(m StreamMessage) bool { return m.Type == "error" })
	assert.Contains(t, errMsg.Message, game.ErrNotGuessing.Error())
}

func TestSessionWebSocketRejectsBadSubprotocol(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	cookie := createSession(t, s.Routes(), "")
	c, err := dialSession(t, srv, cookie, "game")
	require.NoError(t, err)
	defer c.CloseNow()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusCode(BadSubprotocolError), websocket.CloseStatus(err))
}

func TestSessionWebSocketRequiresSession(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	c, err := dialSession(t, srv, nil, Subprotocol)
	require.NoError(t, err)
	defer c.CloseNow()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusCode(SessionEndedError), websocket.CloseStatus(err))
}

func TestSlowClientIsClosedWithCode(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		cl := newStreamClient(ctx, cancel, c, logrus.NewEntry(logger))
		cl.out = make(chan []byte, 1)

		// No writer drains the outbox, so the second message overflows it.
		cl.enqueue(StreamMessage{Type: "pong"})
		cl.enqueue(StreamMessage{Type: "pong"})
		<-ctx.Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer c.CloseNow()

	_, _, err = c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(SlowConsumerError), websocket.CloseStatus(err))
}
