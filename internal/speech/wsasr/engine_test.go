package wsasr

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-assistant/internal/speech"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

type recordedEvent struct {
	kind   string
	result speech.ResultEvent
	code   speech.ErrorCode
}

func recordingHandler() (speech.Handler, <-chan recordedEvent) {
	events := make(chan recordedEvent, 16)
	return speech.HandlerFuncs{
		Start:  func() { events <- recordedEvent{kind: "start"} },
		Result: func(ev speech.ResultEvent) { events <- recordedEvent{kind: "result", result: ev} },
		Error:  func(code speech.ErrorCode) { events <- recordedEvent{kind: "error", code: code} },
		End:    func() { events <- recordedEvent{kind: "end"} },
	}, events
}

func next(t *testing.T, events <-chan recordedEvent) recordedEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recognition event")
		return recordedEvent{}
	}
}

// gateway is a scripted recognition gateway. script runs after the start frame.
func gateway(t *testing.T, script func(conn *websocket.Conn, start controlFrame)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var start controlFrame
		if err := conn.ReadJSON(&start); err != nil {
			return
		}
		script(conn, start)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newEngine(t *testing.T, url, token string) *Engine {
	t.Helper()
	engine, err := New(Config{URL: url, Token: token, HandshakeTimeout: time.Second}, logging.New("error"))
	require.NoError(t, err)
	return engine
}

func TestSessionStreamsEventsUntilStop(t *testing.T) {
	starts := make(chan controlFrame, 1)
	srv := gateway(t, func(conn *websocket.Conn, start controlFrame) {
		starts <- start
		_ = conn.WriteJSON(eventFrame{Type: frameStart})
		_ = conn.WriteJSON(eventFrame{Type: frameResult, Index: 0, Results: []speech.Result{
			{Final: true, Alternatives: []speech.Alternative{{Transcript: "đặt lịch khám", Confidence: 0.92}}},
		}})
		var stop controlFrame
		if err := conn.ReadJSON(&stop); err != nil || stop.Type != frameStop {
			return
		}
		_ = conn.WriteJSON(eventFrame{Type: frameEnd})
	})

	h, events := recordingHandler()
	sess, err := newEngine(t, wsURL(srv), "secret").NewSession(speech.Options{
		Language: "vi-VN", Continuous: true, InterimResults: true, MaxAlternatives: 3,
	}, h)
	require.NoError(t, err)
	require.NoError(t, sess.Start())

	start := <-starts
	assert.Equal(t, controlFrame{Type: frameStart, Language: "vi-VN", Continuous: true, InterimResults: true, MaxAlternatives: 3}, start)

	assert.Equal(t, "start", next(t, events).kind)
	ev := next(t, events)
	require.Equal(t, "result", ev.kind)
	last, ok := ev.result.Last()
	require.True(t, ok)
	assert.True(t, last.Final)
	assert.Equal(t, "đặt lịch khám", last.Transcript())

	assert.ErrorIs(t, sess.Start(), speech.ErrAlreadyStarted)

	sess.Stop()
	assert.Equal(t, "end", next(t, events).kind)

	require.Eventually(t, func() bool {
		return !sess.(*session).isRunning()
	}, time.Second, 10*time.Millisecond)
}

func TestSessionForwardsGatewayErrors(t *testing.T) {
	srv := gateway(t, func(conn *websocket.Conn, _ controlFrame) {
		_ = conn.WriteJSON(eventFrame{Type: frameError, Error: "no-speech"})
		_ = conn.WriteJSON(eventFrame{Type: frameEnd})
	})

	h, events := recordingHandler()
	sess, err := newEngine(t, wsURL(srv), "secret").NewSession(speech.Options{Language: "vi-VN"}, h)
	require.NoError(t, err)
	require.NoError(t, sess.Start())

	ev := next(t, events)
	assert.Equal(t, "error", ev.kind)
	assert.Equal(t, speech.ErrNoSpeech, ev.code)
	assert.Equal(t, "end", next(t, events).kind)
}

func TestDroppedStreamReportsNetworkError(t *testing.T) {
	srv := gateway(t, func(conn *websocket.Conn, _ controlFrame) {
		_ = conn.WriteJSON(eventFrame{Type: frameStart})
		// Returning closes the socket without a close frame.
	})

	h, events := recordingHandler()
	sess, err := newEngine(t, wsURL(srv), "secret").NewSession(speech.Options{}, h)
	require.NoError(t, err)
	require.NoError(t, sess.Start())

	assert.Equal(t, "start", next(t, events).kind)
	ev := next(t, events)
	assert.Equal(t, "error", ev.kind)
	assert.Equal(t, speech.ErrNetwork, ev.code)
	assert.Equal(t, "end", next(t, events).kind)
}

func TestAbortEndsWithoutError(t *testing.T) {
	release := make(chan struct{})
	srv := gateway(t, func(conn *websocket.Conn, _ controlFrame) {
		_ = conn.WriteJSON(eventFrame{Type: frameStart})
		<-release
	})
	t.Cleanup(func() { close(release) })

	h, events := recordingHandler()
	sess, err := newEngine(t, wsURL(srv), "secret").NewSession(speech.Options{}, h)
	require.NoError(t, err)
	require.NoError(t, sess.Start())
	assert.Equal(t, "start", next(t, events).kind)

	sess.Abort()
	assert.Equal(t, "end", next(t, events).kind)
}

func TestRejectedHandshakeReportsNetworkError(t *testing.T) {
	srv := gateway(t, func(*websocket.Conn, controlFrame) {})

	h, events := recordingHandler()
	sess, err := newEngine(t, wsURL(srv), "wrong").NewSession(speech.Options{}, h)
	require.NoError(t, err)

	require.NoError(t, sess.Start())
	ev := next(t, events)
	assert.Equal(t, "error", ev.kind)
	assert.Equal(t, speech.ErrNetwork, ev.code)
	assert.Equal(t, "end", next(t, events).kind)
	assert.False(t, sess.(*session).isRunning())
}

// stalledGateway holds every upgrade until the returned release func runs.
func stalledGateway(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	gate := make(chan struct{})
	var once sync.Once
	release := func() { once.Do(func() { close(gate) }) }

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-gate
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var start controlFrame
		if err := conn.ReadJSON(&start); err != nil {
			return
		}
		_ = conn.WriteJSON(eventFrame{Type: frameStart})
		var stop controlFrame
		if err := conn.ReadJSON(&stop); err != nil || stop.Type != frameStop {
			return
		}
		_ = conn.WriteJSON(eventFrame{Type: frameEnd})
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(release)
	return srv, release
}

func TestStartDoesNotWaitForHandshake(t *testing.T) {
	srv, release := stalledGateway(t)

	h, events := recordingHandler()
	sess, err := newEngine(t, wsURL(srv), "").NewSession(speech.Options{Language: "vi-VN"}, h)
	require.NoError(t, err)

	began := time.Now()
	require.NoError(t, sess.Start())
	assert.Less(t, time.Since(began), 200*time.Millisecond)
	assert.True(t, sess.(*session).isRunning())
	assert.ErrorIs(t, sess.Start(), speech.ErrAlreadyStarted)

	// A stop issued mid-handshake goes out once the socket is up.
	sess.Stop()
	release()

	assert.Equal(t, "start", next(t, events).kind)
	assert.Equal(t, "end", next(t, events).kind)
	require.Eventually(t, func() bool {
		return !sess.(*session).isRunning()
	}, time.Second, 10*time.Millisecond)
}

func TestAbortDuringHandshakeEndsWithoutError(t *testing.T) {
	srv, release := stalledGateway(t)

	h, events := recordingHandler()
	sess, err := newEngine(t, wsURL(srv), "").NewSession(speech.Options{}, h)
	require.NoError(t, err)
	require.NoError(t, sess.Start())

	sess.Abort()
	release()

	assert.Equal(t, "end", next(t, events).kind)
	select {
	case ev := <-events:
		t.Fatalf("unexpected %s event after abort", ev.kind)
	case <-time.After(100 * time.Millisecond):
	}
	assert.False(t, sess.(*session).isRunning())
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}
