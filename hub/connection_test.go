package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type testHub struct {
	server         *httptest.Server
	upgrader       websocket.Upgrader
	negotiates     atomic.Int32
	refuse         atomic.Bool
	handshakeReply string
	transports     string
	conns          chan *websocket.Conn
	tokens         chan string

	sseMu      sync.Mutex
	sseStreams map[string]chan string
}

func newTestHub(t *testing.T) *testHub {
	h := &testHub{
		handshakeReply: "{}",
		transports:     `[{"transport":"WebSockets","transferFormats":["Text"]},{"transport":"ServerSentEvents","transferFormats":["Text"]}]`,
		conns:          make(chan *websocket.Conn, 8),
		tokens:         make(chan string, 8),
		sseStreams:     make(map[string]chan string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/hub/negotiate", h.negotiate)
	mux.HandleFunc("/hub", h.serve)
	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)
	return h
}

func (h *testHub) url() string {
	return h.server.URL + "/hub"
}

func (h *testHub) negotiate(w http.ResponseWriter, r *http.Request) {
	n := h.negotiates.Add(1)
	if r.Method != http.MethodPost || r.URL.Query().Get("negotiateVersion") != "1" {
		http.Error(w, "bad negotiate", http.StatusBadRequest)
		return
	}
	if h.refuse.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"negotiateVersion":1,"connectionId":"conn-%d","connectionToken":"tok-%d","availableTransports":%s}`, n, n, h.transports)
}

func (h *testHub) serve(w http.ResponseWriter, r *http.Request) {
	h.tokens <- r.URL.Query().Get("id")
	switch {
	case websocket.IsWebSocketUpgrade(r):
		h.serveWebSocket(w, r)
	case r.Method == http.MethodGet:
		h.serveEventStream(w, r)
	case r.Method == http.MethodPost:
		h.receivePost(w, r)
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func (h *testHub) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	_, msg, err := conn.ReadMessage()
	if err != nil || !bytes.Contains(msg, []byte(`"protocol":"json"`)) {
		conn.Close()
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, append([]byte(h.handshakeReply), recordSeparator))
	h.conns <- conn
}

func (h *testHub) serveEventStream(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	out := make(chan string, 8)
	h.sseMu.Lock()
	h.sseStreams[id] = out
	h.sseMu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher := w.(http.Flusher)
	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-out:
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (h *testHub) receivePost(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	h.sseMu.Lock()
	out := h.sseStreams[r.URL.Query().Get("id")]
	h.sseMu.Unlock()
	if out == nil {
		http.Error(w, "no stream", http.StatusNotFound)
		return
	}
	if bytes.Contains(body, []byte(`"protocol":"json"`)) {
		out <- h.handshakeReply + string(recordSeparator)
	}
	w.WriteHeader(http.StatusOK)
}

func (h *testHub) pushSSE(t *testing.T, id, record string) {
	h.sseMu.Lock()
	out := h.sseStreams[id]
	h.sseMu.Unlock()
	require.NotNil(t, out, "no event stream for %s", id)
	out <- record
}

func (h *testHub) nextConn(t *testing.T) *websocket.Conn {
	select {
	case c := <-h.conns:
		t.Cleanup(func() { c.Close() })
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for hub connection")
		return nil
	}
}

func invocation(target string, args ...string) []byte {
	return []byte(fmt.Sprintf(`{"type":1,"target":%q,"arguments":[%s]}%c`, target, strings.Join(args, ","), recordSeparator))
}

func TestRecordReader_Feed(t *testing.T) {
	var r recordReader

	require.Empty(t, r.feed([]byte(`{"type":`)))
	records := r.feed([]byte("6}\x1e{\"type\":1}\x1e\x1e{\"ty"))
	require.Len(t, records, 2)
	require.JSONEq(t, `{"type":6}`, string(records[0]))
	require.JSONEq(t, `{"type":1}`, string(records[1]))

	records = r.feed([]byte("pe\":7}\x1e"))
	require.Len(t, records, 1)
	require.JSONEq(t, `{"type":7}`, string(records[0]))
	require.Nil(t, r.pending)
}

func TestConnection_StartDispatchesInvocations(t *testing.T) {
	h := newTestHub(t)
	c := NewConnection(h.url(), Options{})

	got := make(chan []json.RawMessage, 1)
	c.On("batterystatus", func(args []json.RawMessage) { got <- args })

	require.Equal(t, Disconnected, c.State())
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop() })
	require.Equal(t, Connected, c.State())
	require.Equal(t, "conn-1", c.ConnectionID())
	require.Equal(t, "tok-1", <-h.tokens)

	conn := h.nextConn(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, invocation("BatteryStatus", "42.5")))

	select {
	case args := <-got:
		require.Len(t, args, 1)
		require.Equal(t, "42.5", string(args[0]))
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestConnection_StartTwiceFails(t *testing.T) {
	h := newTestHub(t)
	c := NewConnection(h.url(), Options{})
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop() })
	h.nextConn(t)

	require.ErrorIs(t, c.Start(context.Background()), ErrInvalidState)
}

func TestConnection_Send(t *testing.T) {
	h := newTestHub(t)
	c := NewConnection(h.url(), Options{})
	require.ErrorIs(t, c.Send(context.Background(), "Echo", "hi"), ErrNotConnected)

	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop() })
	conn := h.nextConn(t)

	require.NoError(t, c.Send(context.Background(), "Echo", "hi", 3))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, recordSeparator, msg[len(msg)-1])
	require.JSONEq(t, `{"type":1,"target":"Echo","arguments":["hi",3]}`, string(msg[:len(msg)-1]))
}

func TestConnection_HandshakeError(t *testing.T) {
	h := newTestHub(t)
	h.handshakeReply = `{"error":"protocol not supported"}`
	c := NewConnection(h.url(), Options{})

	err := c.Start(context.Background())
	require.ErrorIs(t, err, ErrHandshakeFailed)
	require.Contains(t, err.Error(), "protocol not supported")
	require.Equal(t, Disconnected, c.State())
}

func TestConnection_NegotiateFailure(t *testing.T) {
	h := newTestHub(t)
	h.refuse.Store(true)
	c := NewConnection(h.url(), Options{})

	err := c.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
	require.Equal(t, Disconnected, c.State())
}

func TestConnection_ReconnectsAfterTransportLoss(t *testing.T) {
	h := newTestHub(t)
	c := NewConnection(h.url(), Options{ReconnectDelays: []time.Duration{0, 10 * time.Millisecond}})

	reconnecting := make(chan error, 1)
	reconnected := make(chan string, 1)
	c.OnReconnecting(func(err error) { reconnecting <- err })
	c.OnReconnected(func(id string) { reconnected <- id })

	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop() })
	h.nextConn(t).Close()

	select {
	case err := <-reconnecting:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reconnecting hook not called")
	}
	select {
	case id := <-reconnected:
		require.Equal(t, "conn-2", id)
	case <-time.After(5 * time.Second):
		t.Fatal("reconnected hook not called")
	}
	h.nextConn(t)
	require.Equal(t, Connected, c.State())
	require.EqualValues(t, 2, h.negotiates.Load())
}

func TestConnection_GivesUpWhenScheduleExhausted(t *testing.T) {
	h := newTestHub(t)
	c := NewConnection(h.url(), Options{ReconnectDelays: []time.Duration{0, 5 * time.Millisecond}})

	closed := make(chan error, 1)
	c.OnClose(func(err error) { closed <- err })

	require.NoError(t, c.Start(context.Background()))
	h.refuse.Store(true)
	h.nextConn(t).Close()

	select {
	case err := <-closed:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("close hook not called")
	}
	require.Equal(t, Disconnected, c.State())
	require.EqualValues(t, 3, h.negotiates.Load())
}

func TestConnection_ServerCloseWithoutReconnect(t *testing.T) {
	h := newTestHub(t)
	c := NewConnection(h.url(), Options{})

	var reconnecting atomic.Bool
	closed := make(chan error, 1)
	c.OnReconnecting(func(error) { reconnecting.Store(true) })
	c.OnClose(func(err error) { closed <- err })

	require.NoError(t, c.Start(context.Background()))
	conn := h.nextConn(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{\"type\":7,\"error\":\"shutting down\"}\x1e")))

	select {
	case err := <-closed:
		require.ErrorIs(t, err, ErrServerClosed)
		require.Contains(t, err.Error(), "shutting down")
	case <-time.After(5 * time.Second):
		t.Fatal("close hook not called")
	}
	require.False(t, reconnecting.Load())
	require.Equal(t, Disconnected, c.State())
}

func TestConnection_StopDoesNotReconnect(t *testing.T) {
	h := newTestHub(t)
	c := NewConnection(h.url(), Options{ReconnectDelays: []time.Duration{0}})

	var reconnecting atomic.Bool
	closed := make(chan error, 1)
	c.OnReconnecting(func(error) { reconnecting.Store(true) })
	c.OnClose(func(err error) { closed <- err })

	require.NoError(t, c.Start(context.Background()))
	h.nextConn(t)
	require.NoError(t, c.Stop())

	require.NoError(t, <-closed)
	require.Equal(t, Disconnected, c.State())
	require.Empty(t, c.ConnectionID())
	time.Sleep(50 * time.Millisecond)
	require.False(t, reconnecting.Load())
	require.EqualValues(t, 1, h.negotiates.Load())

	// Stopping twice is harmless.
	require.NoError(t, c.Stop())
}

func TestConnection_FallsBackToServerSentEvents(t *testing.T) {
	h := newTestHub(t)
	h.transports = `[{"transport":"ServerSentEvents","transferFormats":["Text"]}]`
	c := NewConnection(h.url(), Options{})

	got := make(chan []json.RawMessage, 1)
	c.On("HeartBeat", func(args []json.RawMessage) { got <- args })

	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop() })
	require.Equal(t, Connected, c.State())

	h.pushSSE(t, "tok-1", string(invocation("HeartBeat", `"alive"`)))
	select {
	case args := <-got:
		require.Equal(t, `"alive"`, string(args[0]))
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestConnection_NoSupportedTransport(t *testing.T) {
	h := newTestHub(t)
	h.transports = `[{"transport":"LongPolling","transferFormats":["Text"]}]`
	c := NewConnection(h.url(), Options{})

	err := c.Start(context.Background())
	require.True(t, errors.Is(err, ErrNoTransport))
	require.Equal(t, Disconnected, c.State())
}

func TestNegotiate_FollowsRedirect(t *testing.T) {
	var final atomic.Value
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mux.HandleFunc("/a/negotiate", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"url":%q,"accessToken":"secret"}`, srv.URL+"/b")
	})
	mux.HandleFunc("/b/negotiate", func(w http.ResponseWriter, r *http.Request) {
		final.Store(r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"negotiateVersion":1,"connectionId":"x","connectionToken":"y"}`)
	})

	endpoint, n, header, err := negotiate(context.Background(), srv.Client(), srv.URL+"/a", http.Header{})
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/b", endpoint)
	require.Equal(t, "y", n.token())
	require.Equal(t, "Bearer secret", header.Get("Authorization"))
	require.Equal(t, "Bearer secret", final.Load())
	require.True(t, n.supports(TransportWebSockets))
}

func TestOptions_CheckDefaults(t *testing.T) {
	var o Options
	o.CheckDefaults()
	require.Equal(t, DefaultReconnectDelays, o.ReconnectDelays)
	require.Equal(t, []TransportType{TransportWebSockets, TransportServerSentEvents}, o.Transports)
	require.Equal(t, 30*time.Second, o.ServerTimeout)

	disabled := Options{ReconnectDelays: []time.Duration{}, SkipNegotiation: true, KeepAliveInterval: time.Minute}
	disabled.CheckDefaults()
	require.Empty(t, disabled.ReconnectDelays)
	require.Equal(t, []TransportType{TransportWebSockets}, disabled.Transports)
	require.Equal(t, 2*time.Minute, disabled.ServerTimeout)
}

func TestConnectionState_String(t *testing.T) {
	require.Equal(t, "Connected", Connected.String())
	require.Equal(t, "Reconnecting", Reconnecting.String())
	require.Equal(t, "Unknown", Unknown.String())
	require.Equal(t, "Unknown", ConnectionState(42).String())
	require.NotEqual(t, Disconnected, Unknown)
}
