package hub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// transport carries text frames between the client and the hub. onReceive
// and onClose are supplied at construction; onClose fires exactly once.
type transport interface {
	Start(ctx context.Context, endpoint string) error
	Send(ctx context.Context, data []byte) error
	Stop() error
}

type transportCallbacks struct {
	onReceive func([]byte)
	onClose   func(error)
}

func newTransport(kind TransportType, opts *Options, header http.Header, cb transportCallbacks) (transport, error) {
	switch kind {
	case TransportWebSockets:
		return &webSocketTransport{dialer: opts.Dialer, header: header, cb: cb}, nil
	case TransportServerSentEvents:
		return &sseTransport{client: opts.HTTPClient, header: header, cb: cb, done: make(chan struct{})}, nil
	default:
		return nil, fmt.Errorf("hub: unsupported transport %q", kind)
	}
}

type webSocketTransport struct {
	dialer    *websocket.Dialer
	header    http.Header
	cb        transportCallbacks
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func toWebSocketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("hub: unsupported url scheme %q", u.Scheme)
	}
	return u.String(), nil
}

func (t *webSocketTransport) Start(ctx context.Context, endpoint string) error {
	wsURL, err := toWebSocketURL(endpoint)
	if err != nil {
		return err
	}
	conn, resp, err := t.dialer.DialContext(ctx, wsURL, t.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("hub: websocket dial %s: %s: %w", wsURL, resp.Status, err)
		}
		return fmt.Errorf("hub: websocket dial %s: %w", wsURL, err)
	}
	t.conn = conn
	go t.readLoop()
	return nil
}

func (t *webSocketTransport) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = nil
			}
			t.finish(err)
			return
		}
		t.cb.onReceive(data)
	}
}

func (t *webSocketTransport) finish(err error) {
	t.closeOnce.Do(func() {
		t.cb.onClose(err)
	})
}

func (t *webSocketTransport) Send(ctx context.Context, data []byte) error {
	if t.conn == nil {
		return ErrNotConnected
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
		defer t.conn.SetWriteDeadline(time.Time{})
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *webSocketTransport) Stop() error {
	if t.conn == nil {
		return nil
	}
	t.writeMu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()
	err := t.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}
