package noahark

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/NikosBletsas/NoahArk-v2/api"
	"github.com/NikosBletsas/NoahArk-v2/hub"
	"github.com/NikosBletsas/NoahArk-v2/util"
)

// HubConnection is the subset of *hub.Connection the manager drives.
type HubConnection interface {
	Start(ctx context.Context) error
	Stop() error
	State() hub.ConnectionState
	On(target string, handler hub.Handler)
	OnClose(func(error))
	OnReconnecting(func(error))
	OnReconnected(func(connectionID string))
}

// HubConnectionFactory builds an unstarted connection to url.
type HubConnectionFactory func(url string) HubConnection

func defaultHubConnectionFactory(o *Options) HubConnectionFactory {
	return func(url string) HubConnection {
		return hub.NewConnection(url, o.hubOptions())
	}
}

// Listener receives the payload of one server push.
type Listener func(payload json.RawMessage)

type connectAttempt struct {
	done chan struct{}
	conn HubConnection
	err  error
}

// ConnectionManager shares one hub connection between every part of the
// application interested in its events.
type ConnectionManager struct {
	url     string
	events  []string
	options *Options

	mu         sync.Mutex
	conn       HubConnection
	attempt    *connectAttempt
	generation uint64
	closed     bool

	listenersMu sync.Mutex
	listeners   map[string]map[uint64]Listener
	nextID      uint64
}

// NewConnectionManager routes the named events of the hub at url to
// registered listeners. options must have had CheckDefaults applied.
func NewConnectionManager(url string, events []string, options *Options) *ConnectionManager {
	return &ConnectionManager{
		url:       url,
		events:    append([]string(nil), events...),
		options:   options,
		listeners: make(map[string]map[uint64]Listener),
	}
}

func (m *ConnectionManager) URL() string {
	return m.url
}

// Connect returns the shared connection, starting it if needed. Callers
// that arrive while an attempt is in flight wait for its outcome rather
// than starting a second transport.
func (m *ConnectionManager) Connect(ctx context.Context) (HubConnection, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrConnectionManagerClosed
	}
	if m.conn != nil && m.conn.State() != hub.Disconnected {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	if a := m.attempt; a != nil {
		m.mu.Unlock()
		return m.await(ctx, a)
	}
	a := &connectAttempt{done: make(chan struct{})}
	m.attempt = a
	generation := m.generation
	stale := m.conn
	m.conn = nil
	m.mu.Unlock()

	if stale != nil {
		_ = stale.Stop()
	}

	conn, err := m.start(ctx)

	m.mu.Lock()
	if m.attempt == a {
		m.attempt = nil
	}
	if err == nil && (m.generation != generation || m.closed) {
		m.mu.Unlock()
		_ = conn.Stop()
		conn, err = nil, &ConnectionError{URL: m.url, Err: hub.ErrStopped}
		m.mu.Lock()
	}
	if err == nil {
		m.conn = conn
	}
	m.mu.Unlock()

	a.conn, a.err = conn, err
	close(a.done)

	if err != nil {
		util.Warnf("hub connection to %s failed: %v", m.url, err)
		m.notify(api.ClientEventType_HubFailure, "", err)
		return nil, err
	}
	m.notify(api.ClientEventType_HubConnected, hub.Connected.String(), nil)
	return conn, nil
}

func (m *ConnectionManager) await(ctx context.Context, a *connectAttempt) (HubConnection, error) {
	deadline := time.Now().Add(m.options.ConnectWaitTimeout)
	ticker := time.NewTicker(m.options.ConnectPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.done:
			return a.conn, a.err
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return nil, ErrConnectionInFlightTimeout
			}
		}
	}
}

func (m *ConnectionManager) start(ctx context.Context) (HubConnection, error) {
	conn := m.options.HubConnectionFactory(m.url)
	for _, event := range m.events {
		event := event
		conn.On(event, func(args []json.RawMessage) {
			m.dispatch(event, firstArgument(args))
		})
	}
	conn.OnReconnecting(func(err error) {
		m.notify(api.ClientEventType_HubReconnecting, hub.Reconnecting.String(), err)
	})
	conn.OnReconnected(func(string) {
		m.notify(api.ClientEventType_HubReconnected, hub.Connected.String(), nil)
	})
	conn.OnClose(func(err error) {
		m.notify(api.ClientEventType_HubClosed, hub.Disconnected.String(), err)
	})

	util.Debugf("connecting to hub %s", m.url)
	if err := conn.Start(ctx); err != nil {
		return nil, &ConnectionError{URL: m.url, Err: err}
	}
	return conn, nil
}

func firstArgument(args []json.RawMessage) json.RawMessage {
	if len(args) == 0 {
		return json.RawMessage("null")
	}
	return args[0]
}

// AddListener registers listener for eventName. The returned function
// removes exactly this registration and may be called more than once.
func (m *ConnectionManager) AddListener(eventName string, listener Listener) (unsubscribe func()) {
	key := strings.ToLower(eventName)

	m.listenersMu.Lock()
	m.nextID++
	id := m.nextID
	set := m.listeners[key]
	if set == nil {
		set = make(map[uint64]Listener)
		m.listeners[key] = set
	}
	set[id] = listener
	m.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			defer m.listenersMu.Unlock()
			if set, ok := m.listeners[key]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(m.listeners, key)
				}
			}
		})
	}
}

// ListenerCount reports how many listeners are registered for eventName.
func (m *ConnectionManager) ListenerCount(eventName string) int {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	return len(m.listeners[strings.ToLower(eventName)])
}

// dispatch invokes a snapshot of the listeners so they may register or
// unsubscribe from inside the callback.
func (m *ConnectionManager) dispatch(eventName string, payload json.RawMessage) {
	m.listenersMu.Lock()
	set := m.listeners[strings.ToLower(eventName)]
	snapshot := make([]Listener, 0, len(set))
	for _, l := range set {
		snapshot = append(snapshot, l)
	}
	m.listenersMu.Unlock()

	for _, l := range snapshot {
		l(payload)
	}
}

// ConnectionState is for display only.
func (m *ConnectionManager) ConnectionState() hub.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		if s := m.conn.State(); s >= hub.Disconnected && s < hub.Unknown {
			return s
		}
		return hub.Unknown
	}
	if m.attempt != nil {
		return hub.Connecting
	}
	return hub.Disconnected
}

// Disconnect stops the connection and drops every listener. A later
// Connect starts from scratch.
func (m *ConnectionManager) Disconnect() error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.attempt = nil
	m.generation++
	m.mu.Unlock()

	m.listenersMu.Lock()
	m.listeners = make(map[string]map[uint64]Listener)
	m.listenersMu.Unlock()

	if conn == nil {
		return nil
	}
	util.Debugf("disconnecting from hub %s", m.url)
	return conn.Stop()
}

// Close disconnects and rejects further Connect calls.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.Disconnect()
}

func (m *ConnectionManager) notify(eventType api.ClientEventType, status string, err error) {
	sendClientEvent(m.options.ClientEventHandler, api.ClientEvent{
		EventType: eventType,
		EventData: m.url,
		Status:    status,
		Error:     err,
	})
}

func sendClientEvent(ch chan api.ClientEvent, event api.ClientEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- event:
	default:
		util.Debugf("client event channel full, dropping %s event", event.EventType)
	}
}
