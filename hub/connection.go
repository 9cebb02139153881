// Package hub is a client for SignalR-style notification hubs speaking the
// JSON hub protocol over WebSockets or server-sent events, with automatic
// reconnection on a fixed delay schedule.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NikosBletsas/NoahArk-v2/util"
)

var (
	ErrHandshakeFailed = errors.New("hub: handshake failed")
	ErrNoTransport     = errors.New("hub: no transport could be started")
	ErrNotConnected    = errors.New("hub: connection is not active")
	ErrServerClosed    = errors.New("hub: server closed the connection")
	ErrServerTimeout   = errors.New("hub: server timeout elapsed without receiving a message")
	ErrInvalidState    = errors.New("hub: connection is not in the Disconnected state")
	ErrStopped         = errors.New("hub: connection was stopped")
)

// Handler receives the raw arguments of a server invocation.
type Handler func(args []json.RawMessage)

type session struct {
	transport transport
	reader    recordReader
	handshook bool
	handshake chan error
	closed    chan struct{}
	closeErr  error

	mu          sync.Mutex
	lastReceive time.Time
	serverClose *closeMessage
	timedOut    bool
}

func newSession() *session {
	return &session{
		handshake:   make(chan error, 1),
		closed:      make(chan struct{}),
		lastReceive: time.Now(),
	}
}

// Connection is a single logical hub connection. It survives transport
// loss by reconnecting per Options.ReconnectDelays.
type Connection struct {
	endpoint string
	opts     Options

	mu           sync.Mutex
	state        ConnectionState
	epoch        uint64
	connectionID string
	current      *session
	stopCh       chan struct{}

	handlersMu     sync.RWMutex
	handlers       map[string][]Handler
	onClose        []func(error)
	onReconnecting []func(error)
	onReconnected  []func(string)
}

func NewConnection(endpoint string, opts Options) *Connection {
	opts.CheckDefaults()
	return &Connection{
		endpoint: endpoint,
		opts:     opts,
		handlers: make(map[string][]Handler),
	}
}

func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionID
}

// On registers handler for invocations of target. Target matching is
// case-insensitive.
func (c *Connection) On(target string, handler Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	key := strings.ToLower(target)
	c.handlers[key] = append(c.handlers[key], handler)
}

// OnClose is called when the connection reaches Disconnected, with the
// cause or nil after Stop.
func (c *Connection) OnClose(f func(error)) {
	c.handlersMu.Lock()
	c.onClose = append(c.onClose, f)
	c.handlersMu.Unlock()
}

func (c *Connection) OnReconnecting(f func(error)) {
	c.handlersMu.Lock()
	c.onReconnecting = append(c.onReconnecting, f)
	c.handlersMu.Unlock()
}

func (c *Connection) OnReconnected(f func(connectionID string)) {
	c.handlersMu.Lock()
	c.onReconnected = append(c.onReconnected, f)
	c.handlersMu.Unlock()
}

func (c *Connection) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return ErrInvalidState
	}
	c.state = Connecting
	c.epoch++
	epoch := c.epoch
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	s, id, err := c.connectSession(ctx, stopCh)
	if err != nil {
		c.mu.Lock()
		if c.epoch == epoch && c.state == Connecting {
			c.state = Disconnected
		}
		c.mu.Unlock()
		return err
	}
	if !c.adopt(s, id, epoch, Connecting) {
		_ = s.transport.Stop()
		c.mu.Lock()
		if c.epoch == epoch && c.state == Connecting {
			c.state = Disconnected
		}
		c.mu.Unlock()
		return ErrStopped
	}
	util.Infof("hub: connected to %s", c.endpoint)
	return nil
}

// Stop tears the connection down. It never triggers a reconnect.
func (c *Connection) Stop() error {
	c.mu.Lock()
	if c.state == Disconnected || c.state == Disconnecting {
		c.mu.Unlock()
		return nil
	}
	prev := c.state
	c.state = Disconnecting
	c.epoch++
	close(c.stopCh)
	s := c.current
	c.current = nil
	c.mu.Unlock()

	var err error
	if s != nil {
		err = s.transport.Stop()
	}

	c.mu.Lock()
	c.state = Disconnected
	c.connectionID = ""
	c.mu.Unlock()

	if prev != Connecting {
		c.fireClose(nil)
	}
	return err
}

// Send invokes target on the server without waiting for a result.
func (c *Connection) Send(ctx context.Context, target string, args ...interface{}) error {
	c.mu.Lock()
	s := c.current
	state := c.state
	c.mu.Unlock()
	if s == nil || state != Connected {
		return ErrNotConnected
	}

	msg := invocationMessage{Type: invocationMessageType, Target: target, Arguments: make([]json.RawMessage, 0, len(args))}
	for _, a := range args {
		raw, err := json.Marshal(a)
		if err != nil {
			return err
		}
		msg.Arguments = append(msg.Arguments, raw)
	}
	rec, err := encodeRecord(msg)
	if err != nil {
		return err
	}
	return s.transport.Send(ctx, rec)
}

// adopt makes s the live session if nothing else changed the connection
// since the attempt began.
func (c *Connection) adopt(s *session, id string, epoch uint64, from ConnectionState) bool {
	c.mu.Lock()
	if c.epoch != epoch || c.state != from {
		c.mu.Unlock()
		return false
	}
	select {
	case <-s.closed:
		c.mu.Unlock()
		return false
	default:
	}
	c.current = s
	c.connectionID = id
	c.state = Connected
	c.mu.Unlock()

	go c.keepAlive(s)
	return true
}

func (c *Connection) connectSession(ctx context.Context, stopCh <-chan struct{}) (*session, string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	endpoint := c.endpoint
	header := c.opts.Header.Clone()
	var neg negotiateResponse
	if !c.opts.SkipNegotiation {
		var err error
		endpoint, neg, header, err = negotiate(ctx, c.opts.HTTPClient, endpoint, header)
		if err != nil {
			return nil, "", err
		}
	}

	var errs []error
	for _, kind := range c.opts.Transports {
		if !c.opts.SkipNegotiation && !neg.supports(kind) {
			continue
		}
		target, err := withConnectionToken(endpoint, neg.token())
		if err != nil {
			return nil, "", err
		}

		s := newSession()
		t, err := newTransport(kind, &c.opts, header, transportCallbacks{
			onReceive: func(data []byte) { c.receive(s, data) },
			onClose:   func(err error) { c.transportClosed(s, err) },
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.transport = t

		if err := t.Start(ctx, target); err != nil {
			util.Debugf("hub: %s transport failed: %v", kind, err)
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			continue
		}
		if err := c.handshake(ctx, s); err != nil {
			_ = t.Stop()
			return nil, "", err
		}
		util.Debugf("hub: using %s transport for %s", kind, endpoint)
		return s, neg.ConnectionID, nil
	}
	if len(errs) == 0 {
		return nil, "", ErrNoTransport
	}
	return nil, "", fmt.Errorf("%w: %w", ErrNoTransport, errors.Join(errs...))
}

func (c *Connection) handshake(ctx context.Context, s *session) error {
	rec, err := encodeRecord(handshakeRequest{Protocol: "json", Version: 1})
	if err != nil {
		return err
	}
	if err := s.transport.Send(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	timer := time.NewTimer(c.opts.HandshakeTimeout)
	defer timer.Stop()
	select {
	case err := <-s.handshake:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		return nil
	case <-s.closed:
		return fmt.Errorf("%w: transport closed: %v", ErrHandshakeFailed, s.closeErr)
	case <-timer.C:
		return fmt.Errorf("%w: no response within %s", ErrHandshakeFailed, c.opts.HandshakeTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// receive runs on the transport's reader goroutine.
func (c *Connection) receive(s *session, data []byte) {
	s.mu.Lock()
	s.lastReceive = time.Now()
	s.mu.Unlock()

	for _, record := range s.reader.feed(data) {
		if !s.handshook {
			s.handshook = true
			var resp handshakeResponse
			if err := json.Unmarshal(record, &resp); err != nil {
				s.handshake <- err
				continue
			}
			if resp.Error != "" {
				s.handshake <- errors.New(resp.Error)
				continue
			}
			s.handshake <- nil
			continue
		}

		var msg hubMessage
		if err := json.Unmarshal(record, &msg); err != nil {
			util.Warnf("hub: dropping malformed message: %v", err)
			continue
		}
		switch msg.Type {
		case invocationMessageType:
			var inv invocationMessage
			if err := json.Unmarshal(record, &inv); err != nil {
				util.Warnf("hub: dropping malformed invocation: %v", err)
				continue
			}
			c.dispatch(inv.Target, inv.Arguments)
		case pingMessageType:
		case closeMessageType:
			var cm closeMessage
			_ = json.Unmarshal(record, &cm)
			s.mu.Lock()
			s.serverClose = &cm
			s.mu.Unlock()
			util.Infof("hub: server closed connection: %q", cm.Error)
			_ = s.transport.Stop()
			return
		default:
			util.Debugf("hub: ignoring message type %d", msg.Type)
		}
	}
}

func (c *Connection) dispatch(target string, args []json.RawMessage) {
	c.handlersMu.RLock()
	handlers := append([]Handler(nil), c.handlers[strings.ToLower(target)]...)
	c.handlersMu.RUnlock()

	if len(handlers) == 0 {
		util.Debugf("hub: no handler registered for %s", target)
		return
	}
	for _, h := range handlers {
		h(args)
	}
}

func (c *Connection) transportClosed(s *session, err error) {
	s.closeErr = err
	close(s.closed)

	c.mu.Lock()
	if c.current != s || c.state != Connected {
		c.mu.Unlock()
		return
	}
	c.current = nil

	cause, allowReconnect := s.closeCause(err)
	if allowReconnect && len(c.opts.ReconnectDelays) > 0 {
		c.state = Reconnecting
		epoch := c.epoch
		stopCh := c.stopCh
		c.mu.Unlock()

		util.Warnf("hub: connection to %s lost, reconnecting: %v", c.endpoint, cause)
		c.fireReconnecting(cause)
		go c.reconnect(cause, epoch, stopCh)
		return
	}
	c.state = Disconnected
	c.connectionID = ""
	c.mu.Unlock()
	c.fireClose(cause)
}

func (s *session) closeCause(err error) (error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.serverClose != nil:
		if s.serverClose.Error != "" {
			return fmt.Errorf("%w: %s", ErrServerClosed, s.serverClose.Error), s.serverClose.AllowReconnect
		}
		return ErrServerClosed, s.serverClose.AllowReconnect
	case s.timedOut:
		return ErrServerTimeout, true
	case err != nil:
		return err, true
	default:
		return ErrServerClosed, true
	}
}

func (c *Connection) reconnect(cause error, epoch uint64, stopCh <-chan struct{}) {
	lastErr := cause
	for i, delay := range c.opts.ReconnectDelays {
		timer := time.NewTimer(delay)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		s, id, err := c.connectSession(context.Background(), stopCh)
		if err != nil {
			lastErr = err
			util.Warnf("hub: reconnect attempt %d/%d failed: %v", i+1, len(c.opts.ReconnectDelays), err)
			continue
		}
		if !c.adopt(s, id, epoch, Reconnecting) {
			_ = s.transport.Stop()
			c.mu.Lock()
			stillReconnecting := c.epoch == epoch && c.state == Reconnecting
			c.mu.Unlock()
			if !stillReconnecting {
				return
			}
			lastErr = ErrServerClosed
			continue
		}
		util.Infof("hub: reconnected to %s", c.endpoint)
		c.fireReconnected(id)
		return
	}

	c.mu.Lock()
	if c.epoch != epoch || c.state != Reconnecting {
		c.mu.Unlock()
		return
	}
	c.state = Disconnected
	c.connectionID = ""
	c.mu.Unlock()
	util.Warnf("hub: giving up on %s after %d attempts", c.endpoint, len(c.opts.ReconnectDelays))
	c.fireClose(lastErr)
}

func (c *Connection) keepAlive(s *session) {
	ticker := time.NewTicker(c.opts.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			s.mu.Lock()
			idle := time.Since(s.lastReceive)
			if idle > c.opts.ServerTimeout {
				s.timedOut = true
			}
			timedOut := s.timedOut
			s.mu.Unlock()
			if timedOut {
				util.Warnf("hub: no message from %s for %s", c.endpoint, idle.Round(time.Millisecond))
				_ = s.transport.Stop()
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), c.opts.KeepAliveInterval)
			if err := s.transport.Send(ctx, pingRecord); err != nil {
				util.Debugf("hub: ping failed: %v", err)
			}
			cancel()
		}
	}
}

func (c *Connection) fireClose(err error) {
	c.handlersMu.RLock()
	hooks := append([]func(error){}, c.onClose...)
	c.handlersMu.RUnlock()
	for _, f := range hooks {
		f(err)
	}
}

func (c *Connection) fireReconnecting(err error) {
	c.handlersMu.RLock()
	hooks := append([]func(error){}, c.onReconnecting...)
	c.handlersMu.RUnlock()
	for _, f := range hooks {
		f(err)
	}
}

func (c *Connection) fireReconnected(id string) {
	c.handlersMu.RLock()
	hooks := append([]func(string){}, c.onReconnected...)
	c.handlersMu.RUnlock()
	for _, f := range hooks {
		f(id)
	}
}
