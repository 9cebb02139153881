package noahark

import (
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/NikosBletsas/NoahArk-v2/api"
	"github.com/NikosBletsas/NoahArk-v2/hub"
	"github.com/NikosBletsas/NoahArk-v2/util"
)

const (
	test_baseURL = "http://terminal.test"
	test_hubURL  = "http://terminal.test/notificationHub"
)

//go:embed testdata/emergency_case.json
var test_caseFixture []byte

func init() {
	util.SetLogger(util.DiscardLogger{})
}

// fakeHub stands in for *hub.Connection.
type fakeHub struct {
	url       string
	startErr  error
	startGate chan struct{}
	starts    atomic.Int32
	stops     atomic.Int32

	mu             sync.Mutex
	state          hub.ConnectionState
	handlers       map[string][]hub.Handler
	onClose        []func(error)
	onReconnecting []func(error)
	onReconnected  []func(string)
}

func (f *fakeHub) Start(ctx context.Context) error {
	f.starts.Add(1)
	f.setState(hub.Connecting)
	if f.startGate != nil {
		select {
		case <-f.startGate:
		case <-ctx.Done():
			f.setState(hub.Disconnected)
			return ctx.Err()
		}
	}
	if f.startErr != nil {
		f.setState(hub.Disconnected)
		return f.startErr
	}
	f.setState(hub.Connected)
	return nil
}

func (f *fakeHub) Stop() error {
	f.stops.Add(1)
	f.setState(hub.Disconnected)
	return nil
}

func (f *fakeHub) setState(s hub.ConnectionState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *fakeHub) State() hub.ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeHub) On(target string, handler hub.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[string][]hub.Handler)
	}
	key := strings.ToLower(target)
	f.handlers[key] = append(f.handlers[key], handler)
}

func (f *fakeHub) OnClose(cb func(error)) {
	f.mu.Lock()
	f.onClose = append(f.onClose, cb)
	f.mu.Unlock()
}

func (f *fakeHub) OnReconnecting(cb func(error)) {
	f.mu.Lock()
	f.onReconnecting = append(f.onReconnecting, cb)
	f.mu.Unlock()
}

func (f *fakeHub) OnReconnected(cb func(string)) {
	f.mu.Lock()
	f.onReconnected = append(f.onReconnected, cb)
	f.mu.Unlock()
}

// push simulates the server invoking target with a single argument.
func (f *fakeHub) push(target, payload string) {
	f.mu.Lock()
	handlers := append([]hub.Handler(nil), f.handlers[strings.ToLower(target)]...)
	f.mu.Unlock()
	for _, h := range handlers {
		h([]json.RawMessage{json.RawMessage(payload)})
	}
}

// lose simulates the reconnect schedule running out.
func (f *fakeHub) lose(err error) {
	f.mu.Lock()
	f.state = hub.Disconnected
	hooks := append([]func(error){}, f.onClose...)
	f.mu.Unlock()
	for _, h := range hooks {
		h(err)
	}
}

func (f *fakeHub) reconnecting(err error) {
	f.mu.Lock()
	f.state = hub.Reconnecting
	hooks := append([]func(error){}, f.onReconnecting...)
	f.mu.Unlock()
	for _, h := range hooks {
		h(err)
	}
}

type fakeHubFactory struct {
	configure func(*fakeHub)

	mu      sync.Mutex
	created []*fakeHub
}

func (ff *fakeHubFactory) New(url string) HubConnection {
	f := &fakeHub{url: url}
	if ff.configure != nil {
		ff.configure(f)
	}
	ff.mu.Lock()
	ff.created = append(ff.created, f)
	ff.mu.Unlock()
	return f
}

func (ff *fakeHubFactory) count() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.created)
}

func (ff *fakeHubFactory) last() *fakeHub {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if len(ff.created) == 0 {
		return nil
	}
	return ff.created[len(ff.created)-1]
}

func testOptions(factory *fakeHubFactory, mutate ...func(*Options)) *Options {
	o := &Options{
		APIBaseURL:             test_baseURL,
		DisableRealtimeUpdates: true,
		HubConnectionFactory:   factory.New,
		MaxRequestRetries:      1,
		ClientEventHandler:     make(chan api.ClientEvent, 32),
	}
	for _, m := range mutate {
		m(o)
	}
	o.CheckDefaults()
	return o
}

func newTestClient(t *testing.T, mutate ...func(*Options)) (*Client, *fakeHubFactory) {
	t.Helper()
	factory := &fakeHubFactory{}
	c, err := NewClient(testOptions(factory, mutate...))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, factory
}

func loadCaseFixture(t *testing.T) map[string]string {
	t.Helper()
	var fields map[string]string
	if err := json.Unmarshal(test_caseFixture, &fields); err != nil {
		t.Fatal(err)
	}
	return fields
}

// drainEvents returns the client events buffered so far.
func drainEvents(ch chan api.ClientEvent) []api.ClientEvent {
	var out []api.ClientEvent
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(events []api.ClientEvent) []api.ClientEventType {
	out := make([]api.ClientEventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.EventType)
	}
	return out
}
