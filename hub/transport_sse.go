package hub

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/launchdarkly/eventsource"
)

// sseTransport receives over a server-sent-events stream and sends each
// outbound frame as its own POST to the same endpoint.
type sseTransport struct {
	client    *http.Client
	header    http.Header
	cb        transportCallbacks
	endpoint  string
	stream    *eventsource.Stream
	done      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
}

type headerRoundTripper struct {
	header http.Header
	next   http.RoundTripper
}

func (h headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range h.header {
		req.Header[k] = v
	}
	return h.next.RoundTrip(req)
}

func (t *sseTransport) streamClient() *http.Client {
	next := t.client.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	// The stream stays open for the connection lifetime, so the request
	// timeout of the shared client must not apply to it.
	return &http.Client{
		Transport: headerRoundTripper{header: t.header, next: next},
		Jar:       t.client.Jar,
	}
}

func (t *sseTransport) Start(ctx context.Context, endpoint string) error {
	t.endpoint = endpoint
	type result struct {
		stream *eventsource.Stream
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		stream, err := eventsource.SubscribeWithURL(endpoint,
			eventsource.StreamOptionHTTPClient(t.streamClient()),
			eventsource.StreamOptionErrorHandler(func(err error) eventsource.StreamErrorHandlerResult {
				t.finish(err)
				return eventsource.StreamErrorHandlerResult{CloseNow: true}
			}))
		ch <- result{stream, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.stream != nil {
				r.stream.Close()
			}
		}()
		return ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return fmt.Errorf("hub: event stream %s: %w", endpoint, r.err)
		}
		t.stream = r.stream
	}
	go t.readLoop()
	return nil
}

func (t *sseTransport) readLoop() {
	for {
		select {
		case <-t.done:
			t.finish(nil)
			return
		case ev, ok := <-t.stream.Events:
			if !ok {
				t.finish(io.EOF)
				return
			}
			t.cb.onReceive([]byte(ev.Data()))
		}
	}
}

func (t *sseTransport) finish(err error) {
	t.closeOnce.Do(func() {
		t.cb.onClose(err)
	})
}

func (t *sseTransport) Send(ctx context.Context, data []byte) error {
	if t.stream == nil {
		return ErrNotConnected
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	for k, v := range t.header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("hub: send failed: %s", resp.Status)
	}
	return nil
}

func (t *sseTransport) Stop() error {
	t.stopOnce.Do(func() {
		close(t.done)
		if t.stream != nil {
			t.stream.Close()
		}
	})
	return nil
}
