package hub

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type TransportType string

const (
	TransportWebSockets       TransportType = "WebSockets"
	TransportServerSentEvents TransportType = "ServerSentEvents"
)

// DefaultReconnectDelays is the wait before each successive reconnect
// attempt after the connection is lost.
var DefaultReconnectDelays = []time.Duration{
	0,
	2 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

type Options struct {
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Header     http.Header
	// Transports are tried in order. Defaults to WebSockets then ServerSentEvents.
	Transports []TransportType
	// ReconnectDelays is the automatic reconnect schedule. nil selects
	// DefaultReconnectDelays, an empty non-nil slice disables reconnecting.
	ReconnectDelays []time.Duration
	// SkipNegotiation connects straight to the WebSocket endpoint.
	SkipNegotiation   bool
	HandshakeTimeout  time.Duration
	KeepAliveInterval time.Duration
	ServerTimeout     time.Duration
}

func (o *Options) CheckDefaults() {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Dialer == nil {
		o.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
			Jar:              o.HTTPClient.Jar,
		}
	}
	if o.Header == nil {
		o.Header = http.Header{}
	}
	if len(o.Transports) == 0 {
		o.Transports = []TransportType{TransportWebSockets, TransportServerSentEvents}
	}
	if o.SkipNegotiation {
		o.Transports = []TransportType{TransportWebSockets}
	}
	if o.ReconnectDelays == nil {
		o.ReconnectDelays = append([]time.Duration(nil), DefaultReconnectDelays...)
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 15 * time.Second
	}
	if o.KeepAliveInterval <= 0 {
		o.KeepAliveInterval = 15 * time.Second
	}
	if o.ServerTimeout <= 0 {
		o.ServerTimeout = 30 * time.Second
	}
	if o.ServerTimeout < 2*o.KeepAliveInterval {
		o.ServerTimeout = 2 * o.KeepAliveInterval
	}
}
