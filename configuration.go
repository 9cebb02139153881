package noahark

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/NikosBletsas/NoahArk-v2/api"
	"github.com/NikosBletsas/NoahArk-v2/hub"
	"github.com/NikosBletsas/NoahArk-v2/intake"
	"github.com/NikosBletsas/NoahArk-v2/util"
)

const VERSION = "2.0.0"

// use a single instance of Validate, it caches struct info
var validate = validator.New()

var defaultRequiredCaseFields = []string{
	api.CaseKey_PatientID,
	api.CaseKey_Name,
	api.CaseKey_Surname,
}

type Options struct {
	APIBaseURL   string `json:"apiBaseURL,omitempty" validate:"required,url"`
	HubURL       string `json:"hubURL,omitempty" validate:"required,url"`
	DeviceHubURL string `json:"deviceHubURL,omitempty" validate:"required,url"`

	RequestTimeout time.Duration `json:"requestTimeout,omitempty"`
	// MaxRequestRetries is the number of attempts made per REST request.
	// 1 disables retrying, 0 selects the default of 3.
	MaxRequestRetries int `json:"maxRequestRetries,omitempty" validate:"gte=0,lte=10"`

	// ReconnectDelays is the hub reconnect schedule. nil selects
	// hub.DefaultReconnectDelays, an empty slice disables reconnecting.
	ReconnectDelays     []time.Duration     `json:"reconnectDelays,omitempty"`
	Transports          []hub.TransportType `json:"transports,omitempty"`
	ConnectWaitTimeout  time.Duration       `json:"connectWaitTimeout,omitempty"`
	ConnectPollInterval time.Duration       `json:"connectPollInterval,omitempty"`

	// DisableRealtimeUpdates keeps NewClient from connecting the status hub.
	DisableRealtimeUpdates bool `json:"disableRealtimeUpdates,omitempty"`

	RequiredCaseFields []string `json:"requiredCaseFields,omitempty"`

	// CookieJar is shared by the REST client and both hubs, so a session
	// cookie set by Login is presented on negotiate and on the transports.
	// Defaults to an empty in-memory jar.
	CookieJar http.CookieJar `json:"-"`
	// HubHeader is sent on every hub request (negotiate, WebSocket upgrade,
	// server-sent events stream and sends).
	HubHeader http.Header `json:"-"`

	ClientEventHandler chan api.ClientEvent `json:"-"`
	Logger             util.Logger          `json:"-"`
	// SessionPersistence stores the active case pointer. Defaults to an
	// in-memory store.
	SessionPersistence intake.SessionPersistence `json:"-"`
	// HubConnectionFactory replaces the hub client, mainly for tests.
	HubConnectionFactory HubConnectionFactory `json:"-"`
}

func (o *Options) CheckDefaults() {
	if o.APIBaseURL == "" {
		o.APIBaseURL = "http://localhost:5000"
	}
	o.APIBaseURL = strings.TrimSuffix(o.APIBaseURL, "/")
	if o.HubURL == "" {
		o.HubURL = o.APIBaseURL + "/notificationHub"
	}
	if o.DeviceHubURL == "" {
		o.DeviceHubURL = o.APIBaseURL + "/deviceHub"
	}

	if o.RequestTimeout <= 0 {
		o.RequestTimeout = time.Second * 10
	} else if o.RequestTimeout < time.Second {
		util.Warnf("RequestTimeout cannot be less than 1 second. Defaulting to 1 second.")
		o.RequestTimeout = time.Second
	}
	if o.MaxRequestRetries == 0 {
		o.MaxRequestRetries = 3
	}
	if o.CookieJar == nil {
		// cookiejar.New only fails on a bad PublicSuffixList
		o.CookieJar, _ = cookiejar.New(nil)
	}

	if o.ReconnectDelays == nil {
		o.ReconnectDelays = append([]time.Duration(nil), hub.DefaultReconnectDelays...)
	}
	if len(o.Transports) == 0 {
		o.Transports = []hub.TransportType{hub.TransportWebSockets, hub.TransportServerSentEvents}
	}
	if o.ConnectWaitTimeout <= 0 {
		o.ConnectWaitTimeout = time.Second * 30
	}
	if o.ConnectPollInterval <= 0 {
		o.ConnectPollInterval = time.Millisecond * 100
	} else if o.ConnectPollInterval > o.ConnectWaitTimeout {
		o.ConnectPollInterval = o.ConnectWaitTimeout
	}

	if len(o.RequiredCaseFields) == 0 {
		o.RequiredCaseFields = append([]string(nil), defaultRequiredCaseFields...)
	}
	if o.SessionPersistence == nil {
		o.SessionPersistence = intake.NewMemoryPersistence()
	}
	if o.HubConnectionFactory == nil {
		o.HubConnectionFactory = defaultHubConnectionFactory(o)
	}
}

// Validate reports option values CheckDefaults cannot repair.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

func (o *Options) hubOptions() hub.Options {
	return hub.Options{
		HTTPClient:      &http.Client{Timeout: o.RequestTimeout, Jar: o.CookieJar},
		Header:          o.HubHeader.Clone(),
		Transports:      o.Transports,
		ReconnectDelays: o.ReconnectDelays,
	}
}

type HTTPConfiguration struct {
	BasePath      string            `json:"basePath,omitempty"`
	Host          string            `json:"host,omitempty"`
	DefaultHeader map[string]string `json:"defaultHeader,omitempty"`
	UserAgent     string            `json:"userAgent,omitempty"`
	HTTPClient    *http.Client
}

func NewConfiguration(options *Options) *HTTPConfiguration {

	cfg := &HTTPConfiguration{
		BasePath:      options.APIBaseURL,
		DefaultHeader: make(map[string]string),
		UserAgent:     "NoahArk-Terminal-SDK/" + VERSION + "/go",
		HTTPClient: &http.Client{
			// Set an explicit timeout so that we don't wait forever on a request
			Timeout: options.RequestTimeout,
			Jar:     options.CookieJar,
		},
	}
	return cfg
}

func (c *HTTPConfiguration) AddDefaultHeader(key string, value string) {
	c.DefaultHeader[key] = value
}
