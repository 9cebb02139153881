package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	noahark "github.com/NikosBletsas/NoahArk-v2"
	"github.com/NikosBletsas/NoahArk-v2/hub"
)

const EnvPrefix = "NOAHARK"

type Config struct {
	APIBaseURL         string        `mapstructure:"api_base_url"`
	HubURL             string        `mapstructure:"hub_url"`
	DeviceHubURL       string        `mapstructure:"device_hub_url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	MaxRequestRetries  int           `mapstructure:"max_request_retries"`
	Transports         []string      `mapstructure:"transports"`
	RequiredCaseFields []string      `mapstructure:"required_case_fields"`
	SessionDB          string        `mapstructure:"session_db"`
	LogLevel           string        `mapstructure:"log_level"`
	JSONLogs           bool          `mapstructure:"json_logs"`
}

var keys = []string{
	"api_base_url",
	"hub_url",
	"device_hub_url",
	"request_timeout",
	"max_request_retries",
	"transports",
	"required_case_fields",
	"session_db",
	"log_level",
	"json_logs",
}

// Load reads the CLI configuration. path may be empty, in which case only
// defaults and NOAHARK_* environment variables apply. The file format is
// taken from its extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api_base_url", "http://localhost:5000")
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("max_request_retries", 3)
	v.SetDefault("transports", []string{string(hub.TransportWebSockets), string(hub.TransportServerSentEvents)})
	v.SetDefault("session_db", "noahark-session.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("json_logs", false)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxRequestRetries < 0 {
		return errors.New("max_request_retries cannot be negative")
	}
	for _, t := range c.Transports {
		if _, err := parseTransport(t); err != nil {
			return err
		}
	}
	return nil
}

func parseTransport(name string) (hub.TransportType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "websockets", "websocket", "ws":
		return hub.TransportWebSockets, nil
	case "serversentevents", "sse":
		return hub.TransportServerSentEvents, nil
	}
	return "", fmt.Errorf("unknown hub transport %q", name)
}

// Options converts the configuration into SDK options. Fields the file
// does not cover are left for CheckDefaults.
func (c *Config) Options() *noahark.Options {
	options := &noahark.Options{
		APIBaseURL:         c.APIBaseURL,
		HubURL:             c.HubURL,
		DeviceHubURL:       c.DeviceHubURL,
		RequestTimeout:     c.RequestTimeout,
		MaxRequestRetries:  c.MaxRequestRetries,
		RequiredCaseFields: c.RequiredCaseFields,
	}
	for _, t := range c.Transports {
		// validated by Load
		kind, _ := parseTransport(t)
		options.Transports = append(options.Transports, kind)
	}
	return options
}
