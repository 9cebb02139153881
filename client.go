package noahark

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/NikosBletsas/NoahArk-v2/api"
	"github.com/NikosBletsas/NoahArk-v2/intake"
	"github.com/NikosBletsas/NoahArk-v2/util"
)

// Client is the terminal SDK entry point. In most cases there should be
// only one, shared, Client, owned by the application root.
type Client struct {
	*TerminalAPI

	// Intake is the in-progress emergency case.
	Intake *intake.Store
	// Status carries BatteryStatus and HeartBeat.
	Status *ConnectionManager
	// Devices carries the device screens' measurement events.
	Devices *ConnectionManager

	TerminalID string
	options    *Options
}

// NewClient creates a client. Unless DisableRealtimeUpdates is set the
// status hub is connected in the background.
func NewClient(options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}
	if options.Logger != nil {
		util.SetLogger(options.Logger)
	}
	options.CheckDefaults()
	if err := options.Validate(); err != nil {
		return nil, err
	}

	cfg := NewConfiguration(options)
	terminalID := uuid.New().String()
	cfg.AddDefaultHeader("X-Terminal-Id", terminalID)

	c := &Client{
		TerminalAPI: newTerminalAPI(options, cfg),
		Intake:      intake.NewStore(),
		Status:      NewConnectionManager(options.HubURL, api.StatusHubEvents, options),
		Devices:     NewConnectionManager(options.DeviceHubURL, api.DeviceHubEvents, options),
		TerminalID:  terminalID,
		options:     options,
	}

	sendClientEvent(options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_Initialized,
		EventData: terminalID,
		Status:    "success",
	})

	if !options.DisableRealtimeUpdates {
		go func() {
			if _, err := c.Status.Connect(context.Background()); err != nil {
				util.Warnf("realtime status updates unavailable: %v", err)
				return
			}
			sendClientEvent(options.ClientEventHandler, api.ClientEvent{
				EventType: api.ClientEventType_RealtimeUpdates,
				EventData: options.HubURL,
				Status:    "connected",
			})
		}()
	}
	return c, nil
}

// Close disconnects both hubs. The client cannot reconnect afterwards.
func (c *Client) Close() error {
	return errors.Join(c.Status.Close(), c.Devices.Close())
}

func (c *Client) notify(eventType api.ClientEventType, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	sendClientEvent(c.options.ClientEventHandler, api.ClientEvent{
		EventType: eventType,
		Status:    status,
		Error:     err,
	})
}
