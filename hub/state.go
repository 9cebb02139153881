package hub

// ConnectionState is the lifecycle state of a hub Connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
	Disconnecting
	// Unknown is reported for any state outside the lifecycle above.
	Unknown
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Reconnecting:
		return "Reconnecting"
	case Disconnecting:
		return "Disconnecting"
	case Unknown:
		return "Unknown"
	default:
		return "Unknown"
	}
}
