package adapter

// Status is the connection status of an adapter.
type Status string

// Adapter statuses.
const (
	NotReady   Status = "not_ready"
	Ready      Status = "ready"
	Connecting Status = "connecting"
	Connected  Status = "connected"
)

// String returns the status name.
func (s Status) String() string {
	return string(s)
}

// EventName names a lifecycle event.
type EventName string

// Lifecycle events.
const (
	EventReady        EventName = "ready"
	EventConnecting   EventName = "connecting"
	EventConnected    EventName = "connected"
	EventDisconnected EventName = "disconnected"
	EventErrored      EventName = "errored"
)
