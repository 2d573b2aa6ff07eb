package channel

// State is the connection lifecycle state. It is the single source of
// truth for whether sends are permitted.
type State string

const (
	StateDisconnected  State = "disconnected"
	StateConnecting    State = "connecting"
	StateConnected     State = "connected"
	StateReconnecting  State = "reconnecting"
	StateDisconnecting State = "disconnecting"
)

// StateChange is broadcast to subscribers on every transition. Attempt
// and MaxAttempts are populated while a reconnect cycle is in flight so
// the UI can display progress without polling the manager.
type StateChange struct {
	State       State
	Attempt     int
	MaxAttempts int
}
