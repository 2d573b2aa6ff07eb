package channel

import "errors"

// Sentinel errors for the channel package.
var (
	// ErrConnectInProgress indicates Connect was called while a connection
	// attempt is already running.
	ErrConnectInProgress = errors.New("channel: connect already in progress")

	// ErrConnectionFailed indicates the transport could not be opened.
	ErrConnectionFailed = errors.New("channel: connection failed")

	// ErrHeartbeatTimeout indicates the remote stopped answering pings.
	ErrHeartbeatTimeout = errors.New("channel: heartbeat timeout")

	// ErrReconnectExhausted indicates the reconnect attempt budget ran out.
	ErrReconnectExhausted = errors.New("channel: reconnect attempts exhausted")
)
