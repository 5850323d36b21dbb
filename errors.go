package mq

import (
	"errors"

	"github.com/wavemq/mqtt5/engine"
)

// Standard errors returned by the host layer. Broker-reported protocol
// failures surface as *ProtocolError instead (an alias of the engine's own
// type), not as one of these sentinels.
var (
	// ErrConnectionRefused is returned when the server rejects the connection.
	ErrConnectionRefused = errors.New("connection refused")

	// ErrSubscriptionFailed is returned when the server rejects a subscription.
	ErrSubscriptionFailed = errors.New("subscription failed")

	// ErrClientDisconnected is returned when an operation is cancelled because
	// the client was disconnected or stopped.
	ErrClientDisconnected = errors.New("client disconnected")
)

// ProtocolError wraps a broker-reported MQTT v5 reason code. It re-exports
// the engine's type directly so host callers never need a second import to
// use errors.As/errors.Is against it.
type ProtocolError = engine.ProtocolError

// DisconnectError is delivered to OnConnectionLost when the broker closes the
// connection with an MQTT DISCONNECT packet (as opposed to a bare transport
// drop or a local keep-alive timeout). It carries the full reason the broker
// gave, not just the reason code.
type DisconnectError struct {
	ReasonCode      ReasonCode
	ReasonString    string
	ServerReference string
	UserProperties  map[string]string
}

func (e *DisconnectError) Error() string {
	if e.ReasonString != "" {
		return "broker disconnected: " + e.ReasonString
	}
	return "broker disconnected: " + e.ReasonCode.Name()
}
