package wire

import (
	"errors"
	"fmt"
)

// ErrIncomplete signals that ReadPacket needs more bytes before it can
// decode a full packet. Callers (FeedBytes's framing loop) must treat this
// as "buffer more input and retry", never as a protocol violation — it is
// the normal outcome when a TCP read lands mid-packet.
var ErrIncomplete = errors.New("wire: incomplete packet")

// MalformedPacketError wraps a decode failure that is a genuine MQTT-4.13
// protocol violation rather than a framing shortfall: a Variable Byte
// Integer over the 4-byte limit, a packet larger than the negotiated
// maximum, a duplicate single-instance property, an unknown packet type.
// Engine callers distinguish this from ErrIncomplete to decide whether to
// wait for more bytes or tear the session down with
// ReasonCodeMalformedPacket (§4.1).
type MalformedPacketError struct {
	Reason string
}

func (e *MalformedPacketError) Error() string {
	return "wire: malformed packet: " + e.Reason
}

func newMalformed(format string, args ...any) error {
	return &MalformedPacketError{Reason: fmt.Sprintf(format, args...)}
}

// asMalformed normalizes any non-nil decode error into a *MalformedPacketError,
// so callers downstream of ReadPacket only ever see ErrIncomplete or a
// MalformedPacketError, never a bare fmt-wrapped string.
func asMalformed(err error) error {
	if err == nil {
		return nil
	}
	var m *MalformedPacketError
	if errors.As(err, &m) {
		return err
	}
	return &MalformedPacketError{Reason: err.Error()}
}
