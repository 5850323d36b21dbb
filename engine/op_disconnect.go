package engine

import "github.com/wavemq/mqtt5/internal/wire"

// disconnectOp implements §4.3.2: a Disconnect emits DISCONNECT and
// completes synchronously, no ACK expected.
type disconnectOp struct {
	finished bool
}

func (op *disconnectOp) packetID() (uint16, bool) { return 0, false }
func (op *disconnectOp) done() bool               { return op.finished }

// Disconnect prepares, sends, and completes a Disconnect operation in one
// call since the state machine has no wait state.
func (e *Engine) Disconnect(cfg DisconnectConfig) EngineError {
	if e.disconnect != nil && !e.disconnect.finished {
		return ErrBusy
	}
	if e.state != stateConnected && e.state != stateConnecting {
		return ErrNotConnected
	}
	if cfg.HasSessionExpiryOverride && e.caps.sessionExpiryIntervalMs == 0 && cfg.SessionExpiryIntervalMs != 0 {
		return ErrBadParam
	}

	op := &disconnectOp{}
	e.disconnect = op
	e.state = stateDisconnecting

	pkt := &wire.DisconnectPacket{ReasonCode: uint8(cfg.ReasonCode), Version: e.version}
	props := &wire.Properties{}
	if cfg.ReasonString != "" {
		props.Presence |= wire.PresReasonString
		props.ReasonString = cfg.ReasonString
	}
	if cfg.HasSessionExpiryOverride {
		props.Presence |= wire.PresSessionExpiryInterval
		props.SessionExpiryInterval = cfg.SessionExpiryIntervalMs / 1000
	}
	if props.Presence != 0 {
		pkt.Properties = props
	}

	eerr := e.sendMessage(pkt)
	op.finished = true
	e.state = stateDisconnected
	e.ses.reset()
	e.keepAlive = nil
	return eerr
}
