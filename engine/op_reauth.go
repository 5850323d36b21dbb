package engine

import "github.com/wavemq/mqtt5/internal/wire"

// ReauthConfig configures a Reauth operation (§4.3.8).
type ReauthConfig struct {
	InitialData []byte
	Callback    func(data []byte) (continueAuth bool, reply []byte)
}

type ReauthCallback func(status Status)

// reauthOp mirrors the Connect AUTH loop but runs on an already-connected
// session; only legal if CONNECT negotiated an auth method (§4.3.8).
type reauthOp struct {
	cfg      ReauthConfig
	cb       ReauthCallback
	waiting  bool
	started  bool
	timer    timerHandle
	finished bool
}

func (op *reauthOp) packetID() (uint16, bool) { return 0, false }
func (op *reauthOp) done() bool               { return op.finished }
func (op *reauthOp) active() bool             { return op.waiting }

// PrepareReauth creates a Reauth operation; Send transmits its first AUTH.
func (e *Engine) PrepareReauth(cfg ReauthConfig) (*reauthOp, EngineError) {
	if e.state != stateConnected {
		return nil, ErrNotConnected
	}
	if e.caps.authMethod == "" {
		return nil, ErrNotSupported
	}
	if e.reauth != nil && e.reauth.active() {
		return nil, ErrBusy
	}
	if eerr := e.lockPreparation(); eerr != ErrNone {
		return nil, eerr
	}
	op := &reauthOp{cfg: cfg}
	e.reauth = op
	return op, ErrNone
}

func (op *reauthOp) Send(e *Engine, cb ReauthCallback) EngineError {
	if op.started {
		return ErrBusy
	}
	op.started = true
	e.unlockPreparation()
	op.cb = cb
	pkt := &wire.AuthPacket{
		ReasonCode: wire.AuthReasonReauthenticate,
		Version:    e.version,
		Properties: &wire.Properties{
			Presence:             wire.PresAuthenticationMethod,
			AuthenticationMethod: e.caps.authMethod,
			AuthenticationData:   op.cfg.InitialData,
		},
	}
	if eerr := e.sendMessage(pkt); eerr != ErrNone {
		return eerr
	}
	op.waiting = true
	op.timer = e.timerMgr.arm(TimerOpResponse, e.cfg.DefaultResponseTimeoutMs, func() {
		op.finish(e, StatusTimeout)
	})
	return ErrNone
}

func (op *reauthOp) onAuth(e *Engine, p *wire.AuthPacket) {
	if !op.waiting {
		return
	}
	e.timerMgr.cancel(op.timer)

	if p.ReasonCode == wire.AuthReasonSuccess {
		op.finish(e, StatusComplete)
		return
	}
	if p.ReasonCode != wire.AuthReasonContinue || op.cfg.Callback == nil {
		e.protocolError(ReasonCodeProtocolError, "unexpected AUTH reason code during reauth")
		return
	}

	var inbound []byte
	if p.Properties != nil {
		inbound = p.Properties.AuthenticationData
	}
	cont, reply := op.cfg.Callback(inbound)
	if !cont {
		_ = e.sendMessage(&wire.DisconnectPacket{ReasonCode: uint8(ReasonCodeNotAuthorized), Version: e.version})
		op.finish(e, StatusAborted)
		return
	}

	_ = e.sendMessage(&wire.AuthPacket{
		ReasonCode: wire.AuthReasonContinue,
		Version:    e.version,
		Properties: &wire.Properties{
			Presence:             wire.PresAuthenticationMethod,
			AuthenticationMethod: e.caps.authMethod,
			AuthenticationData:   reply,
		},
	})
	op.timer = e.timerMgr.arm(TimerOpResponse, e.cfg.DefaultResponseTimeoutMs, func() {
		op.finish(e, StatusTimeout)
	})
}

func (op *reauthOp) Cancel(e *Engine) {
	if !op.started {
		e.unlockPreparation()
		op.finished = true
		return
	}
	if op.waiting {
		e.timerMgr.cancel(op.timer)
	}
	op.finish(e, StatusAborted)
}

func (op *reauthOp) finish(e *Engine, status Status) {
	if op.finished {
		return
	}
	op.finished = true
	op.waiting = false
	if op.cb != nil {
		op.cb(status)
	}
}

func (op *reauthOp) onBrokerGone(e *Engine) {
	if op.waiting {
		e.timerMgr.cancel(op.timer)
		op.finish(e, StatusBrokerDisconnected)
	}
}
