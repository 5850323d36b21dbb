package engine

import "github.com/wavemq/mqtt5/internal/wire"

// unsubscribeOp implements §4.3.6.
type unsubscribeOp struct {
	cfg      UnsubscribeConfig
	cb       UnsubscribeCallback
	pktID    uint16
	timer    timerHandle
	sent     bool
	finished bool
}

func (op *unsubscribeOp) packetID() (uint16, bool) { return op.pktID, op.sent }
func (op *unsubscribeOp) done() bool               { return op.finished }

// PrepareUnsubscribe requires that sub-filter verification, if enabled,
// finds every filter already installed.
func (e *Engine) PrepareUnsubscribe(cfg UnsubscribeConfig) (*unsubscribeOp, EngineError) {
	if e.state != stateConnected {
		return nil, ErrNotConnected
	}
	if len(cfg.Filters) == 0 {
		return nil, ErrBadParam
	}
	if e.cfg.VerifySubscriptionScope {
		for _, f := range cfg.Filters {
			if !e.ses.hasSubscription(f) {
				return nil, ErrBadParam
			}
		}
	}
	if eerr := e.lockPreparation(); eerr != ErrNone {
		return nil, eerr
	}

	op := &unsubscribeOp{cfg: cfg}
	e.unsubOps = append(e.unsubOps, op)
	e.reg.add(opHandle{kind: opUnsubscribe, index: len(e.unsubOps) - 1}, op)
	return op, ErrNone
}

func (op *unsubscribeOp) Send(e *Engine, cb UnsubscribeCallback) EngineError {
	if op.sent {
		return ErrBusy
	}
	e.unlockPreparation()
	op.cb = cb

	id, ok := e.cps.packetIDs.alloc()
	if !ok {
		return ErrOutOfMemory
	}
	op.pktID = id
	op.sent = true

	pkt := &wire.UnsubscribePacket{PacketID: id, Topics: op.cfg.Filters, Version: e.version}
	if len(op.cfg.UserProperties) > 0 {
		pkt.Properties = &wire.Properties{UserProperties: toWireUserProperties(op.cfg.UserProperties)}
	}

	if eerr := e.sendMessage(pkt); eerr != ErrNone {
		e.cps.packetIDs.release(id)
		return eerr
	}
	op.timer = e.timerMgr.arm(TimerOpResponse, e.cfg.DefaultResponseTimeoutMs, func() {
		op.finish(e, StatusTimeout, nil)
	})
	return ErrNone
}

func (op *unsubscribeOp) onUnsuback(e *Engine, p *wire.UnsubackPacket) {
	e.timerMgr.cancel(op.timer)

	var codes []ReasonCode
	if len(p.ReasonCodes) > 0 {
		codes = make([]ReasonCode, len(p.ReasonCodes))
		for i, c := range p.ReasonCodes {
			codes[i] = ReasonCode(c)
		}
	}
	for i, f := range op.cfg.Filters {
		if codes == nil || (i < len(codes) && codes[i].Success()) {
			e.ses.removeSubscription(f)
		}
	}
	op.finish(e, StatusComplete, &UnsubscribeResult{ReasonCodes: codes})
}

func (op *unsubscribeOp) Cancel(e *Engine) {
	if !op.sent {
		e.unlockPreparation()
		op.finished = true
		return
	}
	e.timerMgr.cancel(op.timer)
	op.finish(e, StatusAborted, nil)
}

func (op *unsubscribeOp) finish(e *Engine, status Status, result *UnsubscribeResult) {
	if op.finished {
		return
	}
	op.finished = true
	e.cps.packetIDs.release(op.pktID)
	if op.cb != nil {
		op.cb(status, result)
	}
}

func (op *unsubscribeOp) onBrokerGone(e *Engine) {
	if !op.finished && op.sent {
		e.timerMgr.cancel(op.timer)
		op.finish(e, StatusBrokerDisconnected, nil)
	}
}
