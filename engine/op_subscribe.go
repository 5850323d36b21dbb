package engine

import "github.com/wavemq/mqtt5/internal/wire"

// subscribeOp implements §4.3.5.
type subscribeOp struct {
	cfg      SubscribeConfig
	cb       SubscribeCallback
	pktID    uint16
	timer    timerHandle
	sent     bool
	finished bool
}

func (op *subscribeOp) packetID() (uint16, bool) { return op.pktID, op.sent }
func (op *subscribeOp) done() bool               { return op.finished }

// PrepareSubscribe validates every requested filter and creates the op.
func (e *Engine) PrepareSubscribe(cfg SubscribeConfig) (*subscribeOp, EngineError) {
	if e.state != stateConnected {
		return nil, ErrNotConnected
	}
	if len(cfg.Topics) == 0 {
		return nil, ErrBadParam
	}
	for _, t := range cfg.Topics {
		if e.cfg.VerifyOutgoingTopic {
			if eerr := validateSubscribeTopic(t.Filter); eerr != ErrNone {
				return nil, eerr
			}
		}
		if (t.Filter == "+" || t.Filter == "#" || containsWildcard(t.Filter)) && !e.caps.wildcardSubAvailable {
			return nil, ErrNotSupported
		}
		if cfg.HasSubscriptionID && !e.caps.subscriptionIDAvailable {
			return nil, ErrNotSupported
		}
	}
	if eerr := e.lockPreparation(); eerr != ErrNone {
		return nil, eerr
	}

	op := &subscribeOp{cfg: cfg}
	e.subOps = append(e.subOps, op)
	e.reg.add(opHandle{kind: opSubscribe, index: len(e.subOps) - 1}, op)
	return op, ErrNone
}

func containsWildcard(filter string) bool {
	for _, r := range filter {
		if r == '+' || r == '#' {
			return true
		}
	}
	return false
}

func (op *subscribeOp) Send(e *Engine, cb SubscribeCallback) EngineError {
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

	pkt := &wire.SubscribePacket{PacketID: id, Version: e.version}
	for _, t := range op.cfg.Topics {
		pkt.Topics = append(pkt.Topics, t.Filter)
		pkt.QoS = append(pkt.QoS, t.MaxQoS)
		pkt.NoLocal = append(pkt.NoLocal, t.NoLocal)
		pkt.RetainAsPublished = append(pkt.RetainAsPublished, t.RetainAsPublished)
		pkt.RetainHandling = append(pkt.RetainHandling, t.RetainHandling)
	}
	props := &wire.Properties{}
	if op.cfg.HasSubscriptionID {
		props.SubscriptionIdentifier = []int{int(op.cfg.SubscriptionID)}
	}
	if len(op.cfg.UserProperties) > 0 {
		props.UserProperties = toWireUserProperties(op.cfg.UserProperties)
	}
	pkt.Properties = props

	if eerr := e.sendMessage(pkt); eerr != ErrNone {
		e.cps.packetIDs.release(id)
		return eerr
	}
	op.timer = e.timerMgr.arm(TimerOpResponse, e.cfg.DefaultResponseTimeoutMs, func() {
		op.finish(e, StatusTimeout, nil, id)
	})
	return ErrNone
}

func (op *subscribeOp) onSuback(e *Engine, p *wire.SubackPacket) {
	e.timerMgr.cancel(op.timer)

	codes := make([]ReasonCode, len(p.ReturnCodes))
	for i, c := range p.ReturnCodes {
		codes[i] = ReasonCode(c)
		if codes[i].Success() && i < len(op.cfg.Topics) {
			e.ses.addSubscription(op.cfg.Topics[i].Filter)
		}
	}

	result := &SubscribeResult{ReasonCodes: codes}
	if p.Properties != nil {
		if p.Properties.Presence&wire.PresReasonString != 0 {
			result.ReasonString = p.Properties.ReasonString
		}
		result.UserProperties = fromWireUserProperties(p.Properties.UserProperties)
	}
	op.finish(e, StatusComplete, result, p.PacketID)
}

func (op *subscribeOp) Cancel(e *Engine) {
	if !op.sent {
		e.unlockPreparation()
		op.finished = true
		return
	}
	e.timerMgr.cancel(op.timer)
	op.finish(e, StatusAborted, nil, op.pktID)
}

func (op *subscribeOp) finish(e *Engine, status Status, result *SubscribeResult, id uint16) {
	if op.finished {
		return
	}
	op.finished = true
	e.cps.packetIDs.release(id)
	if op.cb != nil {
		op.cb(status, result)
	}
}

func (op *subscribeOp) onBrokerGone(e *Engine) {
	if !op.finished && op.sent {
		e.timerMgr.cancel(op.timer)
		op.finish(e, StatusBrokerDisconnected, nil, op.pktID)
	}
}
