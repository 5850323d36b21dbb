package engine

import "github.com/wavemq/mqtt5/internal/wire"

type publishState uint8

const (
	publishPaused publishState = iota
	publishSentQoS0
	publishWaitPuback
	publishWaitPubrec
	publishWaitPubcomp
	publishComplete
)

// publishOp implements §4.3.3 (SendOp): alias bookkeeping, the send
// window/ordering rules, and the QoS0/1/2 state machines including
// reconnection resend and head-of-line reorder correction.
type publishOp struct {
	cfg      PublishConfig
	cb       PublishCallback
	state    publishState
	pktID    uint16
	hasID    bool
	dup      bool
	resends  int
	timer    timerHandle
	finished bool
	aliasOnly bool
	started  bool
}

func (op *publishOp) packetID() (uint16, bool) { return op.pktID, op.hasID }
func (op *publishOp) done() bool               { return op.finished }
func (op *publishOp) waiting() bool {
	return op.state == publishWaitPuback || op.state == publishWaitPubrec || op.state == publishWaitPubcomp
}

// PreparePublish creates a Publish operation. Non-paused creation order
// establishes the send-queue ordering used by §4.3.3's ordering rules.
func (e *Engine) PreparePublish(cfg PublishConfig) (*publishOp, EngineError) {
	if e.state != stateConnected {
		return nil, ErrNotConnected
	}
	if e.cfg.VerifyOutgoingTopic {
		if cfg.AliasPreference != ForceAliasOnly {
			if eerr := validatePublishTopic(cfg.Topic); eerr != ErrNone {
				return nil, eerr
			}
		}
	}
	if eerr := validatePayload(cfg.Payload); eerr != ErrNone {
		return nil, eerr
	}
	if cfg.Retain && !e.caps.retainAvailable {
		return nil, ErrNotSupported
	}
	if cfg.QoS > e.caps.maxQoS {
		cfg.QoS = e.caps.maxQoS
	}
	if eerr := e.lockPreparation(); eerr != ErrNone {
		return nil, eerr
	}

	op := &publishOp{cfg: cfg}
	e.publishOps = append(e.publishOps, op)
	e.reg.add(opHandle{kind: opPublish, index: len(e.publishOps) - 1}, op)
	return op, ErrNone
}

// resolveAlias implements the send-side alias bookkeeping table of §4.3.3.
func resolveAlias(e *Engine, cfg PublishConfig) (topic string, alias uint16, aliasOnly bool, eerr EngineError) {
	if cfg.AliasPreference == ForceTopicOnly {
		return cfg.Topic, 0, false, ErrNone
	}

	entry, found := e.cps.sendAliases.lookup(cfg.Topic)
	switch {
	case !found && cfg.AliasPreference == UseAliasIfAvailable:
		return cfg.Topic, 0, false, ErrNone
	case !found:
		return "", 0, false, ErrBadParam
	case cfg.AliasPreference == ForceTopicWithAlias:
		return cfg.Topic, entry.alias, false, ErrNone
	case cfg.AliasPreference == ForceAliasOnly:
		return "", entry.alias, true, ErrNone
	default: // found && UseAliasIfAvailable
		if entry.lowQoSRemaining > 0 {
			entry.lowQoSRemaining--
			return cfg.Topic, entry.alias, false, ErrNone
		}
		return "", entry.alias, true, ErrNone
	}
}

func buildPublishProperties(cfg PublishConfig, alias uint16) *wire.Properties {
	p := &wire.Properties{}
	if alias != 0 {
		p.Presence |= wire.PresTopicAlias
		p.TopicAlias = alias
	}
	if cfg.ContentType != "" {
		p.Presence |= wire.PresContentType
		p.ContentType = cfg.ContentType
	}
	if cfg.ResponseTopic != "" {
		p.Presence |= wire.PresResponseTopic
		p.ResponseTopic = cfg.ResponseTopic
	}
	if len(cfg.CorrelationData) > 0 {
		p.CorrelationData = cfg.CorrelationData
	}
	if cfg.MessageExpiryMs > 0 {
		p.Presence |= wire.PresMessageExpiryInterval
		p.MessageExpiryInterval = cfg.MessageExpiryMs / 1000
	}
	if cfg.PayloadFormatUTF8 {
		p.Presence |= wire.PresPayloadFormatIndicator
		p.PayloadFormatIndicator = 1
	}
	if len(cfg.UserProperties) > 0 {
		p.UserProperties = toWireUserProperties(cfg.UserProperties)
	}
	return p
}

// Send transitions the op into the wait state, or into Paused if the send
// window is exhausted (§4.3.3 Send-window and ordering).
func (op *publishOp) Send(e *Engine, cb PublishCallback) EngineError {
	if op.started {
		return ErrBusy
	}
	op.started = true
	e.unlockPreparation()
	op.cb = cb

	if e.windowBlocked(op) {
		op.state = publishPaused
		return ErrNone
	}
	return op.transmit(e)
}

// windowBlocked reports whether op must pause per the ordering policy:
// under Full ordering, anything paused ahead of op blocks it; under
// SameQoS, only same-QoS predecessors block it, and the window itself
// blocks any QoS>0 publish once the high-QoS send limit is reached.
func (e *Engine) windowBlocked(op *publishOp) bool {
	if op.cfg.QoS > 0 && e.cps.inFlightSends >= int(e.caps.sendHighQoSWindow) {
		return true
	}
	for _, other := range e.publishOps {
		if other == op {
			break
		}
		if !other.started || other.finished || other.state != publishPaused {
			continue
		}
		if e.cfg.Ordering == OrderFull {
			return true
		}
		if other.cfg.QoS == op.cfg.QoS {
			return true
		}
	}
	return false
}

func (op *publishOp) transmit(e *Engine) EngineError {
	topic, alias, aliasOnly, eerr := resolveAlias(e, op.cfg)
	if eerr != ErrNone {
		return eerr
	}
	op.aliasOnly = aliasOnly
	resend := op.waiting()

	if op.cfg.QoS > 0 && !op.hasID {
		id, ok := e.cps.packetIDs.alloc()
		if !ok {
			return ErrOutOfMemory
		}
		op.pktID = id
		op.hasID = true
	}

	pkt := &wire.PublishPacket{
		Topic:      topic,
		QoS:        op.cfg.QoS,
		Retain:     op.cfg.Retain,
		PacketID:   op.pktID,
		Payload:    op.cfg.Payload,
		Dup:        op.dup,
		Version:    e.version,
		Properties: buildPublishProperties(op.cfg, alias),
	}

	if eerr := e.sendMessage(pkt); eerr != ErrNone {
		return eerr
	}

	switch op.cfg.QoS {
	case 0:
		op.state = publishSentQoS0
		op.finish(e, StatusComplete, &PublishResult{ReasonCode: ReasonCodeSuccess})
	case 1:
		if !resend {
			e.cps.inFlightSends++
		}
		op.state = publishWaitPuback
		op.armTimer(e)
	case 2:
		if !resend {
			e.cps.inFlightSends++
		}
		op.state = publishWaitPubrec
		op.armTimer(e)
	}
	return ErrNone
}

func (op *publishOp) armTimer(e *Engine) {
	op.timer = e.timerMgr.arm(TimerOpResponse, e.cfg.DefaultResponseTimeoutMs, func() {
		op.onTimeout(e)
	})
}

func (op *publishOp) onTimeout(e *Engine) {
	if op.resends >= e.cfg.PublishResendLimit {
		op.releaseWindow(e)
		op.finish(e, StatusTimeout, nil)
		return
	}
	op.resends++
	switch op.state {
	case publishWaitPuback, publishWaitPubrec:
		op.dup = true
		_ = op.transmit(e)
	case publishWaitPubcomp:
		_ = op.sendPubrel(e)
	}
}

func (op *publishOp) onPuback(e *Engine, p *wire.PubackPacket) {
	if op.state != publishWaitPuback {
		return
	}
	e.timerMgr.cancel(op.timer)
	e.resendPrecedingUnacked(op)
	op.releaseWindow(e)

	reason := ReasonCode(p.ReasonCode)
	op.finish(e, StatusComplete, &PublishResult{ReasonCode: reason})
	e.resumePausedPublishes()
}

func (op *publishOp) onPubrec(e *Engine, p *wire.PubrecPacket) {
	if op.state != publishWaitPubrec {
		return
	}
	e.timerMgr.cancel(op.timer)
	reason := ReasonCode(p.ReasonCode)
	if !reason.Success() {
		e.resendPrecedingUnacked(op)
		op.releaseWindow(e)
		op.finish(e, StatusComplete, &PublishResult{ReasonCode: reason})
		e.resumePausedPublishes()
		return
	}
	_ = op.sendPubrel(e)
}

func (op *publishOp) sendPubrel(e *Engine) EngineError {
	pkt := &wire.PubrelPacket{PacketID: op.pktID, Version: e.version}
	if eerr := e.sendMessage(pkt); eerr != ErrNone {
		return eerr
	}
	op.state = publishWaitPubcomp
	op.armTimer(e)
	return ErrNone
}

func (op *publishOp) onPubcomp(e *Engine, p *wire.PubcompPacket) {
	if op.state != publishWaitPubcomp {
		return
	}
	e.timerMgr.cancel(op.timer)
	e.resendPrecedingUnacked(op)
	op.releaseWindow(e)
	op.finish(e, StatusComplete, &PublishResult{ReasonCode: ReasonCode(p.ReasonCode)})
	e.resumePausedPublishes()
}

// resendPrecedingUnacked corrects broker head-of-line reordering: when an
// ack arrives for an operation that isn't the head of the send queue, every
// still-unacknowledged predecessor is force-resent with DUP (§4.3.3). The
// pending PDU is whatever the op is actually waiting on: PUBLISH before
// PUBREC, PUBREL after. Resent through the op's own transmit/sendPubrel
// path so topic/alias and properties are rebuilt rather than reconstructed
// by hand.
func (e *Engine) resendPrecedingUnacked(acked *publishOp) {
	for _, other := range e.publishOps {
		if other == acked {
			return
		}
		if !other.waiting() {
			continue
		}
		e.timerMgr.cancel(other.timer)
		other.dup = true
		switch other.state {
		case publishWaitPuback, publishWaitPubrec:
			_ = other.transmit(e)
		case publishWaitPubcomp:
			_ = other.sendPubrel(e)
		}
	}
}

func (op *publishOp) releaseWindow(e *Engine) {
	if op.cfg.QoS > 0 {
		e.cps.inFlightSends--
		if op.hasID {
			e.cps.packetIDs.release(op.pktID)
		}
	}
}

// resumePausedPublishes sends any publishes parked in publishPaused once
// window or ordering constraints clear (on ack, or after a reconnect).
func (e *Engine) resumePausedPublishes() {
	for _, op := range e.publishOps {
		if op.started && !op.finished && op.state == publishPaused && !e.windowBlocked(op) {
			_ = op.transmit(e)
		}
	}
}

// postReconnectionResend restarts every non-paused, previously-sent publish
// from "PUBLISH with DUP=true" after a session_present=true reconnect,
// stripping any alias property whose validity is now unknown (§4.3.3).
func (e *Engine) postReconnectionResend() {
	for _, op := range e.publishOps {
		if op.state == publishPaused || op.finished {
			continue
		}
		op.cfg.AliasPreference = ForceTopicOnly
		op.dup = true
		switch op.state {
		case publishWaitPuback, publishWaitPubrec:
			_ = op.transmit(e)
		case publishWaitPubcomp:
			_ = op.sendPubrel(e)
		}
	}
}

func (e *Engine) resumePausedPublishesAfterReconnect() {
	e.postReconnectionResend()
	e.resumePausedPublishes()
}

// Cancel is idempotent while the op is still unsent (§4's cancellation
// rules); once sent it completes locally as Aborted without unwinding any
// broker-side state.
func (op *publishOp) Cancel(e *Engine) {
	if !op.started {
		e.unlockPreparation()
		op.finished = true
		return
	}
	if op.waiting() {
		e.timerMgr.cancel(op.timer)
		op.releaseWindow(e)
	}
	op.finish(e, StatusAborted, nil)
}

func (op *publishOp) finish(e *Engine, status Status, result *PublishResult) {
	if op.finished {
		return
	}
	op.finished = true
	op.state = publishComplete
	if op.cb != nil {
		op.cb(status, result)
	}
}

func (op *publishOp) onBrokerGone(e *Engine) {
	if op.finished {
		return
	}
	if op.waiting() {
		e.timerMgr.cancel(op.timer)
	}
	op.finish(e, StatusBrokerDisconnected, nil)
}
