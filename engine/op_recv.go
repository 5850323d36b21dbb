package engine

import "github.com/wavemq/mqtt5/internal/wire"

type recvState uint8

const (
	recvDelivering recvState = iota
	recvWaitPubrel
	recvComplete
)

// recvOp implements §4.3.4: created per inbound PUBLISH that is either
// QoS<2 or QoS2 with a previously-unseen packet id.
type recvOp struct {
	pktID    uint16
	hasID    bool
	qos      uint8
	state    recvState
	timer    timerHandle
	finished bool
}

func (op *recvOp) packetID() (uint16, bool) { return op.pktID, op.hasID }
func (op *recvOp) done() bool               { return op.finished }

// newRecvOp validates and admits an inbound PUBLISH, returning nil (having
// already replied/disconnected as required) if the message must not spawn
// an operation.
func newRecvOp(e *Engine, p *wire.PublishPacket) *recvOp {
	if p.QoS > e.caps.maxQoS {
		e.protocolError(ReasonCodeQoSNotSupported, "received PUBLISH exceeding negotiated max QoS")
		return nil
	}

	topic, eerr := resolveInboundTopic(e, p)
	if eerr != ErrNone {
		e.protocolError(ReasonCodeTopicAliasInvalid, "invalid or unknown topic alias")
		return nil
	}
	p.Topic = topic

	if e.cfg.VerifyIncomingTopic {
		if ev := validatePublishTopic(topic); ev != ErrNone {
			e.protocolError(ReasonCodeTopicNameInvalid, "invalid inbound topic name")
			return nil
		}
	}

	if p.QoS == 2 && e.liveHighQoSRecvCount() >= int(e.caps.recvHighQoSWindow) {
		e.protocolError(ReasonCodeReceiveMaximumExceed, "receive maximum exceeded")
		return nil
	}

	if e.cfg.VerifySubscriptionScope && !matchesAnySubscription(e.ses.subscriptions, topic) {
		op := &recvOp{qos: p.QoS}
		if p.QoS > 0 {
			op.pktID, op.hasID = p.PacketID, true
		}
		op.rejectUnauthorized(e, p)
		return op
	}

	op := &recvOp{qos: p.QoS}
	if p.QoS > 0 {
		op.pktID, op.hasID = p.PacketID, true
	}
	return op
}

// resolveInboundTopic implements the receive-side half of §4.6: an
// alias-only PUBLISH resolves against the receive alias table; a
// topic+alias PUBLISH registers the mapping.
func resolveInboundTopic(e *Engine, p *wire.PublishPacket) (string, EngineError) {
	if p.Properties == nil || p.Properties.Presence&wire.PresTopicAlias == 0 {
		return p.Topic, ErrNone
	}
	alias := p.Properties.TopicAlias
	if alias == 0 {
		return "", ErrBadParam
	}
	if p.Topic == "" {
		topic, ok := e.ses.recvAliases.resolve(alias)
		if !ok {
			return "", ErrBadParam
		}
		return topic, ErrNone
	}
	if !e.ses.recvAliases.register(alias, p.Topic) {
		return "", ErrBadParam
	}
	return p.Topic, ErrNone
}

func (op *recvOp) rejectUnauthorized(e *Engine, p *wire.PublishPacket) {
	switch p.QoS {
	case 1:
		_ = e.sendMessage(&wire.PubackPacket{PacketID: p.PacketID, ReasonCode: uint8(ReasonCodeNotAuthorized), Version: e.version})
	case 2:
		_ = e.sendMessage(&wire.PubrecPacket{PacketID: p.PacketID, ReasonCode: uint8(ReasonCodeNotAuthorized), Version: e.version})
	}
	op.finished = true
}

// run delivers the message and drives the QoS0/1/2 completion shape.
func (op *recvOp) run(e *Engine, p *wire.PublishPacket) {
	if op.finished {
		return
	}

	if e.cb.MessageReceived != nil {
		e.cb.MessageReceived(MessageInfo{
			Topic: p.Topic, Payload: p.Payload, QoS: p.QoS,
			Retain: p.Retain, Duplicate: p.Dup, Properties: p.Properties,
		})
	}

	switch p.QoS {
	case 0:
		op.finished = true
	case 1:
		_ = e.sendMessage(&wire.PubackPacket{PacketID: p.PacketID, Version: e.version})
		op.finished = true
	case 2:
		_ = e.sendMessage(&wire.PubrecPacket{PacketID: p.PacketID, Version: e.version})
		op.state = recvWaitPubrel
		op.timer = e.timerMgr.arm(TimerRecvDeadline, e.cfg.DefaultResponseTimeoutMs, func() {
			op.finished = true
		})
	}
}

// onDuplicatePublish handles a repeated QoS2 PUBLISH for a packet id
// already tracked: reply PUBREC only, do not re-deliver (§4.3.4).
func (op *recvOp) onDuplicatePublish(e *Engine, p *wire.PublishPacket) {
	if op.state != recvWaitPubrel {
		return
	}
	_ = e.sendMessage(&wire.PubrecPacket{PacketID: p.PacketID, Version: e.version})
}

func (op *recvOp) onPubrel(e *Engine, p *wire.PubrelPacket) {
	if op.state != recvWaitPubrel {
		return
	}
	e.timerMgr.cancel(op.timer)
	_ = e.sendMessage(&wire.PubcompPacket{PacketID: p.PacketID, Version: e.version})
	op.finished = true
}

func (op *recvOp) onBrokerGone(e *Engine) {
	if op.finished {
		return
	}
	if op.state == recvWaitPubrel {
		e.timerMgr.cancel(op.timer)
	}
	op.finished = true
}
