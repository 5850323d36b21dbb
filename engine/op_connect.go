package engine

import "github.com/wavemq/mqtt5/internal/wire"

type connectState uint8

const (
	connectIdle connectState = iota
	connectSent
	connectWaitConnack
	connectWaitAuth
	connectComplete
	connectFailed
)

// connectOp implements §4.3.1: Idle → Sent[SendConnect] → {WaitConnack |
// WaitAuth} → Complete/Failed.
type connectOp struct {
	state    connectState
	cfg      ConnectConfig
	cb       ConnectCallback
	timer    timerHandle
	finished bool
}

func (op *connectOp) packetID() (uint16, bool) { return 0, false }
func (op *connectOp) done() bool               { return op.finished }
func (op *connectOp) active() bool {
	return op.state == connectWaitConnack || op.state == connectWaitAuth
}

// PrepareConnect creates a new Connect operation. Only one may be
// outstanding at a time (§3 invariants).
func (e *Engine) PrepareConnect(cfg ConnectConfig) (*connectOp, EngineError) {
	if e.connect != nil && e.connect.active() {
		return nil, ErrBusy
	}
	if cfg.ClientID == "" && !cfg.CleanStart {
		return nil, ErrBadParam
	}
	if eerr := e.lockPreparation(); eerr != ErrNone {
		return nil, eerr
	}
	if cfg.ResponseTimeoutMs == 0 {
		cfg.ResponseTimeoutMs = e.cfg.DefaultResponseTimeoutMs
	}
	op := &connectOp{cfg: cfg}
	e.connect = op
	return op, ErrNone
}

// Send serialises and transmits the CONNECT packet.
func (op *connectOp) Send(e *Engine, cb ConnectCallback) EngineError {
	if op.state != connectIdle {
		return ErrBusy
	}
	defer e.unlockPreparation()
	op.cb = cb

	pkt := &wire.ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 5,
		CleanSession:  op.cfg.CleanStart || e.cps.firstConnect,
		ClientID:      op.cfg.ClientID,
		KeepAlive:     op.cfg.KeepAliveSec,
		Properties:    connectProperties(op.cfg),
	}
	if op.cfg.Will != nil {
		w := op.cfg.Will
		pkt.WillFlag = true
		pkt.WillTopic = w.Topic
		pkt.WillMessage = w.Payload
		pkt.WillQoS = w.QoS
		pkt.WillRetain = w.Retain
		pkt.WillProperties = willProperties(w)
	}
	if op.cfg.Username != "" {
		pkt.UsernameFlag = true
		pkt.Username = op.cfg.Username
	}
	if op.cfg.HasPassword {
		pkt.PasswordFlag = true
		pkt.Password = op.cfg.Password
	}

	if eerr := e.sendMessage(pkt); eerr != ErrNone {
		return eerr
	}

	e.state = stateConnecting
	op.state = connectWaitConnack
	op.timer = e.timerMgr.arm(TimerOpResponse, op.cfg.ResponseTimeoutMs, func() {
		op.finish(e, StatusTimeout, nil)
	})
	return ErrNone
}

func connectProperties(cfg ConnectConfig) *wire.Properties {
	p := &wire.Properties{}
	if cfg.ReceiveMaximum > 0 {
		p.Presence |= wire.PresReceiveMaximum
		p.ReceiveMaximum = cfg.ReceiveMaximum
	}
	if cfg.MaxPacketSize > 0 {
		p.Presence |= wire.PresMaximumPacketSize
		p.MaximumPacketSize = cfg.MaxPacketSize
	}
	if cfg.TopicAliasMaximum > 0 {
		p.Presence |= wire.PresTopicAliasMaximum
		p.TopicAliasMaximum = cfg.TopicAliasMaximum
	}
	if cfg.RequestResponseInfo {
		p.Presence |= wire.PresRequestResponseInformation
		p.RequestResponseInformation = 1
	}
	if cfg.RequestProblemInfo {
		p.Presence |= wire.PresRequestProblemInformation
		p.RequestProblemInformation = 1
	}
	if cfg.SessionExpiryIntervalMs > 0 {
		p.Presence |= wire.PresSessionExpiryInterval
		p.SessionExpiryInterval = cfg.SessionExpiryIntervalMs / 1000
	}
	if cfg.AuthMethod != "" {
		p.Presence |= wire.PresAuthenticationMethod
		p.AuthenticationMethod = cfg.AuthMethod
		if len(cfg.AuthData) > 0 {
			p.Presence |= wire.PresAuthenticationMethod
			p.AuthenticationData = cfg.AuthData
		}
	}
	if len(cfg.UserProperties) > 0 {
		p.UserProperties = toWireUserProperties(cfg.UserProperties)
	}
	return p
}

func willProperties(w *WillConfig) *wire.Properties {
	p := &wire.Properties{}
	if w.DelayIntervalMs > 0 {
		p.Presence |= wire.PresWillDelayInterval
		p.WillDelayInterval = w.DelayIntervalMs / 1000
	}
	if w.PayloadFormatUTF8 {
		p.Presence |= wire.PresPayloadFormatIndicator
		p.PayloadFormatIndicator = 1
	}
	if w.MessageExpiryMs > 0 {
		p.Presence |= wire.PresMessageExpiryInterval
		p.MessageExpiryInterval = w.MessageExpiryMs / 1000
	}
	if w.ContentType != "" {
		p.Presence |= wire.PresContentType
		p.ContentType = w.ContentType
	}
	if w.ResponseTopic != "" {
		p.Presence |= wire.PresResponseTopic
		p.ResponseTopic = w.ResponseTopic
	}
	if len(w.CorrelationData) > 0 {
		p.CorrelationData = w.CorrelationData
	}
	if len(w.UserProperties) > 0 {
		p.UserProperties = toWireUserProperties(w.UserProperties)
	}
	return p
}

func (op *connectOp) Cancel(e *Engine) {
	if op.state == connectIdle {
		e.unlockPreparation()
		op.finished = true
		return
	}
	e.timerMgr.cancel(op.timer)
	op.finish(e, StatusAborted, nil)
}

func (op *connectOp) finish(e *Engine, status Status, result *ConnectResult) {
	if op.finished {
		return
	}
	op.finished = true
	op.state = connectComplete
	if status != StatusComplete {
		op.state = connectFailed
	}
	if op.cb != nil {
		op.cb(status, result)
	}
}

func (op *connectOp) onConnack(e *Engine, p *wire.ConnackPacket) {
	if op.state != connectWaitConnack {
		return
	}
	e.timerMgr.cancel(op.timer)

	sessionPresent := p.SessionPresent
	if sessionPresent && (op.cfg.CleanStart || e.cps.firstConnect) {
		e.protocolError(ReasonCodeProtocolError, "broker reported session_present with clean start requested")
		return
	}

	reason := ReasonCode(p.ReturnCode)
	if !reason.Success() {
		e.state = stateDisconnected
		op.finish(e, StatusComplete, &ConnectResult{ReasonCode: reason})
		return
	}

	e.applyNegotiatedCapabilities(p.Properties, op.cfg)

	if !sessionPresent {
		e.cps.reset()
		e.ses.reset()
	}
	e.cps.firstConnect = false
	e.state = stateConnected

	e.keepAlive = newKeepAliveOp(e.caps.keepAliveMs)
	e.keepAlive.arm(e)

	result := &ConnectResult{SessionPresent: sessionPresent, ReasonCode: reason}
	if p.Properties != nil {
		if p.Properties.Presence&wire.PresAssignedClientIdentifier != 0 {
			result.AssignedClientID = p.Properties.AssignedClientIdentifier
			e.clientID = result.AssignedClientID
		}
		if p.Properties.Presence&wire.PresReasonString != 0 {
			result.ReasonString = p.Properties.ReasonString
		}
	}

	if sessionPresent {
		e.resumePausedPublishesAfterReconnect()
	}

	op.finish(e, StatusComplete, result)
}

func (e *Engine) applyNegotiatedCapabilities(p *wire.Properties, cfg ConnectConfig) {
	caps := defaultCapabilityState()
	caps.sendHighQoSWindow = 65535
	caps.recvHighQoSWindow = orDefault16(cfg.ReceiveMaximum, 65535)
	caps.maxRecvTopicAlias = cfg.TopicAliasMaximum
	caps.keepAliveMs = uint32(cfg.KeepAliveSec) * 1000
	caps.sessionExpiryIntervalMs = cfg.SessionExpiryIntervalMs

	if p != nil {
		if p.Presence&wire.PresMaximumQoS != 0 {
			caps.maxQoS = p.MaximumQoS
		}
		if p.Presence&wire.PresRetainAvailable != 0 {
			caps.retainAvailable = p.RetainAvailable
		} else {
			caps.retainAvailable = true
		}
		if p.Presence&wire.PresWildcardSubscriptionAvailable != 0 {
			caps.wildcardSubAvailable = p.WildcardSubscriptionAvailable
		} else {
			caps.wildcardSubAvailable = true
		}
		if p.Presence&wire.PresSubscriptionIdentifierAvailable != 0 {
			caps.subscriptionIDAvailable = p.SubscriptionIdentifierAvailable
		} else {
			caps.subscriptionIDAvailable = true
		}
		if p.Presence&wire.PresSharedSubscriptionAvailable != 0 {
			caps.sharedSubAvailable = p.SharedSubscriptionAvailable
		} else {
			caps.sharedSubAvailable = true
		}
		if p.Presence&wire.PresReceiveMaximum != 0 {
			caps.sendHighQoSWindow = p.ReceiveMaximum
		}
		if p.Presence&wire.PresMaximumPacketSize != 0 {
			caps.maxSendPacketSize = p.MaximumPacketSize
		}
		if p.Presence&wire.PresTopicAliasMaximum != 0 {
			caps.maxSendTopicAlias = p.TopicAliasMaximum
		}
		if p.Presence&wire.PresServerKeepAlive != 0 {
			caps.keepAliveMs = uint32(p.ServerKeepAlive) * 1000
		}
		if p.Presence&wire.PresSessionExpiryInterval != 0 {
			caps.sessionExpiryIntervalMs = p.SessionExpiryInterval * 1000
		}
		if p.Presence&wire.PresAuthenticationMethod != 0 {
			caps.authMethod = p.AuthenticationMethod
		}
		caps.problemInfoAllowed = true
		if p.Presence&wire.PresRequestProblemInformation != 0 {
			caps.problemInfoAllowed = p.RequestProblemInformation != 0
		}
	} else {
		caps.retainAvailable = true
		caps.wildcardSubAvailable = true
		caps.subscriptionIDAvailable = true
		caps.sharedSubAvailable = true
	}

	e.caps = caps
	e.cps.sendAliases.setMax(caps.maxSendTopicAlias)
	e.ses.recvAliases.setMax(caps.maxRecvTopicAlias)
}

func orDefault16(v, def uint16) uint16 {
	if v == 0 {
		return def
	}
	return v
}

func (op *connectOp) onAuth(e *Engine, p *wire.AuthPacket) {
	if op.state != connectWaitAuth && op.state != connectWaitConnack {
		return
	}
	if p.ReasonCode != wire.AuthReasonContinue {
		return
	}
	e.timerMgr.cancel(op.timer)

	if op.cfg.AuthCallback == nil {
		e.protocolError(ReasonCodeProtocolError, "received AUTH without a configured auth callback")
		return
	}
	var inbound []byte
	if p.Properties != nil {
		inbound = p.Properties.AuthenticationData
	}
	cont, reply := op.cfg.AuthCallback(inbound)
	if !cont {
		_ = e.sendMessage(&wire.DisconnectPacket{ReasonCode: uint8(ReasonCodeNotAuthorized), Version: e.version})
		op.finish(e, StatusAborted, nil)
		return
	}

	authPkt := &wire.AuthPacket{
		ReasonCode: wire.AuthReasonContinue,
		Version:    e.version,
		Properties: &wire.Properties{
			Presence:              wire.PresAuthenticationMethod,
			AuthenticationMethod:  op.cfg.AuthMethod,
			AuthenticationData:    reply,
		},
	}
	if eerr := e.sendMessage(authPkt); eerr != ErrNone {
		return
	}
	op.state = connectWaitAuth
	op.timer = e.timerMgr.arm(TimerOpResponse, op.cfg.ResponseTimeoutMs, func() {
		op.finish(e, StatusTimeout, nil)
	})
}

func (op *connectOp) onBrokerGone(e *Engine) {
	if op.active() {
		e.timerMgr.cancel(op.timer)
		op.finish(e, StatusBrokerDisconnected, nil)
	}
}
