// Package engine implements the cooperative, single-threaded MQTT v5
// protocol engine: session state, the operation scheduler, the packet-ID
// allocator, topic-alias tables, the timer manager, and the incoming-packet
// framer/dispatcher. It owns no transport and no wall clock — callers drive
// it entirely through FeedBytes, Tick, and the Callbacks seams.
package engine

import (
	"bytes"
	"errors"

	"github.com/wavemq/mqtt5/internal/wire"
)

// engineState tracks the session lifecycle from construction to disconnect.
type engineState uint8

const (
	stateUninitialized engineState = iota
	stateInitialized
	stateConnecting
	stateConnected
	stateDisconnecting
	stateDisconnected
)

// MessageInfo is the inbound-delivery record handed to Callbacks.MessageReceived.
type MessageInfo struct {
	Topic      string
	Payload    []byte
	QoS        uint8
	Retain     bool
	Duplicate  bool
	Properties *wire.Properties
}

// Callbacks are the engine's six external seams (§6). They are plain
// function fields rather than an interface, matching the teacher's
// preference for function-typed single-method collaborators.
type Callbacks struct {
	SendBytes          func(buf []byte)
	ScheduleTick       func(ms int64)
	CancelTick         func() (elapsedMs int64)
	BrokerDisconnected func(reason DisconnectReason, info *DisconnectInfo)
	MessageReceived    func(msg MessageInfo)
	ErrorLog           func(text string)
}

func (c Callbacks) logError(text string) {
	if c.ErrorLog != nil {
		c.ErrorLog(text)
	}
}

// Engine is one MQTT v5 client session. It is not safe for concurrent use
// from multiple goroutines; callers (typically the host layer) must
// serialize entry.
type Engine struct {
	guard      apiGuard
	reg        registry
	prepLocked bool

	cfg  Configuration
	caps capabilityState
	cps  *clientPersistentState
	ses  *sessionEphemeralState

	cb      Callbacks
	version uint8
	state   engineState

	timerMgr *timerManager

	clientID  string
	inbuf     []byte
	tickArmed bool

	connect     *connectOp
	disconnect  *disconnectOp
	keepAlive   *keepAliveOp
	reauth      *reauthOp
	publishOps  []*publishOp
	recvOps     []*recvOp
	subOps      []*subscribeOp
	unsubOps    []*unsubscribeOp
}

// Option configures an Engine at construction time.
type Option func(*Engine)

func WithOrderingPolicy(p OrderingPolicy) Option {
	return func(e *Engine) { e.cfg.Ordering = p }
}

func WithResponseTimeout(ms int64) Option {
	return func(e *Engine) { e.cfg.DefaultResponseTimeoutMs = ms }
}

func WithPublishResendLimit(n int) Option {
	return func(e *Engine) { e.cfg.PublishResendLimit = n }
}

func WithTopicVerification(outgoing, incoming bool) Option {
	return func(e *Engine) {
		e.cfg.VerifyOutgoingTopic = outgoing
		e.cfg.VerifyIncomingTopic = incoming
	}
}

func WithSubscriptionVerification(on bool) Option {
	return func(e *Engine) { e.cfg.VerifySubscriptionScope = on }
}

func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.cfg.Logger = l
		}
	}
}

// NewEngine constructs an initialized, disconnected engine.
func NewEngine(cb Callbacks, opts ...Option) *Engine {
	e := &Engine{
		cfg:     defaultConfiguration(),
		caps:    defaultCapabilityState(),
		cps:     newClientPersistentState(),
		ses:     newSessionEphemeralState(),
		cb:      cb,
		version: 5,
		state:   stateInitialized,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) ensureTimers() {
	if e.timerMgr == nil {
		e.timerMgr = newTimerManager()
	}
}

// Connected reports whether the session has an active CONNACK-confirmed
// connection.
func (e *Engine) Connected() bool { return e.state == stateConnected }

// lockPreparation enforces §3's invariant that only one operation may be
// between prepare and send/cancel at a time, across all operation types.
func (e *Engine) lockPreparation() EngineError {
	if e.prepLocked {
		return ErrPreparationLocked
	}
	e.prepLocked = true
	return ErrNone
}

// unlockPreparation releases the preparation lock once an op is sent (by
// any outcome) or cancelled.
func (e *Engine) unlockPreparation() { e.prepLocked = false }

func (e *Engine) enter() bool {
	first := e.guard.enter()
	if first && e.cb.CancelTick != nil {
		elapsed := e.cb.CancelTick()
		e.ensureTimers()
		e.timerMgr.tick(elapsed)
	}
	e.ensureTimers()
	return first
}

func (e *Engine) leave() {
	if e.guard.exit() {
		e.reg.compact()
		if e.cb.ScheduleTick != nil {
			if ms, ok := e.timerMgr.minRemaining(); ok {
				e.cb.ScheduleTick(ms)
			}
		}
	}
}

// Tick advances all logical timers by elapsedMs, firing any that cross zero.
func (e *Engine) Tick(elapsedMs int64) {
	e.enter()
	defer e.leave()
	e.timerMgr.tick(elapsedMs)
}

// sendMessage serialises pkt and hands it to SendBytes as a single
// contiguous call (§5 Shared-resource policy).
func (e *Engine) sendMessage(pkt wire.Packet) EngineError {
	if e.caps.maxSendPacketSize > 0 {
		var counted bytes.Buffer
		if _, err := pkt.WriteTo(&counted); err != nil {
			return ErrInternalError
		}
		if uint32(counted.Len()) > e.caps.maxSendPacketSize {
			return ErrBadParam
		}
		if e.cb.SendBytes != nil {
			e.cb.SendBytes(counted.Bytes())
		}
		if e.keepAlive != nil {
			e.keepAlive.onAnySend(e)
		}
		return ErrNone
	}

	var buf bytes.Buffer
	if _, err := pkt.WriteTo(&buf); err != nil {
		return ErrInternalError
	}
	if e.cb.SendBytes != nil {
		e.cb.SendBytes(buf.Bytes())
	}
	if e.keepAlive != nil {
		e.keepAlive.onAnySend(e)
	}
	return ErrNone
}

// FeedBytes consumes whole messages one at a time out of buf (plus any
// bytes buffered from a previous partial call) and dispatches each.
func (e *Engine) FeedBytes(buf []byte) EngineError {
	e.enter()
	defer e.leave()

	e.inbuf = append(e.inbuf, buf...)
	for {
		r := bytes.NewReader(e.inbuf)
		pkt, err := wire.ReadPacket(r, e.version, 0)
		if err != nil {
			if errors.Is(err, wire.ErrIncomplete) {
				return ErrNone // need more bytes
			}
			e.cb.logError("malformed packet: " + err.Error())
			e.protocolError(ReasonCodeMalformedPacket, "malformed packet")
			return ErrNone
		}
		consumed := len(e.inbuf) - r.Len()
		e.inbuf = e.inbuf[consumed:]
		e.dispatch(pkt)
		if len(e.inbuf) == 0 {
			return ErrNone
		}
	}
}

// dispatch routes one decoded message per the fixed priority order of §4.2.
func (e *Engine) dispatch(pkt wire.Packet) {
	if e.keepAlive != nil {
		e.keepAlive.onAnyInbound(e)
	}

	switch p := pkt.(type) {
	case *wire.PublishPacket:
		e.dispatchPublish(p)
	case *wire.PubackPacket:
		if op, ok := e.publishOpByID(p.PacketID); ok {
			op.onPuback(e, p)
		}
	case *wire.PubrecPacket:
		if op, ok := e.publishOpByID(p.PacketID); ok {
			op.onPubrec(e, p)
		}
	case *wire.PubrelPacket:
		if op, ok := e.recvOpByID(p.PacketID); ok {
			op.onPubrel(e, p)
		}
	case *wire.PubcompPacket:
		if op, ok := e.publishOpByID(p.PacketID); ok {
			op.onPubcomp(e, p)
		}
	case *wire.ConnackPacket:
		if e.connect != nil {
			e.connect.onConnack(e, p)
		}
	case *wire.AuthPacket:
		if e.reauth != nil && e.reauth.active() {
			e.reauth.onAuth(e, p)
		} else if e.connect != nil {
			e.connect.onAuth(e, p)
		}
	case *wire.DisconnectPacket:
		e.onBrokerDisconnect(p)
	case *wire.SubackPacket:
		if op, ok := e.subOpByID(p.PacketID); ok {
			op.onSuback(e, p)
		}
	case *wire.UnsubackPacket:
		if op, ok := e.unsubOpByID(p.PacketID); ok {
			op.onUnsuback(e, p)
		}
	case *wire.PingrespPacket:
		if e.keepAlive != nil {
			e.keepAlive.onPingresp(e)
		}
	}
}

func (e *Engine) dispatchPublish(p *wire.PublishPacket) {
	if p.QoS == 2 {
		if op, ok := e.recvOpByID(p.PacketID); ok {
			op.onDuplicatePublish(e, p)
			return
		}
	}
	op := newRecvOp(e, p)
	if op == nil {
		return
	}
	e.recvOps = append(e.recvOps, op)
	e.reg.add(opHandle{kind: opRecv, index: len(e.recvOps) - 1}, op)
	op.run(e, p)
}

func (e *Engine) publishOpByID(id uint16) (*publishOp, bool) {
	if op := e.reg.byPacketID(opPublish, id); op != nil {
		return op.(*publishOp), true
	}
	return nil, false
}

func (e *Engine) recvOpByID(id uint16) (*recvOp, bool) {
	if op := e.reg.byPacketID(opRecv, id); op != nil {
		return op.(*recvOp), true
	}
	return nil, false
}

func (e *Engine) subOpByID(id uint16) (*subscribeOp, bool) {
	if op := e.reg.byPacketID(opSubscribe, id); op != nil {
		return op.(*subscribeOp), true
	}
	return nil, false
}

func (e *Engine) unsubOpByID(id uint16) (*unsubscribeOp, bool) {
	if op := e.reg.byPacketID(opUnsubscribe, id); op != nil {
		return op.(*unsubscribeOp), true
	}
	return nil, false
}

// liveHighQoSRecvCount counts QoS2 Recv operations still awaiting PUBREL,
// used to enforce the receive-direction high-QoS window cap (§4.3.4).
func (e *Engine) liveHighQoSRecvCount() int {
	n := 0
	for _, op := range e.recvOps {
		if !op.done() && op.qos == 2 {
			n++
		}
	}
	return n
}

// protocolError emits DISCONNECT{reason} and tears the session down,
// completing all live operations with StatusBrokerDisconnected (§7).
func (e *Engine) protocolError(reason ReasonCode, msg string) {
	e.cb.logError(msg)
	_ = e.sendMessage(&wire.DisconnectPacket{ReasonCode: uint8(reason), Version: e.version})
	e.enterDisconnectedState(DisconnectMsg, &DisconnectInfo{ReasonCode: reason, ReasonString: msg})
}

// Sync resynchronizes the timer manager against the host's wall clock and
// reschedules ScheduleTick for the soonest pending deadline. FeedBytes and
// Tick do this on every call; entrypoints that only arm or cancel a timer
// (PrepareConnect/Send, PreparePublish/Send, Cancel, Disconnect, ...) do not,
// so the host should call Sync immediately afterward to keep its physical
// timer aligned with whatever the op just scheduled.
func (e *Engine) Sync() {
	e.enter()
	e.leave()
}

// NetworkDisconnected tells the engine that the host's transport dropped
// without a DISCONNECT packet (a read/write error, a closed socket). It
// completes every live operation with StatusBrokerDisconnected, the same as
// a broker-sent DISCONNECT, but reports DisconnectNetwork to the host so it
// can distinguish the two when deciding whether to reconnect.
func (e *Engine) NetworkDisconnected() {
	e.enter()
	defer e.leave()
	if e.state == stateDisconnected {
		return
	}
	e.cps.networkDown = true
	e.enterDisconnectedState(DisconnectNetwork, nil)
}

func (e *Engine) onBrokerDisconnect(p *wire.DisconnectPacket) {
	info := &DisconnectInfo{ReasonCode: ReasonCode(p.ReasonCode)}
	if p.Properties != nil {
		if p.Properties.Presence&wire.PresReasonString != 0 {
			info.ReasonString = p.Properties.ReasonString
		}
		if p.Properties.Presence&wire.PresServerReference != 0 {
			info.ServerReference = p.Properties.ServerReference
		}
		if len(p.Properties.UserProperties) > 0 {
			info.UserProperties = make(map[string]string, len(p.Properties.UserProperties))
			for _, up := range p.Properties.UserProperties {
				info.UserProperties[up.Key] = up.Value
			}
		}
	}
	e.enterDisconnectedState(DisconnectMsg, info)
}

// enterDisconnectedState completes every live operation with
// StatusBrokerDisconnected, clears session-ephemeral state, and notifies
// the host via BrokerDisconnected (§7 Protocol violations).
func (e *Engine) enterDisconnectedState(reason DisconnectReason, info *DisconnectInfo) {
	e.state = stateDisconnected
	e.ses.reset()
	e.keepAlive = nil

	for _, op := range e.publishOps {
		op.onBrokerGone(e)
	}
	for _, op := range e.recvOps {
		op.onBrokerGone(e)
	}
	for _, op := range e.subOps {
		op.onBrokerGone(e)
	}
	for _, op := range e.unsubOps {
		op.onBrokerGone(e)
	}
	if e.connect != nil {
		e.connect.onBrokerGone(e)
	}
	if e.reauth != nil {
		e.reauth.onBrokerGone(e)
	}

	if e.cb.BrokerDisconnected != nil {
		e.cb.BrokerDisconnected(reason, info)
	}
}
