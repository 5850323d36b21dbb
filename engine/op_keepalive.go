package engine

import "github.com/wavemq/mqtt5/internal/wire"

// keepAliveOp is the singleton of §4.3.7, auto-created on successful
// connect. It drives three timers: a ping timer armed from the last
// message sent, a recv timer armed from the last message received, and a
// response timer armed only while a PINGREQ is outstanding.
type keepAliveOp struct {
	intervalMs  int64
	pingTimer   timerHandle
	recvTimer   timerHandle
	respTimer   timerHandle
	respArmed   bool
}

func newKeepAliveOp(intervalMs uint32) *keepAliveOp {
	if intervalMs == 0 {
		return &keepAliveOp{intervalMs: 0}
	}
	return &keepAliveOp{intervalMs: int64(intervalMs)}
}

func (op *keepAliveOp) packetID() (uint16, bool) { return 0, false }
func (op *keepAliveOp) done() bool               { return false }

// arm is called once, right after CONNACK, to start both silence timers.
func (op *keepAliveOp) arm(e *Engine) {
	if op.intervalMs == 0 {
		return
	}
	op.pingTimer = e.timerMgr.arm(TimerPing, op.intervalMs, func() { op.sendPing(e) })
	op.recvTimer = e.timerMgr.arm(TimerRecvDeadline, op.intervalMs, func() { op.sendPing(e) })
}

// onAnySend restarts the ping-silence timer; sendMessage calls it for every
// outbound packet, PINGREQ included.
func (op *keepAliveOp) onAnySend(e *Engine) {
	if op.intervalMs == 0 {
		return
	}
	e.timerMgr.cancel(op.pingTimer)
	op.pingTimer = e.timerMgr.arm(TimerPing, op.intervalMs, func() { op.sendPing(e) })
}

// onAnyInbound restarts the recv-silence timer and cancels a pending
// response deadline (any inbound packet counts as broker liveness).
func (op *keepAliveOp) onAnyInbound(e *Engine) {
	if op.respArmed {
		e.timerMgr.cancel(op.respTimer)
		op.respArmed = false
	}
	if op.intervalMs == 0 {
		return
	}
	e.timerMgr.cancel(op.recvTimer)
	op.recvTimer = e.timerMgr.arm(TimerRecvDeadline, op.intervalMs, func() { op.sendPing(e) })
}

func (op *keepAliveOp) sendPing(e *Engine) {
	if op.respArmed {
		return // a PINGREQ is already outstanding
	}
	if eerr := e.sendMessage(&wire.PingreqPacket{}); eerr != ErrNone {
		return
	}
	op.respArmed = true
	op.respTimer = e.timerMgr.arm(TimerRespDeadline, e.cfg.DefaultResponseTimeoutMs, func() {
		op.respArmed = false
		e.cb.logError("no PINGRESP within response timeout")
		_ = e.sendMessage(&wire.DisconnectPacket{ReasonCode: uint8(ReasonCodeKeepAliveTimeout), Version: e.version})
		e.enterDisconnectedState(DisconnectNoBrokerResponse, nil)
	})
}

func (op *keepAliveOp) onPingresp(e *Engine) {
	if op.respArmed {
		e.timerMgr.cancel(op.respTimer)
		op.respArmed = false
	}
}
