package mq

import (
	"sync"
	"time"
)

// tickScheduler turns the engine's ScheduleTick/CancelTick callback pair
// into a single real time.Timer. It is the only place in the host layer
// (besides reconnectLoop's backoff sleep) that touches a wall clock timer;
// the engine core owns no clock of its own.
type tickScheduler struct {
	mu      sync.Mutex
	timer   *time.Timer
	armedAt time.Time
	armed   bool
	fire    func(elapsedMs int64)
}

func newTickScheduler(fire func(elapsedMs int64)) *tickScheduler {
	return &tickScheduler{fire: fire}
}

// schedule implements engine.Callbacks.ScheduleTick.
func (s *tickScheduler) schedule(ms int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.armedAt = time.Now()
	s.armed = true
	s.timer = time.AfterFunc(time.Duration(ms)*time.Millisecond, s.onFire)
}

func (s *tickScheduler) onFire() {
	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return
	}
	elapsed := time.Since(s.armedAt).Milliseconds()
	s.armed = false
	s.mu.Unlock()
	s.fire(elapsed)
}

// cancel implements engine.Callbacks.CancelTick. A race exists where the
// timer fires at the same moment an unrelated engine call cancels it; armed
// guards against double-firing either way.
func (s *tickScheduler) cancel() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return 0
	}
	s.armed = false
	if s.timer != nil {
		s.timer.Stop()
	}
	return time.Since(s.armedAt).Milliseconds()
}

// stop disarms the scheduler for good, called during client shutdown.
func (s *tickScheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = false
	if s.timer != nil {
		s.timer.Stop()
	}
}
