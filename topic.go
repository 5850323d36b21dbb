package mq

import "strings"

// MatchTopic reports whether topic matches filter under MQTT wildcard rules.
// It is exported for callers implementing their own local routing on top of
// DefaultPublishHandler; the client uses the same logic internally to
// dispatch incoming messages to registered subscription handlers.
//
// Supports:
//   - '+' matches a single level
//   - '#' matches multiple levels (must be last character)
func MatchTopic(filter, topic string) bool {
	return matchTopic(filter, topic)
}

// matchTopic checks if a topic matches a topic filter with MQTT wildcards,
// used by the host layer to route an incoming message to the registered
// subscription handler(s). Wire-level validation (length, wildcard shape,
// payload size) lives in the engine now; this is purely local dispatch.
func matchTopic(filter, topic string) bool {
	// MQTT-4.7.2-1: a filter starting with a wildcard never matches a topic
	// starting with '$', even though that rule is framed as a server
	// obligation; local dispatch honors it too.
	if len(topic) > 0 && topic[0] == '$' {
		if len(filter) > 0 && (filter[0] == '+' || filter[0] == '#') {
			return false
		}
	}

	fIdx := 0
	tIdx := 0
	fLen := len(filter)
	tLen := len(topic)

	for fIdx <= fLen {
		var fLevel string
		var fNext int

		if idx := strings.IndexByte(filter[fIdx:], '/'); idx >= 0 {
			fNext = fIdx + idx
			fLevel = filter[fIdx:fNext]
		} else {
			fNext = fLen
			fLevel = filter[fIdx:]
		}

		if fLevel == "#" {
			return true
		}

		if tIdx > tLen {
			return false
		}

		var tLevel string
		var tNext int

		if idx := strings.IndexByte(topic[tIdx:], '/'); idx >= 0 {
			tNext = tIdx + idx
			tLevel = topic[tIdx:tNext]
		} else {
			tNext = tLen
			tLevel = topic[tIdx:]
		}

		if fLevel == "+" {
			// matches this level unconditionally
		} else if fLevel != tLevel {
			return false
		}

		if fNext == fLen {
			fIdx = fLen + 1
		} else {
			fIdx = fNext + 1
		}

		if tNext == tLen {
			tIdx = tLen + 1
		} else {
			tIdx = tNext + 1
		}
	}

	return tIdx > tLen
}
