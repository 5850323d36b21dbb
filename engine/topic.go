package engine

import (
	"strings"
	"unicode/utf8"
)

// Engine-level topic limits (§4.3.4, §4.3.5). These mirror the host
// library's historical defaults but live here because Recv/Subscribe
// validation is an engine concern, not a host one.
const (
	MaxTopicLength  = 65535
	MaxPayloadSize  = 268435455
	sharedSubPrefix = "$share/"
)

// matchTopic reports whether topic matches filter, including shared
// subscription filters ("$share/<group>/<inner>", matched against the
// inner filter) and the standard +/# wildcards.
func matchTopic(filter, topic string) bool {
	if rest, ok := strings.CutPrefix(filter, sharedSubPrefix); ok {
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			filter = rest[idx+1:]
		}
	}

	// MQTT-4.7.2-1: filters starting with a wildcard never match topics
	// beginning with '$'.
	if len(topic) > 0 && topic[0] == '$' {
		if len(filter) > 0 && (filter[0] == '+' || filter[0] == '#') {
			return false
		}
	}

	fIdx, tIdx := 0, 0
	fLen, tLen := len(filter), len(topic)

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

		if fLevel != "+" && fLevel != tLevel {
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

// validatePublishTopic rejects wildcards, null bytes, invalid UTF-8, and
// over-length topics on the outgoing (PUBLISH) side.
func validatePublishTopic(topic string) EngineError {
	if topic == "" {
		return ErrBadParam
	}
	if len(topic) > MaxTopicLength {
		return ErrBadParam
	}
	if strings.ContainsAny(topic, "+#\x00") {
		return ErrBadParam
	}
	if !utf8.ValidString(topic) {
		return ErrBadParam
	}
	return ErrNone
}

// validateSubscribeTopic checks wildcard placement for a filter presented
// to SUBSCRIBE (§4.3.5): '#' terminal and alone in its level, '+' alone in
// its level, and a well-formed shared-subscription prefix.
func validateSubscribeTopic(filter string) EngineError {
	if filter == "" {
		return ErrBadParam
	}
	if len(filter) > MaxTopicLength {
		return ErrBadParam
	}
	if strings.Contains(filter, "\x00") || !utf8.ValidString(filter) {
		return ErrBadParam
	}

	if rest, ok := strings.CutPrefix(filter, sharedSubPrefix); ok {
		idx := strings.IndexByte(rest, '/')
		if idx <= 0 || idx == len(rest)-1 {
			return ErrBadParam
		}
		filter = rest[idx+1:]
		if filter == "" {
			return ErrBadParam
		}
	}

	parts := strings.Split(filter, "/")
	for i, part := range parts {
		if strings.Contains(part, "+") && part != "+" {
			return ErrBadParam
		}
		if strings.Contains(part, "#") {
			if part != "#" || i != len(parts)-1 {
				return ErrBadParam
			}
		}
	}
	return ErrNone
}

func validatePayload(payload []byte) EngineError {
	if len(payload) > MaxPayloadSize {
		return ErrBadParam
	}
	return ErrNone
}

// matchesAnySubscription reports whether topic matches any filter the
// session currently holds (§4.3.4 subscription-membership verification).
func matchesAnySubscription(filters []string, topic string) bool {
	for _, f := range filters {
		if matchTopic(f, topic) {
			return true
		}
	}
	return false
}
