package mq

import "github.com/wavemq/mqtt5/engine"

// WithAlias lets the engine use its send-side topic-alias table for this
// publish instead of always sending the full topic string.
//
// Only applicable for MQTT v5.0, and only once the broker has advertised a
// non-zero Topic Alias Maximum in CONNACK. The engine uses an alias only for
// a topic that already has an entry in its send-side alias table; a topic
// without one is sent with its full topic string. No alias is assigned
// automatically, and nothing in this package adds entries to that table.
//
// Example:
//
//	client.Publish("sensors/building-a/floor-3/room-42/temperature", data,
//	    mq.WithAlias())
func WithAlias() PublishOption {
	return func(o *PublishOptions) {
		o.Alias = engine.UseAliasIfAvailable
	}
}
