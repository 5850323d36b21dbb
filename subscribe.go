package mq

import (
	"fmt"
	"strings"

	"github.com/wavemq/mqtt5/engine"
)

// SubscribeOptions holds configuration for a subscription.
type SubscribeOptions struct {
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    uint8
	SubscriptionID    int               // MQTT v5.0: subscription identifier (1-268435455, 0 = none).
	UserProperties    map[string]string // MQTT v5.0: user properties
}

// SubscribeOption is a functional option for configuring a subscription.
type SubscribeOption func(*SubscribeOptions)

// WithSubscribeUserProperty (MQTT v5.0) adds a user property to the subscription.
//
// This option is ignored when using MQTT v3.1.1.
func WithSubscribeUserProperty(key, value string) SubscribeOption {
	return func(o *SubscribeOptions) {
		if o.UserProperties == nil {
			o.UserProperties = make(map[string]string)
		}
		o.UserProperties[key] = value
	}
}

// WithNoLocal (MQTT v5.0) prevents the server from sending messages published by this client
// back to this client.
//
// This option is ignored when using MQTT v3.1.1.
func WithNoLocal(noLocal bool) SubscribeOption {
	return func(o *SubscribeOptions) {
		o.NoLocal = noLocal
	}
}

// WithRetainAsPublished (MQTT v5.0) requests that the server keeps the Retain flag
// as set by the publisher when forwarding the message.
//
// This option is ignored when using MQTT v3.1.1.
func WithRetainAsPublished(retain bool) SubscribeOption {
	return func(o *SubscribeOptions) {
		o.RetainAsPublished = retain
	}
}

// WithRetainHandling (MQTT v5.0) specifies when retained messages are sent.
// 0 = Send retained messages at time of subscribe (default)
// 1 = Send retained messages at subscribe only if subscription doesn't exist
// 2 = Do not send retained messages at time of subscribe
//
// This option is ignored when using MQTT v3.1.1.
func WithRetainHandling(handling uint8) SubscribeOption {
	return func(o *SubscribeOptions) {
		o.RetainHandling = handling
	}
}

// WithSubscriptionIdentifier (MQTT v5.0) sets a subscription identifier for this subscription.
// The identifier is included in PUBLISH packets that match this subscription,
// available via msg.Properties.SubscriptionIdentifier.
//
// Subscription identifiers must be in the range 1-268,435,455. A value of 0
// means no identifier (default).
//
// This option is ignored when using MQTT v3.1.1.
func WithSubscriptionIdentifier(id int) SubscribeOption {
	return func(o *SubscribeOptions) {
		o.SubscriptionID = id
	}
}

// Subscribe subscribes to a topic with the specified QoS level.
//
// The handler function is called for each message received on topics
// matching the subscription filter, each on its own goroutine, so it should
// not block for long periods.
//
// Topic filters support MQTT wildcards:
//   - '+' matches a single level (e.g., "sensors/+/temperature")
//   - '#' matches multiple levels (e.g., "sensors/#")
//
// The function returns a Token that completes when the subscription is
// acknowledged by the server. The handler is registered locally immediately,
// before the token completes, so messages that arrive concurrently with a
// slow SUBACK are never missed. It is also replayed automatically after a
// reconnect that could not resume the session.
func (c *Client) Subscribe(topic string, qos QoS, handler MessageHandler, opts ...SubscribeOption) Token {
	c.opts.Logger.Debug("subscribing to topic", "topic", topic, "qos", qos)

	subOpts := &SubscribeOptions{}
	for _, opt := range opts {
		opt(subOpts)
	}

	if subOpts.SubscriptionID != 0 && (subOpts.SubscriptionID < 1 || subOpts.SubscriptionID > 268435455) {
		tok := newToken()
		tok.complete(fmt.Errorf("subscription identifier must be in range 1-268435455, got %d", subOpts.SubscriptionID))
		return tok
	}
	if subOpts.NoLocal && strings.HasPrefix(topic, "$share/") {
		tok := newToken()
		tok.complete(fmt.Errorf("protocol error: NoLocal cannot be set on a Shared Subscription"))
		return tok
	}

	topicCfg := engine.SubscribeTopicConfig{
		Filter:            topic,
		MaxQoS:            uint8(qos),
		NoLocal:           subOpts.NoLocal,
		RetainAsPublished: subOpts.RetainAsPublished,
		RetainHandling:    subOpts.RetainHandling,
	}

	c.subsLock.Lock()
	c.subscriptions[topic] = subscriptionEntry{handler: c.wrapHandler(handler), cfg: topicCfg}
	c.subsLock.Unlock()

	cfg := engine.SubscribeConfig{
		Topics:         []engine.SubscribeTopicConfig{topicCfg},
		UserProperties: subOpts.UserProperties,
	}
	if subOpts.SubscriptionID > 0 {
		cfg.SubscriptionID = uint32(subOpts.SubscriptionID)
		cfg.HasSubscriptionID = true
	}

	tok := newToken()

	c.mu.Lock()
	op, eerr := c.eng.PrepareSubscribe(cfg)
	if eerr != engine.ErrNone {
		c.mu.Unlock()
		tok.complete(fmt.Errorf("subscribe rejected: %w", eerr))
		return tok
	}
	eerr = op.Send(c.eng, func(status engine.Status, result *engine.SubscribeResult) {
		switch status {
		case engine.StatusComplete:
			if result != nil && len(result.ReasonCodes) > 0 && !result.ReasonCodes[0].Success() {
				c.subsLock.Lock()
				delete(c.subscriptions, topic)
				c.subsLock.Unlock()
				tok.complete(fmt.Errorf("%w: %s", ErrSubscriptionFailed, result.ReasonCodes[0].Name()))
				return
			}
			tok.complete(nil)
		case engine.StatusBrokerDisconnected:
			tok.complete(ErrClientDisconnected)
		default:
			tok.complete(fmt.Errorf("subscribe failed: %s", status))
		}
	})
	c.eng.Sync()
	c.mu.Unlock()

	if eerr != engine.ErrNone {
		c.subsLock.Lock()
		delete(c.subscriptions, topic)
		c.subsLock.Unlock()
		tok.complete(fmt.Errorf("subscribe rejected: %w", eerr))
	}

	return tok
}

// Unsubscribe unsubscribes from one or more topics.
//
// After unsubscribing, the client will no longer receive messages on the
// specified topics. The function returns a Token that completes when the
// unsubscription is acknowledged by the server.
func (c *Client) Unsubscribe(topics ...string) Token {
	c.opts.Logger.Debug("unsubscribing from topics", "topics", topics)

	tok := newToken()
	if len(topics) == 0 {
		tok.complete(nil)
		return tok
	}

	cfg := engine.UnsubscribeConfig{Filters: topics}

	c.mu.Lock()
	op, eerr := c.eng.PrepareUnsubscribe(cfg)
	if eerr != engine.ErrNone {
		c.mu.Unlock()
		tok.complete(fmt.Errorf("unsubscribe rejected: %w", eerr))
		return tok
	}
	eerr = op.Send(c.eng, func(status engine.Status, result *engine.UnsubscribeResult) {
		c.subsLock.Lock()
		for _, t := range topics {
			delete(c.subscriptions, t)
		}
		c.subsLock.Unlock()

		switch status {
		case engine.StatusComplete:
			tok.complete(nil)
		case engine.StatusBrokerDisconnected:
			tok.complete(ErrClientDisconnected)
		default:
			tok.complete(fmt.Errorf("unsubscribe failed: %s", status))
		}
	})
	c.eng.Sync()
	c.mu.Unlock()

	if eerr != engine.ErrNone {
		tok.complete(fmt.Errorf("unsubscribe rejected: %w", eerr))
	}

	return tok
}

// resubscribeAll replays every handler the host still has registered through
// a fresh PrepareSubscribe after a reconnect. If the broker reports
// session_present, the server-side subscription state already survived and
// this would be redundant, but re-sending is harmless and keeps the code
// path the same either way; the engine itself tracks session_present for its
// own publish-resend decisions.
func (c *Client) resubscribeAll() {
	c.subsLock.RLock()
	entries := make([]struct {
		topic string
		entry subscriptionEntry
	}, 0, len(c.subscriptions))
	for topic, entry := range c.subscriptions {
		entries = append(entries, struct {
			topic string
			entry subscriptionEntry
		}{topic, entry})
	}
	c.subsLock.RUnlock()

	if len(entries) == 0 {
		return
	}
	c.opts.Logger.Debug("resubscribing to topics", "count", len(entries))

	for _, e := range entries {
		cfg := engine.SubscribeConfig{Topics: []engine.SubscribeTopicConfig{e.entry.cfg}}

		c.mu.Lock()
		op, eerr := c.eng.PrepareSubscribe(cfg)
		if eerr != engine.ErrNone {
			c.mu.Unlock()
			c.opts.Logger.Warn("resubscribe failed to prepare", "topic", e.topic, "error", eerr)
			continue
		}
		topic := e.topic
		eerr = op.Send(c.eng, func(status engine.Status, result *engine.SubscribeResult) {
			if status != engine.StatusComplete {
				c.opts.Logger.Warn("resubscribe failed", "topic", topic, "status", status)
				return
			}
			if result != nil && len(result.ReasonCodes) > 0 && !result.ReasonCodes[0].Success() {
				c.opts.Logger.Warn("resubscribe rejected", "topic", topic, "reason", result.ReasonCodes[0].Name())
			}
		})
		c.eng.Sync()
		c.mu.Unlock()
		if eerr != engine.ErrNone {
			c.opts.Logger.Warn("resubscribe failed to send", "topic", e.topic, "error", eerr)
		}
	}
}
