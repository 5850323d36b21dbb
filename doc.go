// Package mq provides a lightweight, idiomatic MQTT v5.0 client library for Go.
//
// The protocol engine (package engine) is a cooperative state machine with
// no transport or timer ownership of its own; this package wraps it with a
// real socket, a real clock, and a functional-options API for connecting to
// MQTT servers, publishing messages, and subscribing to topics.
//
// # Features
//
//   - Full MQTT v5.0 support
//   - (v5.0) User Properties & Packet Properties
//   - (v5.0) Topic Aliases (inbound aliases resolved automatically)
//   - (v5.0) Request/Response pattern support
//   - (v5.0) Session & Message Expiry
//   - (v5.0) Shared Subscriptions
//   - (v5.0) Reason Codes & Enhanced Error Handling
//   - (v5.0) Enhanced authentication (AUTH / challenge-response, e.g. SCRAM)
//   - TLS/SSL and WebSocket (ws://, wss://) connections
//   - Automatic reconnection with exponential backoff and resubscription
//   - Clean, idiomatic Go API with functional options
//   - Context-based cancellation and timeouts
//   - Optional Prometheus instrumentation (see WithMetricsRegisterer)
//
// # Unified API Philosophy
//
// The library exposes a single, unified API built on MQTT v5.0 concepts
// (Properties, Reason Codes, Session Expiry). Every connection uses MQTT v5.0:
// the engine always sends protocol level 5 in CONNECT, whatever
// WithProtocolVersion records, and MQTT v3.1.1 servers are not supported.
//
// # Quick Start
//
// Connect to a server and publish a message:
//
//	client, err := mq.Dial("tcp://localhost:1883",
//	    mq.WithClientID("my-client"),
//	    mq.WithProtocolVersion(mq.ProtocolV50)) // Use MQTT v5.0
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect(context.Background())
//
//	token := client.Publish("sensors/temperature", []byte("22.5"), mq.WithQoS(1))
//	err = token.Wait(context.Background())  // 'select' also supported, see further down
//
// Subscribe to a topic:
//
//	client.Subscribe("sensors/+/temperature", mq.AtLeastOnce,
//	    func(c *mq.Client, msg mq.Message) {
//	        fmt.Printf("%s: %s\n", msg.Topic, string(msg.Payload))
//	    })
//
// # Connection Options
//
// The Dial and DialContext functions accept various options to configure the client:
//
//   - WithProtocolVersion(v) - Record a protocol version (connections always use v5.0)
//   - WithClientID(id) - Set the MQTT client identifier
//   - WithCredentials(user, pass) - Set username and password
//   - WithKeepAlive(duration) - Set keepalive interval (default: 60s)
//   - WithCleanSession(bool) - Set clean start/session flag
//   - WithSessionExpiryInterval(secs) - Set session expiry (v5.0)
//   - WithAutoReconnect(bool) - Enable auto-reconnect (default: true)
//   - WithTLS(config) - Enable TLS encryption
//   - WithWill(topic, payload, qos, retained) - Set Last Will and Testament
//
// # TLS Connections
//
// The library supports TLS/SSL encrypted connections:
//
//	client, err := mq.Dial("tls://server:8883",
//	    mq.WithClientID("secure-client"),
//	    mq.WithTLS(&tls.Config{
//	        InsecureSkipVerify: false,
//	    }))
//
// Supported URL schemes: tcp://, mqtt://, tls://, ssl://, mqtts://, ws://, wss://
//
// # Quality of Service
//
// The library supports all three MQTT QoS levels:
//
//   - QoS 0 (mq.AtMostOnce): At most once delivery (fire and forget)
//   - QoS 1 (mq.AtLeastOnce): At least once delivery (acknowledged)
//   - QoS 2 (mq.ExactlyOnce): Exactly once delivery (assured)
//
// Example:
//
//	// Using named constants (recommended)
//	client.Publish("topic", []byte("data"), mq.WithQoS(mq.AtLeastOnce))
//
//	// Using numeric values
//	client.Publish("topic", []byte("data"), mq.WithQoS(1))
//
// # Wildcard Subscriptions
//
// MQTT supports two wildcard characters in topic filters:
//
//   - '+' matches a single level (e.g., "sensors/+/temperature")
//   - '#' matches multiple levels (e.g., "sensors/#")
//
// Example:
//
//	// Subscribe to all temperature sensors
//	client.Subscribe("sensors/+/temperature", mq.AtLeastOnce, handler)
//
//	// Subscribe to all sensor data
//	client.Subscribe("sensors/#", mq.AtMostOnce, handler)
//
// # MQTT v5.0 Properties
//
// MQTT v5.0 introduces "Properties" that can be attached to packets. This
// library provides a clean API for using common properties:
//
//	client.Publish("sensors/temp", payload,
//	    mq.WithContentType("application/json"),
//	    mq.WithUserProperty("sensor-id", "temp-01"),
//	    mq.WithMessageExpiry(3600)) // Expire in 1 hour
//
// Supported properties include:
//   - ContentType: Specifies the MIME type of the payload
//   - MessageExpiry: How long the message should be kept by the server
//   - UserProperties: Custom key-value pairs (metadata)
//   - ResponseTopic & CorrelationData: For request/response patterns
//
// # Topic Aliases
//
// Topic Aliases (v5.0) allow reducing bandwidth by using a short numeric ID
// instead of the full topic string for repeated publications.
//
//	// Use a topic alias for this publication if one is registered
//	client.Publish("very/long/topic/name/for/bandwidth/saving", data,
//	    mq.WithAlias())
//
// Inbound aliases are resolved to topics automatically. Outbound, the
// library assigns no aliases, so WithAlias only takes effect for a topic
// that already has an entry in the engine's send-side alias table.
//
// # Subscription Options (v5.0)
//
// MQTT v5.0 adds options to control subscription behavior:
//
//   - WithNoLocal: Don't receive messages you published yourself
//   - WithRetainAsPublished: Keep the original retain flag from the publisher
//   - WithRetainHandling: Control when the server sends retained messages
//   - WithSubscriptionIdentifier: Set a numeric identifier for the subscription
//   - WithSubscribeUserProperty: Add custom metadata to the subscription
//
// Example:
//
//	client.Subscribe("chat/room", mq.AtLeastOnce, handler,
//	    mq.WithNoLocal(true))
//
// # Initial Subscriptions
//
// Subscriptions that should be registered and resubscribed on every
// reconnect can be declared at Dial time instead of calling Subscribe
// afterward:
//
//	client, _ := mq.Dial(server,
//	    mq.WithClientID("client-id"),
//	    mq.WithCleanSession(false),
//	    mq.WithSubscription("topic", handler),
//	)
//
// The client keeps no on-disk session store; client-persistent state
// (subscriptions, in-flight QoS 1/2 messages, topic aliases) lives in the
// engine for the lifetime of the process and survives reconnects but not
// restarts.
//
// # Error Handling
//
// Operations return a Token that can be used for both blocking and non-blocking
// error handling. In MQTT v5.0, errors often include Reason Codes.
//
//	// Blocking with timeout
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	if err := token.Wait(ctx); err != nil {
//	    // Check for specific reason codes (v5.0)
//	    var perr *mq.ProtocolError
//	    if errors.As(err, &perr) && perr.Reason == mq.ReasonCodeUnspecifiedError {
//	        log.Printf("Server rejected operation: %v", err)
//	    }
//	}
//
//	// Non-blocking with select
//	select {
//	case <-token.Done():
//	    if err := token.Error(); err != nil {
//	        log.Printf("Failed: %v", err)
//	    }
//	case <-time.After(5 * time.Second):
//	    log.Println("Timeout")
//	}
//
//	// Connection can be closed with a specific reason code and properties (MQTT v5.0):
//
//	expiry := uint32(3600)
//	client.Disconnect(ctx,
//	    mq.WithReason(mq.ReasonCodeNormalDisconnect),
//	    mq.WithDisconnectProperties(&mq.Properties{
//	        SessionExpiryInterval: &expiry,
//	        ReasonString:          "Shutting down",
//	    }),
//	)
//
// The client handles reconnection automatically unless configured otherwise.
package mq
