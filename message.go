package mq

// Message represents an MQTT v5.0 message received on a subscribed topic.
//
// The message is passed to subscription handlers and contains all relevant
// information about the received message including topic, payload, QoS level,
// and flags.
type Message struct {
	// Topic the message was published to
	Topic string

	// Message payload
	Payload []byte

	// Quality of Service level
	QoS QoS

	// Retained message flag
	Retained bool

	// Duplicate delivery flag
	Duplicate bool

	// Properties carried with the PUBLISH. Nil when none were present.
	Properties *Properties
}
