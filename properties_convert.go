package mq

import "github.com/wavemq/mqtt5/internal/wire"

// toPublicProperties converts the engine's wire-level PUBLISH properties
// into the public Properties type delivered to a MessageHandler. Returns nil
// if internal is nil or carries nothing worth surfacing.
func toPublicProperties(internal *wire.Properties) *Properties {
	if internal == nil || isEmpty(internal) {
		return nil
	}

	props := &Properties{UserProperties: make(map[string]string)}

	if internal.Presence&wire.PresContentType != 0 {
		props.ContentType = internal.ContentType
	}
	if internal.Presence&wire.PresResponseTopic != 0 {
		props.ResponseTopic = internal.ResponseTopic
	}
	if len(internal.CorrelationData) > 0 {
		props.CorrelationData = internal.CorrelationData
	}
	if internal.Presence&wire.PresMessageExpiryInterval != 0 {
		val := internal.MessageExpiryInterval
		props.MessageExpiry = &val
	}
	if internal.Presence&wire.PresPayloadFormatIndicator != 0 {
		val := internal.PayloadFormatIndicator
		props.PayloadFormat = &val
	}
	if len(internal.SubscriptionIdentifier) > 0 {
		props.SubscriptionIdentifier = internal.SubscriptionIdentifier
	}
	if internal.Presence&wire.PresReasonString != 0 {
		props.ReasonString = internal.ReasonString
	}
	for _, up := range internal.UserProperties {
		props.UserProperties[up.Key] = up.Value
	}

	return props
}

// isEmpty reports whether internal carries nothing a caller would find
// useful, so toPublicProperties can collapse it to nil.
func isEmpty(p *wire.Properties) bool {
	if p == nil {
		return true
	}
	return p.Presence == 0 &&
		len(p.CorrelationData) == 0 &&
		len(p.UserProperties) == 0 &&
		len(p.SubscriptionIdentifier) == 0 &&
		len(p.AuthenticationData) == 0
}

// applyPublishProperties copies the fields of props onto an engine
// PublishConfig being assembled by Client.Publish.
func applyPublishProperties(props *Properties) (contentType, responseTopic string, correlation []byte, msgExpiryMs uint32, payloadUTF8 bool, userProps map[string]string) {
	if props == nil {
		return
	}
	contentType = props.ContentType
	responseTopic = props.ResponseTopic
	correlation = props.CorrelationData
	if props.MessageExpiry != nil {
		msgExpiryMs = *props.MessageExpiry * 1000
	}
	if props.PayloadFormat != nil && *props.PayloadFormat == PayloadFormatUTF8 {
		payloadUTF8 = true
	}
	userProps = props.UserProperties
	return
}
