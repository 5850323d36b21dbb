package engine

import "github.com/wavemq/mqtt5/internal/wire"

// WillConfig configures the CONNECT Will message (§4.3.1).
type WillConfig struct {
	Topic                 string
	Payload               []byte
	QoS                   uint8
	Retain                bool
	DelayIntervalMs       uint32
	PayloadFormatUTF8     bool
	MessageExpiryMs       uint32
	ContentType           string
	ResponseTopic         string
	CorrelationData       []byte
	UserProperties        map[string]string
}

// ConnectConfig holds everything configurable before a Connect op is sent.
type ConnectConfig struct {
	ClientID               string
	CleanStart             bool
	Will                   *WillConfig
	Username               string
	Password               string
	HasPassword            bool
	AuthMethod             string
	AuthData               []byte
	AuthCallback           func(data []byte) (continueAuth bool, reply []byte)
	ReceiveMaximum         uint16
	MaxPacketSize          uint32
	TopicAliasMaximum      uint16
	RequestResponseInfo    bool
	RequestProblemInfo     bool
	SessionExpiryIntervalMs uint32
	KeepAliveSec           uint16
	UserProperties         map[string]string
	ResponseTimeoutMs      int64
}

// ConnectResult is delivered to a Connect completion callback on success.
type ConnectResult struct {
	SessionPresent   bool
	ReasonCode       ReasonCode
	AssignedClientID string
	ReasonString     string
}

type ConnectCallback func(status Status, result *ConnectResult)

// PublishConfig holds everything configurable before a Publish op is sent.
type PublishConfig struct {
	Topic           string
	Payload         []byte
	QoS             uint8
	Retain          bool
	AliasPreference AliasPreference
	ContentType     string
	ResponseTopic   string
	CorrelationData []byte
	MessageExpiryMs uint32
	PayloadFormatUTF8 bool
	UserProperties  map[string]string
}

// AliasPreference controls how a Publish op uses the send-side topic-alias
// table (§4.3.3).
type AliasPreference uint8

const (
	UseAliasIfAvailable AliasPreference = iota
	ForceAliasOnly
	ForceTopicOnly
	ForceTopicWithAlias
)

// PublishResult is delivered to a Publish completion callback.
type PublishResult struct {
	ReasonCode ReasonCode
}

type PublishCallback func(status Status, result *PublishResult)

// SubscribeTopicConfig is one entry of a SUBSCRIBE operation.
type SubscribeTopicConfig struct {
	Filter            string
	MaxQoS            uint8
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    uint8
}

// SubscribeConfig holds everything configurable before a Subscribe op is sent.
type SubscribeConfig struct {
	Topics             []SubscribeTopicConfig
	SubscriptionID     uint32
	HasSubscriptionID  bool
	UserProperties     map[string]string
}

type SubscribeResult struct {
	ReasonCodes    []ReasonCode
	ReasonString   string
	UserProperties map[string]string
}

type SubscribeCallback func(status Status, result *SubscribeResult)

// UnsubscribeConfig holds everything configurable before an Unsubscribe op is sent.
type UnsubscribeConfig struct {
	Filters        []string
	UserProperties map[string]string
}

type UnsubscribeResult struct {
	ReasonCodes []ReasonCode
}

type UnsubscribeCallback func(status Status, result *UnsubscribeResult)

// DisconnectConfig holds everything configurable before a Disconnect op is sent.
type DisconnectConfig struct {
	ReasonCode              ReasonCode
	ReasonString            string
	SessionExpiryIntervalMs uint32
	HasSessionExpiryOverride bool
}

func toWireUserProperties(m map[string]string) []wire.UserProperty {
	if len(m) == 0 {
		return nil
	}
	out := make([]wire.UserProperty, 0, len(m))
	for k, v := range m {
		out = append(out, wire.UserProperty{Key: k, Value: v})
	}
	return out
}

func fromWireUserProperties(props []wire.UserProperty) map[string]string {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]string, len(props))
	for _, up := range props {
		out[up.Key] = up.Value
	}
	return out
}
