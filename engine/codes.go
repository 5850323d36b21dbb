package engine

// ReasonCode is an MQTT v5.0 reason code, carried in CONNACK, PUBACK, PUBREC,
// PUBREL, PUBCOMP, SUBACK, UNSUBACK, DISCONNECT and AUTH packets. Values below
// 0x80 indicate success; 0x80 and above indicate failure.
type ReasonCode uint8

// Reason codes used across the protocol. This list supersets the
// DISCONNECT-only subset the host layer used to carry, since the engine now
// needs CONNACK/SUBACK/AUTH codes too.
const (
	ReasonCodeSuccess                            ReasonCode = 0x00
	ReasonCodeGrantedQoS1                        ReasonCode = 0x01
	ReasonCodeGrantedQoS2                        ReasonCode = 0x02
	ReasonCodeDisconnectWithWill                 ReasonCode = 0x04
	ReasonCodeNoMatchingSubscribers               ReasonCode = 0x10
	ReasonCodeNoSubscriptionExisted              ReasonCode = 0x11
	ReasonCodeContinueAuthentication             ReasonCode = 0x18
	ReasonCodeReAuthenticate                     ReasonCode = 0x19
	ReasonCodeUnspecifiedError                   ReasonCode = 0x80
	ReasonCodeMalformedPacket                    ReasonCode = 0x81
	ReasonCodeProtocolError                      ReasonCode = 0x82
	ReasonCodeImplementationError                ReasonCode = 0x83
	ReasonCodeUnsupportedProtocolVersion         ReasonCode = 0x84
	ReasonCodeClientIdentifierNotValid           ReasonCode = 0x85
	ReasonCodeBadUserNameOrPassword              ReasonCode = 0x86
	ReasonCodeNotAuthorized                      ReasonCode = 0x87
	ReasonCodeServerUnavailable                  ReasonCode = 0x88
	ReasonCodeServerBusy                         ReasonCode = 0x89
	ReasonCodeBanned                             ReasonCode = 0x8A
	ReasonCodeServerShuttingDown                 ReasonCode = 0x8B
	ReasonCodeBadAuthenticationMethod            ReasonCode = 0x8C
	ReasonCodeKeepAliveTimeout                   ReasonCode = 0x8D
	ReasonCodeSessionTakenOver                   ReasonCode = 0x8E
	ReasonCodeTopicFilterInvalid                 ReasonCode = 0x8F
	ReasonCodeTopicNameInvalid                   ReasonCode = 0x90
	ReasonCodePacketIdentifierInUse              ReasonCode = 0x91
	ReasonCodePacketIdentifierNotFound           ReasonCode = 0x92
	ReasonCodeReceiveMaximumExceed               ReasonCode = 0x93
	ReasonCodeTopicAliasInvalid                  ReasonCode = 0x94
	ReasonCodePacketTooLarge                     ReasonCode = 0x95
	ReasonCodeMessageRateTooHigh                 ReasonCode = 0x96
	ReasonCodeQuotaExceeded                      ReasonCode = 0x97
	ReasonCodeAdministrativeAction                ReasonCode = 0x98
	ReasonCodePayloadFormatInvalid                ReasonCode = 0x99
	ReasonCodeRetainNotSupported                  ReasonCode = 0x9A
	ReasonCodeQoSNotSupported                     ReasonCode = 0x9B
	ReasonCodeUseAnotherServer                    ReasonCode = 0x9C
	ReasonCodeServerMoved                         ReasonCode = 0x9D
	ReasonCodeSharedSubNotSupported                ReasonCode = 0x9E
	ReasonCodeConnectionRateExceed                ReasonCode = 0x9F
	ReasonCodeMaximumConnectTime                  ReasonCode = 0xA0
	ReasonCodeSubscriptionIDNotSupp               ReasonCode = 0xA1
	ReasonCodeWildcardSubNotSupp                  ReasonCode = 0xA2
)

// Success reports whether the code is in the 0x00-0x7F success family.
func (r ReasonCode) Success() bool { return r < 0x80 }

var reasonCodeNames = map[ReasonCode]string{
	ReasonCodeSuccess:                      "Success",
	ReasonCodeGrantedQoS1:                  "Granted QoS 1",
	ReasonCodeGrantedQoS2:                  "Granted QoS 2",
	ReasonCodeDisconnectWithWill:           "Disconnect with Will Message",
	ReasonCodeNoMatchingSubscribers:        "No matching subscribers",
	ReasonCodeNoSubscriptionExisted:        "No subscription existed",
	ReasonCodeContinueAuthentication:       "Continue authentication",
	ReasonCodeReAuthenticate:               "Re-authenticate",
	ReasonCodeUnspecifiedError:             "Unspecified error",
	ReasonCodeMalformedPacket:              "Malformed Packet",
	ReasonCodeProtocolError:                "Protocol Error",
	ReasonCodeImplementationError:          "Implementation specific error",
	ReasonCodeUnsupportedProtocolVersion:   "Unsupported Protocol Version",
	ReasonCodeClientIdentifierNotValid:     "Client Identifier not valid",
	ReasonCodeBadUserNameOrPassword:        "Bad User Name or Password",
	ReasonCodeNotAuthorized:                "Not authorized",
	ReasonCodeServerUnavailable:            "Server unavailable",
	ReasonCodeServerBusy:                   "Server busy",
	ReasonCodeBanned:                       "Banned",
	ReasonCodeServerShuttingDown:           "Server shutting down",
	ReasonCodeBadAuthenticationMethod:      "Bad authentication method",
	ReasonCodeKeepAliveTimeout:             "Keep Alive timeout",
	ReasonCodeSessionTakenOver:             "Session taken over",
	ReasonCodeTopicFilterInvalid:           "Topic Filter invalid",
	ReasonCodeTopicNameInvalid:             "Topic Name invalid",
	ReasonCodePacketIdentifierInUse:        "Packet Identifier in use",
	ReasonCodePacketIdentifierNotFound:     "Packet Identifier not found",
	ReasonCodeReceiveMaximumExceed:         "Receive Maximum exceeded",
	ReasonCodeTopicAliasInvalid:            "Topic Alias invalid",
	ReasonCodePacketTooLarge:               "Packet too large",
	ReasonCodeMessageRateTooHigh:           "Message rate too high",
	ReasonCodeQuotaExceeded:                "Quota exceeded",
	ReasonCodeAdministrativeAction:         "Administrative action",
	ReasonCodePayloadFormatInvalid:         "Payload format invalid",
	ReasonCodeRetainNotSupported:           "Retain not supported",
	ReasonCodeQoSNotSupported:              "QoS not supported",
	ReasonCodeUseAnotherServer:             "Use another server",
	ReasonCodeServerMoved:                  "Server moved",
	ReasonCodeSharedSubNotSupported:        "Shared Subscriptions not supported",
	ReasonCodeConnectionRateExceed:         "Connection rate exceeded",
	ReasonCodeMaximumConnectTime:           "Maximum connect time",
	ReasonCodeSubscriptionIDNotSupp:        "Subscription Identifiers not supported",
	ReasonCodeWildcardSubNotSupp:           "Wildcard Subscriptions not supported",
}

// Name returns a human-readable name for diagnostic logging, falling back to
// "Unknown" for reserved/unrecognised values.
func (r ReasonCode) Name() string {
	if name, ok := reasonCodeNames[r]; ok {
		return name
	}
	return "Unknown"
}
