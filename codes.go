package mq

import "github.com/wavemq/mqtt5/engine"

// ReasonCode re-exports the engine's MQTT v5.0 reason code type so host
// callers can compare against it (e.g. via errors.Is on a *ProtocolError)
// without importing the engine package directly.
//
// Example (checking for a specific disconnect reason):
//
//	token := client.Publish("topic", data, mq.WithQoS(1))
//	if err := token.Wait(ctx); err != nil {
//	    if errors.Is(err, mq.ReasonCodeQuotaExceeded) {
//	        log.Println("server quota exceeded, backing off...")
//	    }
//	}
type ReasonCode = engine.ReasonCode

const (
	ReasonCodeSuccess                    = engine.ReasonCodeSuccess
	ReasonCodeGrantedQoS1                = engine.ReasonCodeGrantedQoS1
	ReasonCodeGrantedQoS2                = engine.ReasonCodeGrantedQoS2
	ReasonCodeDisconnectWithWill         = engine.ReasonCodeDisconnectWithWill
	ReasonCodeNoMatchingSubscribers      = engine.ReasonCodeNoMatchingSubscribers
	ReasonCodeNoSubscriptionExisted      = engine.ReasonCodeNoSubscriptionExisted
	ReasonCodeContinueAuthentication     = engine.ReasonCodeContinueAuthentication
	ReasonCodeReAuthenticate             = engine.ReasonCodeReAuthenticate
	ReasonCodeUnspecifiedError           = engine.ReasonCodeUnspecifiedError
	ReasonCodeMalformedPacket            = engine.ReasonCodeMalformedPacket
	ReasonCodeProtocolError              = engine.ReasonCodeProtocolError
	ReasonCodeImplementationError        = engine.ReasonCodeImplementationError
	ReasonCodeUnsupportedProtocolVersion = engine.ReasonCodeUnsupportedProtocolVersion
	ReasonCodeClientIdentifierNotValid   = engine.ReasonCodeClientIdentifierNotValid
	ReasonCodeBadUserNameOrPassword      = engine.ReasonCodeBadUserNameOrPassword
	ReasonCodeNotAuthorized              = engine.ReasonCodeNotAuthorized
	ReasonCodeServerUnavailable          = engine.ReasonCodeServerUnavailable
	ReasonCodeServerBusy                 = engine.ReasonCodeServerBusy
	ReasonCodeBanned                     = engine.ReasonCodeBanned
	ReasonCodeServerShuttingDown         = engine.ReasonCodeServerShuttingDown
	ReasonCodeBadAuthenticationMethod    = engine.ReasonCodeBadAuthenticationMethod
	ReasonCodeKeepAliveTimeout           = engine.ReasonCodeKeepAliveTimeout
	ReasonCodeSessionTakenOver           = engine.ReasonCodeSessionTakenOver
	ReasonCodeTopicFilterInvalid         = engine.ReasonCodeTopicFilterInvalid
	ReasonCodeTopicNameInvalid           = engine.ReasonCodeTopicNameInvalid
	ReasonCodePacketIdentifierInUse      = engine.ReasonCodePacketIdentifierInUse
	ReasonCodePacketIdentifierNotFound   = engine.ReasonCodePacketIdentifierNotFound
	ReasonCodeReceiveMaximumExceed       = engine.ReasonCodeReceiveMaximumExceed
	ReasonCodeTopicAliasInvalid          = engine.ReasonCodeTopicAliasInvalid
	ReasonCodePacketTooLarge             = engine.ReasonCodePacketTooLarge
	ReasonCodeMessageRateTooHigh         = engine.ReasonCodeMessageRateTooHigh
	ReasonCodeQuotaExceeded              = engine.ReasonCodeQuotaExceeded
	ReasonCodeAdministrativeAction       = engine.ReasonCodeAdministrativeAction
	ReasonCodePayloadFormatInvalid       = engine.ReasonCodePayloadFormatInvalid
	ReasonCodeRetainNotSupported         = engine.ReasonCodeRetainNotSupported
	ReasonCodeQoSNotSupported            = engine.ReasonCodeQoSNotSupported
	ReasonCodeUseAnotherServer           = engine.ReasonCodeUseAnotherServer
	ReasonCodeServerMoved                = engine.ReasonCodeServerMoved
	ReasonCodeSharedSubNotSupported      = engine.ReasonCodeSharedSubNotSupported
	ReasonCodeConnectionRateExceed       = engine.ReasonCodeConnectionRateExceed
	ReasonCodeMaximumConnectTime         = engine.ReasonCodeMaximumConnectTime
	ReasonCodeSubscriptionIDNotSupp      = engine.ReasonCodeSubscriptionIDNotSupp
	ReasonCodeWildcardSubNotSupp         = engine.ReasonCodeWildcardSubNotSupp
)
