package mq

// authCallback bridges an Authenticator into the engine's AUTH continuation
// closure shape. The engine owns the AUTH packet exchange itself (both
// during CONNECT's enhanced-auth branch and during Reauthenticate); the host
// layer only supplies the application-level challenge/response logic.
func authCallback(a Authenticator, logger interface {
	Error(msg string, args ...any)
}) func([]byte) (bool, []byte) {
	return func(challenge []byte) (bool, []byte) {
		reply, err := a.HandleChallenge(challenge, 0x18)
		if err != nil {
			logger.Error("authentication challenge failed", "error", err)
			return false, nil
		}
		return true, reply
	}
}
