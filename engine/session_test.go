package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCapabilityStateIsPermissive(t *testing.T) {
	caps := defaultCapabilityState()
	require.Equal(t, uint8(2), caps.maxQoS)
	require.Equal(t, uint16(65535), caps.sendHighQoSWindow)
	require.Equal(t, uint16(65535), caps.recvHighQoSWindow)
	require.True(t, caps.problemInfoAllowed)
}

func TestClientPersistentStateResetClearsAliasesAndWindow(t *testing.T) {
	cps := newClientPersistentState()
	require.True(t, cps.firstConnect)

	cps.sendAliases.setMax(4)
	_, eerr := cps.sendAliases.allocate("a/b", 0)
	require.Equal(t, ErrNone, eerr)
	cps.inFlightSends = 3
	id, ok := cps.packetIDs.alloc()
	require.True(t, ok)
	require.NotZero(t, id)

	cps.reset()

	require.Equal(t, 0, cps.inFlightSends)
	_, found := cps.sendAliases.lookup("a/b")
	require.False(t, found, "reset must clear the send alias table")
}

func TestSessionEphemeralStateSubscriptionTracking(t *testing.T) {
	ses := newSessionEphemeralState()
	require.False(t, ses.hasSubscription("a/b"))

	ses.addSubscription("a/b")
	ses.addSubscription("a/b")
	require.True(t, ses.hasSubscription("a/b"))
	require.Len(t, ses.subscriptions, 1, "adding the same filter twice must not duplicate it")

	ses.addSubscription("c/d")
	ses.removeSubscription("a/b")
	require.False(t, ses.hasSubscription("a/b"))
	require.True(t, ses.hasSubscription("c/d"))
}

func TestSessionEphemeralStateResetClearsSubscriptionsAndAliases(t *testing.T) {
	ses := newSessionEphemeralState()
	ses.addSubscription("a/b")
	ses.recvAliases.setMax(4)

	ses.reset()

	require.Empty(t, ses.subscriptions)
	require.False(t, ses.hasSubscription("a/b"))
}

func TestDefaultConfigurationValues(t *testing.T) {
	cfg := defaultConfiguration()
	require.Equal(t, int64(10_000), cfg.DefaultResponseTimeoutMs)
	require.Equal(t, OrderSameQoS, cfg.Ordering)
	require.Equal(t, 2, cfg.PublishResendLimit)
	require.True(t, cfg.VerifyOutgoingTopic)
	require.NotNil(t, cfg.Logger)
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	var l Logger = nopLogger{}
	l.Debug("x")
	l.Warn("x", "k", "v")
	l.Error("x")
}
