package mq

import (
	"context"
	"fmt"

	"github.com/wavemq/mqtt5/engine"
)

// Reauthenticate initiates re-authentication with the server (MQTT v5.0).
//
// This sends an AUTH packet with reason code 0x19 (Re-authenticate) to start
// a new authentication exchange; the engine's reauth operation drives the
// challenge/response loop, calling back into the configured Authenticator
// for each AUTH the server sends.
//
// Re-authentication is useful for refreshing expired tokens, rotating
// credentials, or periodic security validation. The connection remains
// fully usable for PUBLISH and other traffic while it is in progress.
//
// Example:
//
//	if err := client.Reauthenticate(context.Background()); err != nil {
//	    log.Printf("re-authentication failed: %v", err)
//	}
func (c *Client) Reauthenticate(ctx context.Context) error {
	if c.opts.Authenticator == nil {
		return fmt.Errorf("no authenticator configured")
	}

	initialData, err := c.opts.Authenticator.InitialData()
	if err != nil {
		return fmt.Errorf("failed to get re-auth data: %w", err)
	}

	c.mu.Lock()
	op, eerr := c.eng.PrepareReauth(engine.ReauthConfig{
		InitialData: initialData,
		Callback:    authCallback(c.opts.Authenticator, c.opts.Logger),
	})
	if eerr != engine.ErrNone {
		c.mu.Unlock()
		return eerr
	}

	done := make(chan engine.Status, 1)
	eerr = op.Send(c.eng, func(status engine.Status) { done <- status })
	c.mu.Unlock()
	if eerr != engine.ErrNone {
		return eerr
	}

	select {
	case status := <-done:
		if status != engine.StatusComplete {
			return fmt.Errorf("re-authentication failed: %s", status)
		}
		if err := c.opts.Authenticator.Complete(); err != nil {
			c.opts.Logger.Warn("authenticator complete failed", "error", err)
		}
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		op.Cancel(c.eng)
		c.mu.Unlock()
		return ctx.Err()
	}
}
