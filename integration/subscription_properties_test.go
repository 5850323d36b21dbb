package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/wavemq/mqtt5"
)

func TestSubscriptionProperties_Integration(t *testing.T) {
	t.Parallel()
	server, cleanup := startMosquitto(t, "")
	defer cleanup()

	// Connect with MQTT v5.0
	client, err := mq.Dial(server,
		mq.WithClientID("test-sub-properties"),
		mq.WithProtocolVersion(mq.ProtocolV50),
	)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Disconnect(context.Background())

	topic := "test/sub/properties"
	received := make(chan mq.Message, 1)

	// Subscribe with Subscription Identifier and User Properties
	subID := 42

token := client.Subscribe(topic, mq.AtLeastOnce, func(c *mq.Client, msg mq.Message) {
		received <- msg
	}, 
		mq.WithSubscriptionIdentifier(subID),
		mq.WithSubscribeUserProperty("test-key", "test-value"),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := token.Wait(ctx); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	// Publish a message to the topic
	pubToken := client.Publish(topic, []byte("hello"), mq.WithQoS(1))
	if err := pubToken.Wait(ctx); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Verify that we received the message with the Subscription Identifier
	select {
	case msg := <-received:
		if msg.Properties == nil {
			t.Fatal("Properties in received message is nil")
		}
		
		foundID := false
		for _, id := range msg.Properties.SubscriptionIdentifier {
			if id == subID {
				foundID = true
				break
			}
		}
		
		if !foundID {
			t.Errorf("Subscription Identifier %d not found in received message, got %v", subID, msg.Properties.SubscriptionIdentifier)
		}
		
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

// Session resumption across a reconnect (session_present=true) is covered by
// session_expiry_test.go. Persisting subscription state to disk across a
// full client restart is out of scope: this module keeps no on-disk session
// store (see SPEC_FULL.md Non-goals).