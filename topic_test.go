package mq

import (
	"fmt"
	"testing"
)

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		match  bool
	}{
		// Exact matches
		{"test/topic", "test/topic", true},
		{"test/topic", "test/other", false},

		// Single-level wildcard (+)
		{"test/+", "test/topic", true},
		{"test/+", "test/other", true},
		{"test/+", "test/topic/sub", false},
		{"test/+/sub", "test/topic/sub", true},
		{"+/topic", "test/topic", true},
		{"+/+", "test/topic", true},

		// Multi-level wildcard (#)
		{"test/#", "test/topic", true},
		{"test/#", "test/topic/sub", true},
		{"test/#", "test/topic/sub/deep", true},
		{"test/#", "other/topic", false},
		{"#", "any/topic/here", true},
		{"test/topic/#", "test/topic", true},
		{"test/topic/#", "test/topic/sub", true},

		// Combined wildcards
		{"+/+/#", "test/topic/sub/deep", true},
		{"test/+/#", "test/topic/sub", true},

		// Edge cases
		{"", "", true},
		{"test", "test", true},
		{"test/", "test/", true},
	}

	for _, tt := range tests {
		t.Run(tt.filter+"_vs_"+tt.topic, func(t *testing.T) {
			result := matchTopic(tt.filter, tt.topic)
			if result != tt.match {
				t.Errorf("matchTopic(%q, %q) = %v, want %v", tt.filter, tt.topic, result, tt.match)
			}
		})
	}
}

func ExampleMatchTopic() {
	filter := "sensors/+/temperature"
	topic1 := "sensors/living-room/temperature"
	topic2 := "sensors/kitchen/humidity"

	fmt.Printf("%s matches %s: %v\n", topic1, filter, matchTopic(filter, topic1))
	fmt.Printf("%s matches %s: %v\n", topic2, filter, matchTopic(filter, topic2))

	filterHash := "sensors/#"
	topic3 := "sensors/basement/temperature/current"
	fmt.Printf("%s matches %s: %v\n", topic3, filterHash, matchTopic(filterHash, topic3))

	// Output:
	// sensors/living-room/temperature matches sensors/+/temperature: true
	// sensors/kitchen/humidity matches sensors/+/temperature: false
	// sensors/basement/temperature/current matches sensors/#: true
}

// FuzzMatchTopic fuzzes the topic matching function to find edge cases.
func FuzzMatchTopic(f *testing.F) {
	f.Add("sensors/+/temperature", "sensors/living-room/temperature")
	f.Add("sensors/#", "sensors/living-room/temperature")
	f.Add("sensors/#", "sensors/living-room/temperature/current")
	f.Add("sensors/+/+", "sensors/room1/temp")
	f.Add("+/+/+", "a/b/c")
	f.Add("#", "any/topic/here")
	f.Add("exact/match", "exact/match")
	f.Add("no/match", "different/topic")

	f.Fuzz(func(t *testing.T, filter, topic string) {
		// Should never panic, just return true or false.
		_ = matchTopic(filter, topic)
	})
}

// TestTopicMatch_WildcardStartingWithDollar_Compliance ensures local dispatch
// follows MQTT-4.7.2-1: a Topic Filter starting with a wildcard character
// (# or +) never matches a Topic Name beginning with $.
func TestTopicMatch_WildcardStartingWithDollar_Compliance(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		match  bool
	}{
		// Should NOT match (Rule MQTT-4.7.2-1)
		{"#", "$SYS/broker/version", false},
		{"+/monitor", "$SYS/monitor", false},
		{"+/+", "$SYS/broker", false},
		{"#", "$share/group/topic", false},

		// Should match (normal cases)
		{"#", "a/b/c", true},
		{"+/monitor", "a/monitor", true},

		// Filter does NOT start with a wildcard, so it can still match a $
		// topic level that isn't the first one.
		{"a/+/c", "a/$SYS/c", true},
	}

	for _, tt := range tests {
		t.Run(tt.filter+"_vs_"+tt.topic, func(t *testing.T) {
			result := matchTopic(tt.filter, tt.topic)
			if result != tt.match {
				t.Errorf("matchTopic(%q, %q) = %v, want %v", tt.filter, tt.topic, result, tt.match)
			}
		})
	}
}
