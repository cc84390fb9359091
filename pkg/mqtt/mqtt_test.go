package mqtt

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func TestTopicMatch(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"zenox/events/#", "zenox/events/codes.published", true},
		{"zenox/events/#", "zenox/events", true},
		{"zenox/request/+", "zenox/request/pipeline.status", true},
		{"zenox/request/+", "zenox/request/a/b", false},
		{"zenox/request/pipeline.status", "zenox/request/pipeline.resume", false},
		{"zenox/+/stats", "zenox/events/stats", true},
		{"zenox/events/stats", "zenox/events", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.topic, func(t *testing.T) {
			if got := topicMatch(tt.pattern, tt.topic); got != tt.want {
				t.Errorf("topicMatch(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
			}
		})
	}
}

func TestRespond(t *testing.T) {
	raw, _ := json.Marshal(MqttRequest{CorrelationID: "abc", Payload: map[string]interface{}{"game": "ZZZ"}})

	topic, resp, err := respond("pipeline.status", raw, func(p map[string]interface{}) (interface{}, error) {
		if p["_topic"] != "pipeline.status" || p["game"] != "ZZZ" {
			t.Errorf("payload = %v", p)
		}
		return "running", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if topic != "zenox/response/pipeline.status/abc" || resp.CorrelationID != "abc" || resp.Data != "running" {
		t.Errorf("respond() = %s, %+v", topic, resp)
	}

	_, resp, _ = respond("pipeline.resume", raw, func(map[string]interface{}) (interface{}, error) {
		return nil, errors.New("not halted")
	})
	if resp.Error != "not halted" || resp.Data != nil {
		t.Errorf("error response = %+v", resp)
	}

	if _, _, err := respond("x", []byte("{"), nil); err == nil {
		t.Error("respond() accepted invalid JSON")
	}
}

func TestDispatch(t *testing.T) {
	mc := &MqttCommunicator{}
	var got []string
	mc.routes = []route{
		{"zenox/events/#", func(topic string, _ []byte) { got = append(got, "all:"+topic) }},
		{"zenox/events/stats", func(topic string, _ []byte) { got = append(got, "stats:"+topic) }},
	}

	mc.dispatch("zenox/events/#", "zenox/events/stats", nil)
	if len(got) != 1 || got[0] != "all:zenox/events/stats" {
		t.Errorf("dispatch = %v", got)
	}
}

func TestPublishWithoutConnection(t *testing.T) {
	var mc *MqttCommunicator
	if err := mc.PublishEvent("stats", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishEvent() = %v", err)
	}
	if e := NewEvent("zenox", "stats", 1); e.ID == "" || e.Event != "stats" || EventTopic("stats") != "zenox/events/stats" {
		t.Errorf("NewEvent() = %+v", e)
	}
}
