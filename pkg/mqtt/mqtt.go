// Package mqtt publishes bot events to the broker and answers request/response
// calls from other services.
//
// Topics:
//
//	zenox/events/<event>                       events, e.g. codes.published
//	zenox/request/<name>                       incoming requests
//	zenox/response/<name>/<correlation id>     responses
package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/PancyStudios/ZenoxGo/pkg/logger"
)

const (
	topicRoot     = "zenox"
	eventPrefix   = topicRoot + "/events/"
	requestPrefix = topicRoot + "/request/"
	responseRoot  = topicRoot + "/response/"
)

// ErrNotConnected is returned when publishing without a broker connection
var ErrNotConnected = errors.New("mqtt client not connected")

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string      `json:"correlationId"`
	Data          interface{} `json:"data"`
	Error         string      `json:"error,omitempty"`
}

// Event is the envelope of everything published under zenox/events
type Event struct {
	ID      string      `json:"id"`
	Event   string      `json:"event"`
	Source  string      `json:"source"`
	Time    time.Time   `json:"time"`
	Payload interface{} `json:"payload,omitempty"`
}

type route struct {
	pattern string
	handler func(topic string, payload []byte)
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	client   mqtt.Client
	routes   []route
	mu       sync.RWMutex
	clientID string
}

var (
	communicator *MqttCommunicator
	once         sync.Once
)

// Init initializes the global MQTT communicator
func Init(host, port, username, password, clientID string) *MqttCommunicator {
	once.Do(func() {
		communicator = NewMqttCommunicator(host, port, username, password, clientID)
	})
	return communicator
}

// Get returns the global MQTT communicator
func Get() *MqttCommunicator {
	return communicator
}

// NewMqttCommunicator connects to the broker. A broker that is down is retried
// in the background; publishing fails with ErrNotConnected until then.
func NewMqttCommunicator(host, port, username, password, clientID string) *MqttCommunicator {
	mc := &MqttCommunicator{clientID: clientID}

	uniqueID := fmt.Sprintf("%s_%s", clientID, uuid.New().String())

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID(uniqueID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Connected to MQTT broker as %s", clientID), "MQTT")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("MQTT connection lost: %v", err), "MQTT")
		})

	mc.client = mqtt.NewClient(opts)

	token := mc.client.Connect()
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		logger.Error(fmt.Sprintf("MQTT connection error: %v", token.Error()), "MQTT")
	}

	return mc
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.client != nil && mc.client.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("MQTT connection closed", "MQTT")
	} else {
		logger.Warn("MQTT client was not connected, nothing to close", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc != nil && mc.client != nil && mc.client.IsConnected()
}

// Publish sends a message to a topic
func (mc *MqttCommunicator) Publish(topic string, payload interface{}) error {
	if !mc.IsConnected() {
		return ErrNotConnected
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := mc.client.Publish(topic, 0, false, jsonData)
	token.Wait()
	return token.Error()
}

// NewEvent wraps a payload in the event envelope
func NewEvent(source, event string, payload interface{}) Event {
	return Event{
		ID:      uuid.NewString(),
		Event:   event,
		Source:  source,
		Time:    time.Now().UTC(),
		Payload: payload,
	}
}

// EventTopic is the topic an event is published on
func EventTopic(event string) string {
	return eventPrefix + event
}

// PublishEvent publishes payload as zenox/events/<event>
func (mc *MqttCommunicator) PublishEvent(event string, payload interface{}) error {
	source := ""
	if mc != nil {
		source = mc.clientID
	}
	return mc.Publish(EventTopic(event), NewEvent(source, event, payload))
}

// RequestHandler is a function type for handling MQTT requests
type RequestHandler func(payload map[string]interface{}) (interface{}, error)

// respond runs a handler on a raw request and builds the response
func respond(name string, raw []byte, callback RequestHandler) (string, MqttResponse, error) {
	var request MqttRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		return "", MqttResponse{}, err
	}

	payloadMap := make(map[string]interface{})
	if pm, ok := request.Payload.(map[string]interface{}); ok {
		payloadMap = pm
	}
	payloadMap["_topic"] = name

	response := MqttResponse{CorrelationID: request.CorrelationID}
	data, err := callback(payloadMap)
	if err != nil {
		response.Error = err.Error()
	} else {
		response.Data = data
	}
	return fmt.Sprintf("%s%s/%s", responseRoot, name, request.CorrelationID), response, nil
}

// On registers a handler for zenox/request/<requestTopic>
func (mc *MqttCommunicator) On(requestTopic string, callback RequestHandler) {
	topic := requestPrefix + requestTopic

	err := mc.Subscribe(topic, func(received string, payload []byte) {
		name := strings.TrimPrefix(received, requestPrefix)
		responseTopic, response, err := respond(name, payload, callback)
		if err != nil {
			logger.Error(fmt.Sprintf("Error parsing MQTT request: %v", err), "MQTT")
			return
		}
		if err := mc.Publish(responseTopic, response); err != nil {
			logger.Warn(fmt.Sprintf("Failed to answer %s: %v", name, err), "MQTT")
		}
	})
	if err != nil {
		logger.Error(fmt.Sprintf("Error subscribing to topic %s: %v", topic, err), "MQTT")
	}
}

// Subscribe routes messages matching topic (wildcards allowed) to handler
func (mc *MqttCommunicator) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	mc.mu.Lock()
	mc.routes = append(mc.routes, route{pattern: topic, handler: handler})
	mc.mu.Unlock()

	token := mc.client.Subscribe(topic, 0, func(c mqtt.Client, msg mqtt.Message) {
		mc.dispatch(topic, msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

// dispatch hands a message received on subscription pattern to its routes
func (mc *MqttCommunicator) dispatch(pattern, topic string, payload []byte) {
	mc.mu.RLock()
	var handlers []func(string, []byte)
	for _, r := range mc.routes {
		if r.pattern == pattern && topicMatch(r.pattern, topic) {
			handlers = append(handlers, r.handler)
		}
	}
	mc.mu.RUnlock()

	for _, h := range handlers {
		h(topic, payload)
	}
}

// Unsubscribe unsubscribes from a topic
func (mc *MqttCommunicator) Unsubscribe(topic string) error {
	mc.mu.Lock()
	kept := mc.routes[:0]
	for _, r := range mc.routes {
		if r.pattern != topic {
			kept = append(kept, r)
		}
	}
	mc.routes = kept
	mc.mu.Unlock()

	token := mc.client.Unsubscribe(topic)
	token.Wait()
	return token.Error()
}

// topicMatch checks if a received topic matches a pattern (with wildcards)
// '+' matches exactly one topic level
// '#' matches zero or more topic levels and must be the last character
func topicMatch(pattern, topic string) bool {
	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")

	patternLen := len(patternParts)
	topicLen := len(topicParts)

	for i := 0; i < patternLen; i++ {
		if patternParts[i] == "#" {
			return true
		}
		if i >= topicLen {
			return false
		}
		if patternParts[i] == "+" {
			continue
		}
		if patternParts[i] != topicParts[i] {
			return false
		}
	}

	return patternLen == topicLen
}
