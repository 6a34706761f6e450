package ingest

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/floorwatch/floorwatch/internal/monitoring"
	"github.com/floorwatch/floorwatch/internal/timeutil"
)

// Handler receives the moving tracks parsed from one fusion message.
type Handler func(cameraSerial string, tracks []Track)

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	BrokerURL string // e.g. tcp://localhost:1883
	ClientID  string
	Username  string
	Password  string
}

// Subscriber connects to the broker, subscribes to the fusion topic tree and
// feeds normalized, motion-filtered tracks to a handler.
type Subscriber struct {
	client  mqtt.Client
	filter  *MotionFilter
	clock   timeutil.Clock
	handler Handler
}

// NewSubscriber prepares a subscriber. Connect must be called before any
// messages arrive. A nil clock uses the real clock.
func NewSubscriber(cfg MQTTConfig, filter *MotionFilter, clock timeutil.Clock, handler Handler) *Subscriber {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if filter == nil {
		filter = NewMotionFilter(FilterConfig{})
	}
	s := &Subscriber{
		filter:  filter,
		clock:   clock,
		handler: handler,
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.BrokerURL)
	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		monitoring.Logf("mqtt: connected to %s", cfg.BrokerURL)
		if token := c.Subscribe(FusionSubscription, 0, s.onMessage); token.Wait() && token.Error() != nil {
			monitoring.Logf("mqtt: subscribe %s failed: %v", FusionSubscription, token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		monitoring.Logf("mqtt: connection lost: %v", err)
	})

	s.client = mqtt.NewClient(opts)
	return s
}

// Connect dials the broker. Subscription happens in the connect handler so
// it is re-established after a reconnect.
func (s *Subscriber) Connect() error {
	token := s.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to broker: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight work to finish.
func (s *Subscriber) Close() {
	s.client.Disconnect(250)
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	s.HandleMessage(msg.Topic(), msg.Payload())
}

// HandleMessage processes one raw broker message. Split out from the paho
// callback so ingestion is testable without a broker.
func (s *Subscriber) HandleMessage(topic string, payload []byte) {
	serial, ok := CameraSerial(topic)
	if !ok {
		return
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		monitoring.Logf("mqtt: undecodable payload on %s: %v", topic, err)
		return
	}

	tracks := ParsePayload(serial, decoded, s.clock.Now().UTC())
	if len(tracks) == 0 {
		monitoring.Logf("mqtt: no tracks in payload on %s", topic)
		return
	}

	moving := tracks[:0:0]
	for _, t := range tracks {
		if s.filter.Stationary(t) {
			continue
		}
		moving = append(moving, t)
	}
	if len(moving) == 0 {
		return
	}
	if s.handler != nil {
		s.handler(serial, moving)
	}
}
