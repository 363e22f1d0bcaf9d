package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the part of mqtt.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTConfig configures an MQTTSink.
type MQTTConfig struct {
	Topic          string        // prefix; the change URI path is appended
	QoS            byte          // 0, 1 or 2
	Queue          int           // pending publishes before changes are dropped
	PublishTimeout time.Duration // per publish
}

// MQTTSink publishes every change as JSON to <topic>/<uri path>. Publishing
// happens on a background goroutine; failures are logged and dropped.
type MQTTSink struct {
	pub  Publisher
	cfg  MQTTConfig
	log  *slog.Logger
	done chan struct{}

	mu     sync.RWMutex
	queue  chan Change
	closed bool
}

// NewMQTTSink starts the publishing goroutine. Call Close to stop it.
func NewMQTTSink(pub Publisher, cfg MQTTConfig, log *slog.Logger) *MQTTSink {
	if cfg.Queue < 1 {
		cfg.Queue = 64
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	s := &MQTTSink{
		pub:   pub,
		cfg:   cfg,
		log:   log,
		queue: make(chan Change, cfg.Queue),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Send queues c for publishing without blocking.
func (s *MQTTSink) Send(c Change) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- c:
	default:
		s.log.Warn("mqtt queue full, dropping change", "uri", c.URI)
	}
}

// Close stops accepting changes, publishes what is queued and returns.
func (s *MQTTSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *MQTTSink) run() {
	defer close(s.done)
	for c := range s.queue {
		if err := s.publish(c); err != nil {
			s.log.Warn("mqtt publish failed", "uri", c.URI, "error", err)
		}
	}
}

func (s *MQTTSink) publish(c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	topic := Topic(s.cfg.Topic, c.URI)
	token := s.pub.Publish(topic, s.cfg.QoS, false, payload)
	if !token.WaitTimeout(s.cfg.PublishTimeout) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	s.log.Debug("published change", "topic", topic, "id", c.ID)
	return nil
}

// Topic joins prefix and the path part of uri (scheme and authority removed).
func Topic(prefix, uri string) string {
	path := uri
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
		if j := strings.IndexByte(path, '/'); j >= 0 {
			path = path[j+1:]
		} else {
			path = ""
		}
	}
	prefix = strings.TrimRight(prefix, "/")
	switch {
	case path == "":
		return prefix
	case prefix == "":
		return path
	default:
		return prefix + "/" + path
	}
}

// DialMQTT connects to broker and returns the client.
func DialMQTT(broker, clientID string, log *slog.Logger) (mqtt.Client, error) {
	if log == nil {
		log = slog.Default()
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info("connected to mqtt broker", "broker", broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", "broker", broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return nil, fmt.Errorf("connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, err)
	}
	return client, nil
}
