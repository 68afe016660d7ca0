package surface

import (
	"errors"
	"fmt"
	"image"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrPublishTimeout = errors.New("surface: mqtt publish timed out")

// MQTTConfig describes the broker connection and topic frames go to.
type MQTTConfig struct {
	URL          string `yaml:"url"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Topic        string `yaml:"topic"`
	QoS          byte   `yaml:"qos"`
	PreviewWidth int    `yaml:"preview_width"`
}

type publisher interface {
	publish(topic string, payload []byte) error
	close()
}

type pahoPublisher struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
}

func (p *pahoPublisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

func (p *pahoPublisher) close() {
	p.client.Disconnect(250)
}

// MQTT publishes PNG frames to a broker topic.
type MQTT struct {
	topic string
	pub   publisher
	enc   *encoder
	dedup dedup
	log   *zap.Logger
}

// DialMQTT connects to the broker in cfg.
func DialMQTT(cfg MQTTConfig, log *zap.Logger) (*MQTT, error) {
	if cfg.URL == "" || cfg.Topic == "" {
		return nil, errors.New("surface: mqtt url and topic are required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	options := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID("animscene-" + uuid.NewString()).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("mqtt connection lost", zap.Error(err))
		})
	client := mqtt.NewClient(options)

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("surface: mqtt connect %s: timed out", cfg.URL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("surface: mqtt connect %s: %w", cfg.URL, err)
	}
	log.Info("mqtt connected", zap.String("broker", cfg.URL), zap.String("topic", cfg.Topic))

	return newMQTT(&pahoPublisher{client: client, qos: cfg.QoS, timeout: 5 * time.Second}, cfg.Topic, cfg.PreviewWidth, log), nil
}

func newMQTT(pub publisher, topic string, previewWidth int, log *zap.Logger) *MQTT {
	return &MQTT{topic: topic, pub: pub, enc: newEncoder(previewWidth), log: log}
}

// Present publishes frame unless it equals the previous one.
func (m *MQTT) Present(frame image.Image) error {
	payload, err := m.enc.encode(frame)
	if err != nil {
		return fmt.Errorf("surface: encode frame: %w", err)
	}
	if !m.dedup.changed(payload) {
		return nil
	}
	if err := m.pub.publish(m.topic, payload); err != nil {
		return fmt.Errorf("surface: publish to %s: %w", m.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.pub.close()
}
