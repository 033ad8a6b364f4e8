package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/netwatch-oss/triggerkit/internal/conf"
	"github.com/netwatch-oss/triggerkit/internal/errors"
	"github.com/netwatch-oss/triggerkit/internal/logger"
	"github.com/netwatch-oss/triggerkit/internal/observability/metrics"
)

const defaultPublishTimeout = 5 * time.Second

// Publish outcomes recorded in metrics.
const (
	publishOK      = "ok"
	publishFailed  = "failed"
	publishTimeout = "timeout"
	publishEncode  = "encode_error"
)

// tokenPublisher is the part of mqtt.Client used for publishing.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// MQTTPublisher forwards changes to "<topic>/<host_id>". Failures are
// logged and counted; they never reach the writer that caused the change.
type MQTTPublisher struct {
	client  mqtt.Client
	pub     tokenPublisher
	topic   string
	qos     byte
	retain  bool
	timeout time.Duration
	log     logger.Logger
	stats   *metrics.Metrics
}

// NewMQTTPublisher configures a paho client from cfg. Call Connect before
// handing Handle to a Bus.
func NewMQTTPublisher(cfg conf.MQTTSettings, log logger.Logger, stats *metrics.Metrics) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, errors.Newf("mqtt broker is not configured").
			Component("publish").
			Category(errors.CategoryConfig).
			Build()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.With(logger.String("component", "publish.mqtt"), logger.String("broker", cfg.Broker))

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("triggerkit-%d", time.Now().UnixNano())
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", logger.Error(err))
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Info("mqtt connected")
	})

	client := mqtt.NewClient(opts)
	p := newPublisher(client, cfg, log, stats)
	p.client = client
	return p, nil
}

func newPublisher(pub tokenPublisher, cfg conf.MQTTSettings, log logger.Logger, stats *metrics.Metrics) *MQTTPublisher {
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &MQTTPublisher{
		pub:     pub,
		topic:   strings.TrimRight(cfg.Topic, "/"),
		qos:     cfg.QoS,
		retain:  cfg.Retain,
		timeout: timeout,
		log:     log,
		stats:   stats,
	}
}

// Connect dials the broker and waits until the session is up or ctx ends.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	if p.client == nil {
		return nil
	}
	token := p.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return errors.New(fmt.Errorf("mqtt connect: %w", ctx.Err())).
			Component("publish").
			Category(errors.CategoryTransport).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(fmt.Errorf("mqtt connect: %w", err)).
			Component("publish").
			Category(errors.CategoryTransport).
			Build()
	}
	return nil
}

// Close disconnects, allowing in-flight publications a short grace period.
func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// Topic returns the topic a change is published to.
func (p *MQTTPublisher) Topic(c Change) string {
	host := c.HostID
	if host == "" {
		host = c.Trigger.HostID
	}
	if host == "" {
		return p.topic
	}
	return p.topic + "/" + host
}

// Handle publishes one change. It matches the Handler signature.
func (p *MQTTPublisher) Handle(c Change) {
	payload, err := json.Marshal(c)
	if err != nil {
		p.stats.ObservePublish(publishEncode)
		p.log.Error("failed to encode change", logger.Error(err))
		return
	}

	topic := p.Topic(c)
	token := p.pub.Publish(topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(p.timeout) {
		p.stats.ObservePublish(publishTimeout)
		p.log.Warn("mqtt publish timed out",
			logger.String("topic", topic),
			logger.String("timeout", p.timeout.String()))
		return
	}
	if err := token.Error(); err != nil {
		p.stats.ObservePublish(publishFailed)
		p.log.Error("mqtt publish failed", logger.String("topic", topic), logger.Error(err))
		return
	}
	p.stats.ObservePublish(publishOK)
	p.log.Debug("change published",
		logger.String("topic", topic),
		logger.String("action", string(c.Action)),
		logger.String("trigger_id", c.Trigger.ID))
}
