// Package channels provides alternative invocation transports. The MQTT
// channel lets headless hosts call tools over a broker instead of HTTP.
package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/mktr-labs/tooldeck/internal/interfaces"
)

const (
	invokeTopic    = "tooldeck/invoke"     // host → tooldeck
	resultTopicFmt = "tooldeck/results/%s" // tooldeck → host, per request id
)

// Executor runs one invocation; satisfied by tools.Runner.
type Executor interface {
	Execute(ctx context.Context, req interfaces.InvokeRequest) *interfaces.ToolResult
}

// MQTTChannel subscribes to the invoke topic, executes each request
// synchronously, and publishes the ToolResult to the reply topic.
type MQTTChannel struct {
	broker   string
	port     int
	clientID string
	username string
	password string
	executor Executor
	logger   *slog.Logger
	client   MQTTClient
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	// Factory function for creating the MQTT client (overridden in tests)
	clientFactory func(opts *mqtt.ClientOptions) MQTTClient
}

// NewMQTT creates a new MQTT invocation channel.
func NewMQTT(broker string, port int, username, password string, executor Executor, logger *slog.Logger) *MQTTChannel {
	return &MQTTChannel{
		broker:   broker,
		port:     port,
		clientID: fmt.Sprintf("tooldeck-%d", time.Now().Unix()),
		username: username,
		password: password,
		executor: executor,
		logger:   logger.With("channel", "mqtt"),
		clientFactory: func(opts *mqtt.ClientOptions) MQTTClient {
			return &DefaultMQTTClient{client: mqtt.NewClient(opts)}
		},
	}
}

// NewMQTTWithClient creates a channel with a custom client factory (for tests).
func NewMQTTWithClient(broker string, port int, username, password string, executor Executor, logger *slog.Logger, clientFactory func(*mqtt.ClientOptions) MQTTClient) *MQTTChannel {
	ch := NewMQTT(broker, port, username, password, executor, logger)
	ch.clientFactory = clientFactory
	return ch
}

func (m *MQTTChannel) Name() string {
	return "mqtt"
}

// Start connects to the broker and subscribes to the invoke topic.
func (m *MQTTChannel) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	opts := mqtt.NewClientOptions()
	brokerURL := fmt.Sprintf("tcp://%s:%d", m.broker, m.port)
	opts.AddBroker(brokerURL)
	opts.SetClientID(m.clientID)

	if m.username != "" {
		opts.SetUsername(m.username)
		opts.SetPassword(m.password)
	}

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		m.logger.Warn("mqtt connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		m.logger.Info("mqtt connected, subscribing")
		if err := m.subscribe(); err != nil {
			m.logger.Error("failed to subscribe", "error", err)
		}
	})

	m.client = m.clientFactory(opts)

	m.logger.Info("connecting to mqtt broker", "broker", brokerURL)
	token := m.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to mqtt: %w", err)
	}

	m.logger.Info("mqtt channel started")
	return nil
}

// Stop disconnects from the broker and waits for in-flight handlers.
func (m *MQTTChannel) Stop() error {
	m.logger.Info("stopping mqtt channel")

	if m.cancel != nil {
		m.cancel()
	}
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
	}

	m.wg.Wait()
	return nil
}

func (m *MQTTChannel) subscribe() error {
	token := m.client.Subscribe(invokeTopic, 1, m.handleInvoke)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", invokeTopic, err)
	}
	m.logger.Info("subscribed", "topic", invokeTopic)
	return nil
}

// handleInvoke executes a single invocation and publishes the result.
// QoS 1 both ways: the host may see a duplicate result, never a lost one.
func (m *MQTTChannel) handleInvoke(_ mqtt.Client, mqttMsg mqtt.Message) {
	m.wg.Add(1)
	defer m.wg.Done()

	var req interfaces.InvokeRequest
	if err := json.Unmarshal(mqttMsg.Payload(), &req); err != nil {
		m.logger.Error("failed to parse invoke payload", "error", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	m.logger.Debug("mqtt invocation received", "id", req.ID, "tool", req.Tool)

	result := m.executor.Execute(m.ctx, req)

	payload, err := json.Marshal(result)
	if err != nil {
		m.logger.Error("failed to marshal result", "id", req.ID, "error", err)
		return
	}

	topic := fmt.Sprintf(resultTopicFmt, req.ID)
	if req.ReplyTo != "" {
		topic = req.ReplyTo
	}

	token := m.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		m.logger.Warn("result publish timeout", "id", req.ID)
		return
	}
	if err := token.Error(); err != nil {
		m.logger.Warn("result publish failed", "id", req.ID, "error", err)
		return
	}

	m.logger.Debug("result published", "id", req.ID, "topic", topic, "status", result.Status)
}
