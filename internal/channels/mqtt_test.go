package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mktr-labs/tooldeck/internal/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// MockMQTTToken implements mqtt.Token for testing
type MockMQTTToken struct {
	err     error
	timeout bool
}

func (m *MockMQTTToken) Wait() bool { return true }

func (m *MockMQTTToken) WaitTimeout(time.Duration) bool { return !m.timeout }

func (m *MockMQTTToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (m *MockMQTTToken) Error() error { return m.err }

// MockMQTTClient implements MQTTClient for testing
type MockMQTTClient struct {
	ConnectFunc    func() mqtt.Token
	PublishFunc    func(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnectedVal bool

	invokeHandler mqtt.MessageHandler
	published     []publishedMsg
}

type publishedMsg struct {
	topic   string
	payload []byte
}

func (m *MockMQTTClient) Connect() mqtt.Token {
	if m.ConnectFunc != nil {
		return m.ConnectFunc()
	}
	m.IsConnectedVal = true
	return &MockMQTTToken{}
}

func (m *MockMQTTClient) Disconnect(uint) {
	m.IsConnectedVal = false
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if m.PublishFunc != nil {
		return m.PublishFunc(topic, qos, retained, payload)
	}
	m.published = append(m.published, publishedMsg{topic: topic, payload: payload.([]byte)})
	return &MockMQTTToken{}
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	if topic == invokeTopic {
		m.invokeHandler = callback
	}
	return &MockMQTTToken{}
}

func (m *MockMQTTClient) IsConnected() bool { return m.IsConnectedVal }

// MockMQTTMessage implements mqtt.Message for testing
type MockMQTTMessage struct {
	topic   string
	payload []byte
}

func (m *MockMQTTMessage) Duplicate() bool   { return false }
func (m *MockMQTTMessage) Qos() byte         { return 1 }
func (m *MockMQTTMessage) Retained() bool    { return false }
func (m *MockMQTTMessage) Topic() string     { return m.topic }
func (m *MockMQTTMessage) MessageID() uint16 { return 0 }
func (m *MockMQTTMessage) Payload() []byte   { return m.payload }
func (m *MockMQTTMessage) Ack()              {}

type fakeExecutor struct {
	lastReq interfaces.InvokeRequest
	result  *interfaces.ToolResult
}

func (f *fakeExecutor) Execute(_ context.Context, req interfaces.InvokeRequest) *interfaces.ToolResult {
	f.lastReq = req
	if f.result != nil {
		return f.result
	}
	return interfaces.Success("done")
}

func newMockChannel(executor Executor, mockClient *MockMQTTClient) *MQTTChannel {
	return NewMQTTWithClient(
		"localhost", 1883, "", "",
		executor,
		testLogger(),
		func(opts *mqtt.ClientOptions) MQTTClient { return mockClient },
	)
}

func TestMQTTStartStop(t *testing.T) {
	mockClient := &MockMQTTClient{}
	ch := newMockChannel(&fakeExecutor{}, mockClient)

	if err := ch.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !mockClient.IsConnectedVal {
		t.Error("expected client to be connected")
	}

	if err := ch.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if mockClient.IsConnectedVal {
		t.Error("expected client to be disconnected")
	}
}

func TestMQTTStartConnectionFailed(t *testing.T) {
	mockClient := &MockMQTTClient{
		ConnectFunc: func() mqtt.Token {
			return &MockMQTTToken{err: fmt.Errorf("connection refused")}
		},
	}
	ch := newMockChannel(&fakeExecutor{}, mockClient)

	if err := ch.Start(context.Background()); err == nil {
		t.Fatal("expected error for failed connection")
	}
}

func TestMQTTInvokePublishesResult(t *testing.T) {
	mockClient := &MockMQTTClient{}
	executor := &fakeExecutor{result: interfaces.Success("Hallo Welt")}
	ch := newMockChannel(executor, mockClient)

	if err := ch.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer ch.Stop()

	if err := ch.subscribe(); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if mockClient.invokeHandler == nil {
		t.Fatal("invoke handler not registered")
	}

	req := interfaces.InvokeRequest{
		ID:     "req-7",
		Tool:   "translate_text",
		Params: map[string]interface{}{"text": "Hello world", "target_lang": "DE"},
	}
	payload, _ := json.Marshal(req)
	mockClient.invokeHandler(nil, &MockMQTTMessage{topic: invokeTopic, payload: payload})

	if executor.lastReq.Tool != "translate_text" {
		t.Errorf("executor saw %+v", executor.lastReq)
	}

	if len(mockClient.published) != 1 {
		t.Fatalf("expected one published result, got %d", len(mockClient.published))
	}
	pub := mockClient.published[0]
	if pub.topic != "tooldeck/results/req-7" {
		t.Errorf("result topic = %q", pub.topic)
	}

	var result interfaces.ToolResult
	if err := json.Unmarshal(pub.payload, &result); err != nil {
		t.Fatalf("result payload: %v", err)
	}
	if !result.OK() || result.Output != "Hallo Welt" {
		t.Errorf("result = %+v", result)
	}
}

func TestMQTTInvokeReplyTo(t *testing.T) {
	mockClient := &MockMQTTClient{}
	ch := newMockChannel(&fakeExecutor{}, mockClient)

	if err := ch.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer ch.Stop()

	if err := ch.subscribe(); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	payload, _ := json.Marshal(interfaces.InvokeRequest{
		ID:      "req-8",
		Tool:    "echo",
		ReplyTo: "host/custom/reply",
	})
	mockClient.invokeHandler(nil, &MockMQTTMessage{topic: invokeTopic, payload: payload})

	if len(mockClient.published) != 1 {
		t.Fatalf("expected one published result, got %d", len(mockClient.published))
	}
	if mockClient.published[0].topic != "host/custom/reply" {
		t.Errorf("reply topic = %q", mockClient.published[0].topic)
	}
}

func TestMQTTInvokeBadPayload(t *testing.T) {
	mockClient := &MockMQTTClient{}
	executor := &fakeExecutor{}
	ch := newMockChannel(executor, mockClient)

	if err := ch.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer ch.Stop()

	if err := ch.subscribe(); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	mockClient.invokeHandler(nil, &MockMQTTMessage{topic: invokeTopic, payload: []byte("not json")})

	if executor.lastReq.Tool != "" {
		t.Error("malformed payload must not reach the executor")
	}
	if len(mockClient.published) != 0 {
		t.Error("malformed payload must not produce a result")
	}
}
