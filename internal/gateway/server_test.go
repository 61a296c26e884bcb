package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mktr-labs/tooldeck/internal/audit"
	"github.com/mktr-labs/tooldeck/internal/config"
	"github.com/mktr-labs/tooldeck/internal/interfaces"
	"github.com/mktr-labs/tooldeck/internal/tools"
)

type fakeJournal struct {
	entries []audit.Entry
}

func (f *fakeJournal) Recent(_ context.Context, limit int) ([]audit.Entry, error) {
	return f.entries, nil
}

func newTestServer(t *testing.T, cfg *config.Config, journal AuditSource) (*Server, *ConfirmBroker) {
	t.Helper()

	reg := tools.NewRegistry(testLogger())
	echo := tools.NewFunc("echo", "echoes text",
		map[string]tools.Param{"text": {Type: "string", Description: "text"}},
		[]string{"text"},
		func(_ context.Context, params map[string]interface{}) *interfaces.ToolResult {
			return interfaces.Success(tools.StringParam(params, "text"))
		})
	if err := reg.Register(echo); err != nil {
		t.Fatal(err)
	}

	runner := tools.NewRunner(reg, nil, nil, testLogger())
	broker := NewConfirmBroker(testLogger())
	return NewServer(cfg, runner, broker, journal, testLogger()), broker
}

func TestStatusRoute(t *testing.T) {
	srv, _ := newTestServer(t, config.DefaultConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
	if body["tools"].(float64) != 1 {
		t.Errorf("tools = %v", body["tools"])
	}
}

func TestInvokeRoute(t *testing.T) {
	srv, _ := newTestServer(t, config.DefaultConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	payload, _ := json.Marshal(interfaces.InvokeRequest{
		Tool:   "echo",
		Params: map[string]interface{}{"text": "ping"},
	})
	resp, err := http.Post(ts.URL+"/api/tools/invoke", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var result interfaces.ToolResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if !result.OK() || result.Output != "ping" {
		t.Errorf("result = %+v", result)
	}
}

func TestInvokeUnknownToolStillHTTP200(t *testing.T) {
	srv, _ := newTestServer(t, config.DefaultConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	payload := []byte(`{"tool":"nope"}`)
	resp, err := http.Post(ts.URL+"/api/tools/invoke", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tool failures ride inside the result, got HTTP %d", resp.StatusCode)
	}

	var result interfaces.ToolResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.OK() {
		t.Error("unknown tool should yield an error result")
	}
}

func TestInvokeMissingToolName(t *testing.T) {
	srv, _ := newTestServer(t, config.DefaultConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/tools/invoke", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestToolsRoute(t *testing.T) {
	srv, _ := newTestServer(t, config.DefaultConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/tools")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Tools []interfaces.ToolSchema `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Tools) != 1 || body.Tools[0].Name != "echo" {
		t.Errorf("tools = %+v", body.Tools)
	}
}

func TestAuthRequired(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.JWTSecret = "test-secret"

	srv, _ := newTestServer(t, cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// No token
	resp, err := http.Get(ts.URL + "/api/tools")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("without token: status = %d, want 401", resp.StatusCode)
	}

	// Valid token
	token, err := GenerateToken("operator", []byte(cfg.Auth.JWTSecret), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/tools", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("with token: status = %d", resp.StatusCode)
	}

	// Status stays public
	resp, err = http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status route should be public, got %d", resp.StatusCode)
	}
}

func TestLogin(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.PasswordHash = hash

	srv, _ := newTestServer(t, cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// Wrong password
	resp, err := http.Post(ts.URL+"/api/login", "application/json",
		strings.NewReader(`{"password":"wrong"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d", resp.StatusCode)
	}

	// Correct password yields a usable token
	resp, err = http.Post(ts.URL+"/api/login", "application/json",
		strings.NewReader(`{"password":"hunter2"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status = %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken(body.Token, []byte(cfg.Auth.JWTSecret)); err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
}

func TestAuditRoute(t *testing.T) {
	journal := &fakeJournal{entries: []audit.Entry{
		{ID: "inv-1", Tool: "echo", Status: "success", ElapsedMs: 3},
	}}
	srv, _ := newTestServer(t, config.DefaultConfig(), journal)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/audit")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Entries []audit.Entry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Entries) != 1 || body.Entries[0].Tool != "echo" {
		t.Errorf("entries = %+v", body.Entries)
	}
}

func TestAuditRouteDisabled(t *testing.T) {
	srv, _ := newTestServer(t, config.DefaultConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/audit")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 with no journal", resp.StatusCode)
	}
}

// TestOperatorWebsocketFlow drives a confirmation end to end: a prompt
// raised through the broker reaches the console, and the console's decision
// resolves it.
func TestOperatorWebsocketFlow(t *testing.T) {
	srv, broker := newTestServer(t, config.DefaultConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws/operator"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Give the server a moment to register the subscription.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		broker.mu.RLock()
		n := len(broker.subs)
		broker.mu.RUnlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	resultCh := make(chan bool, 1)
	go func() {
		approved, _ := broker.Confirm(ctx, interfaces.ConfirmRequest{
			Tool:    "prepare_and_send",
			Summary: "Send email to alice@example.com",
		})
		resultCh <- approved
	}()

	var env wsEnvelope
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		t.Fatalf("read prompt: %v", err)
	}
	if env.Type != "confirm_request" || env.Request == nil {
		t.Fatalf("unexpected frame: %+v", env)
	}

	dec := wsEnvelope{
		Type:     "decision",
		Decision: &interfaces.ConfirmDecision{ID: env.Request.ID, Approved: true},
	}
	if err := wsjson.Write(ctx, conn, dec); err != nil {
		t.Fatalf("write decision: %v", err)
	}

	select {
	case approved := <-resultCh:
		if !approved {
			t.Fatal("decision did not approve the prompt")
		}
	case <-ctx.Done():
		t.Fatal("confirmation did not resolve in time")
	}
}
