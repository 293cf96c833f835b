package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	model "github.com/bifrotek/voicebridge/internal/model/session"
	sessionService "github.com/bifrotek/voicebridge/internal/service/session"
)

func setupRouter() (*chi.Mux, *sessionService.Service) {
	sessions := sessionService.NewService(nil)
	handler := New(sessions)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, sessions
}

func postWebhook(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func toolCallBody(callID, name, args string) string {
	return fmt.Sprintf(`{"message":{"toolCalls":[{"id":%q,"function":{"name":%q,"arguments":%s}}]}}`, callID, name, args)
}

func decodeToolResponse(t *testing.T, resp *httptest.ResponseRecorder) toolCallResponse {
	t.Helper()
	var out toolCallResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Results) != 1 {
		t.Fatalf("expected exactly one result, got %d", len(out.Results))
	}
	return out
}

func TestToolCallDeliversToSession(t *testing.T) {
	r, sessions := setupRouter()
	ctx := context.Background()

	sessions.Register(ctx, model.Session{ID: "abc123", CustomerName: "Jane"})

	resp := postWebhook(t, r, toolCallBody("call-1", "send_chat_message",
		`{"session_id":"abc123","message":"Hello"}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	out := decodeToolResponse(t, resp)
	if out.Results[0].ToolCallID != "call-1" {
		t.Fatalf("expected correlation id call-1, got %q", out.Results[0].ToolCallID)
	}
	if out.Results[0].Result != "Message sent to chat" {
		t.Fatalf("unexpected result: %q", out.Results[0].Result)
	}

	drained, err := sessions.Drain(ctx, "abc123")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(drained) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(drained))
	}
	msg := drained[0]
	if msg.Content != "Hello" || msg.Role != "assistant" || msg.Source != model.SourceVoice {
		t.Fatalf("unexpected message: %+v", msg)
	}

	// Queue is drained; the next tick sees nothing.
	if drained, _ := sessions.Drain(ctx, "abc123"); len(drained) != 0 {
		t.Fatalf("expected empty queue after drain, got %d", len(drained))
	}
}

func TestToolCallArgumentsAsEncodedString(t *testing.T) {
	r, sessions := setupRouter()

	args := `"{\"sessionId\":\"abc123\",\"message\":\"Hello\"}"`
	resp := postWebhook(t, r, toolCallBody("call-2", "send_chat_message", args))

	out := decodeToolResponse(t, resp)
	if out.Results[0].Result != "Message sent to chat" {
		t.Fatalf("unexpected result: %q", out.Results[0].Result)
	}

	drained, _ := sessions.Drain(context.Background(), "abc123")
	if len(drained) != 1 || drained[0].Content != "Hello" {
		t.Fatalf("message not queued from string arguments: %v", drained)
	}
}

func TestToolCallUnknownFunctionAcknowledged(t *testing.T) {
	r, sessions := setupRouter()

	resp := postWebhook(t, r, toolCallBody("call-3", "book_meeting", `{"when":"tomorrow"}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	out := decodeToolResponse(t, resp)
	if !strings.Contains(out.Results[0].Result, "book_meeting") {
		t.Fatalf("acknowledgement must reference the function name, got %q", out.Results[0].Result)
	}

	ids, _ := sessions.ActiveSessionIDs(context.Background())
	for _, id := range ids {
		if drained, _ := sessions.Drain(context.Background(), id); len(drained) != 0 {
			t.Fatalf("nothing should be enqueued for unknown functions")
		}
	}
}

func TestToolCallMissingSessionID(t *testing.T) {
	r, sessions := setupRouter()
	sessions.Register(context.Background(), model.Session{ID: "abc123"})

	resp := postWebhook(t, r, toolCallBody("call-4", "send_chat_message", `{"message":"Hello"}`))

	out := decodeToolResponse(t, resp)
	if !strings.Contains(out.Results[0].Result, "session_id") {
		t.Fatalf("failure must name the missing field, got %q", out.Results[0].Result)
	}

	if drained, _ := sessions.Drain(context.Background(), "abc123"); len(drained) != 0 {
		t.Fatalf("no message may be enqueued without a destination")
	}
}

func TestToolCallEnvelopeSessionIDFallback(t *testing.T) {
	r, sessions := setupRouter()

	body := `{"sessionId":"env-session","message":{"toolCalls":[{"id":"call-5","function":{"name":"send_chat_message","arguments":{"message":"Hi"}}}]}}`
	resp := postWebhook(t, r, body)

	out := decodeToolResponse(t, resp)
	if out.Results[0].Result != "Message sent to chat" {
		t.Fatalf("unexpected result: %q", out.Results[0].Result)
	}

	drained, _ := sessions.Drain(context.Background(), "env-session")
	if len(drained) != 1 {
		t.Fatalf("expected delivery via envelope session id, got %d messages", len(drained))
	}
}

func TestToolCallFirstInvocationWins(t *testing.T) {
	r, sessions := setupRouter()

	body := `{"message":{"toolCalls":[
		{"id":"call-a","function":{"name":"send_chat_message","arguments":{"sessionId":"abc123","message":"first"}}},
		{"id":"call-b","function":{"name":"send_chat_message","arguments":{"sessionId":"abc123","message":"second"}}}
	]}}`
	resp := postWebhook(t, r, body)

	out := decodeToolResponse(t, resp)
	if out.Results[0].ToolCallID != "call-a" {
		t.Fatalf("expected first tool call to win, got %q", out.Results[0].ToolCallID)
	}

	drained, _ := sessions.Drain(context.Background(), "abc123")
	if len(drained) != 1 || drained[0].Content != "first" {
		t.Fatalf("expected only the first invocation queued, got %v", drained)
	}
}

func TestLegacyFunctionCall(t *testing.T) {
	r, sessions := setupRouter()

	body := `{"functionCall":{"name":"send_chat_message","parameters":{"sessionId":"abc123","message":"Hello"}}}`
	resp := postWebhook(t, r, body)

	var out map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["result"] != "Message sent to chat" {
		t.Fatalf("unexpected result: %q", out["result"])
	}

	drained, _ := sessions.Drain(context.Background(), "abc123")
	if len(drained) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(drained))
	}
}

func TestDirectMessageBroadcast(t *testing.T) {
	r, sessions := setupRouter()
	ctx := context.Background()

	sessions.Register(ctx, model.Session{ID: "one"})
	sessions.Register(ctx, model.Session{ID: "two"})

	resp := postWebhook(t, r, `{"message":{"content":"Maintenance tonight","role":"assistant"}}`)

	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["status"] != "success" {
		t.Fatalf("expected success, got %v", out)
	}
	if out["delivered"] != float64(2) {
		t.Fatalf("expected 2 deliveries, got %v", out["delivered"])
	}

	for _, id := range []string{"one", "two"} {
		drained, _ := sessions.Drain(ctx, id)
		if len(drained) != 1 || drained[0].Content != "Maintenance tonight" {
			t.Fatalf("session %s did not receive the broadcast: %v", id, drained)
		}
		if drained[0].Source != model.SourceWebhook {
			t.Fatalf("expected webhook source tag, got %q", drained[0].Source)
		}
	}
}

func TestDirectMessageWithEnvelopeSessionID(t *testing.T) {
	r, sessions := setupRouter()
	ctx := context.Background()

	sessions.Register(ctx, model.Session{ID: "target"})
	sessions.Register(ctx, model.Session{ID: "bystander"})

	postWebhook(t, r, `{"sessionId":"target","message":{"content":"Just for you","role":"assistant"}}`)

	if drained, _ := sessions.Drain(ctx, "bystander"); len(drained) != 0 {
		t.Fatalf("directed message leaked to another session: %v", drained)
	}
	drained, _ := sessions.Drain(ctx, "target")
	if len(drained) != 1 || drained[0].Content != "Just for you" {
		t.Fatalf("directed message not delivered: %v", drained)
	}
}

func TestUnrecognizedPayloadAcknowledged(t *testing.T) {
	r, _ := setupRouter()

	resp := postWebhook(t, r, `{"something":"else"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("unrecognized payloads must still be acknowledged, got %d", resp.Code)
	}
	var out map[string]string
	json.Unmarshal(resp.Body.Bytes(), &out)
	if out["status"] != "ignored" {
		t.Fatalf("expected ignored status, got %v", out)
	}
}

func TestMalformedJSONNeverEscapes(t *testing.T) {
	r, _ := setupRouter()

	resp := postWebhook(t, r, `{"message": not-json`)

	if resp.Code != http.StatusOK {
		t.Fatalf("malformed payloads must not become server errors, got %d", resp.Code)
	}
	var out map[string]string
	json.Unmarshal(resp.Body.Bytes(), &out)
	if out["status"] != "error" || out["message"] == "" {
		t.Fatalf("expected structured error envelope, got %v", out)
	}
}

func TestRelayPreservesEnqueueOrder(t *testing.T) {
	r, sessions := setupRouter()

	for i := 1; i <= 3; i++ {
		body := toolCallBody(fmt.Sprintf("call-%d", i), "send_chat_message",
			fmt.Sprintf(`{"sessionId":"abc123","message":"msg-%d"}`, i))
		postWebhook(t, r, body)
	}

	drained, _ := sessions.Drain(context.Background(), "abc123")
	if len(drained) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(drained))
	}
	for i, msg := range drained {
		want := fmt.Sprintf("msg-%d", i+1)
		if msg.Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, msg.Content)
		}
	}
}
