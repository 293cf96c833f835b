package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	model "github.com/bifrotek/voicebridge/internal/model/session"
	sessionService "github.com/bifrotek/voicebridge/internal/service/session"
)

func newTestHandler(keepAliveTicks int) (*Handler, *sessionService.Service) {
	sessions := sessionService.NewService(nil)
	h := &Handler{
		sessions:       sessions,
		tick:           5 * time.Millisecond,
		keepAliveTicks: keepAliveTicks,
		active:         make(map[string]struct{}),
	}
	return h, sessions
}

// runStream serves one stream request until the deadline elapses and
// returns the raw body written to the client.
func runStream(t *testing.T, h *Handler, sessionID string, duration time.Duration) string {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/events/"+sessionID, nil).WithContext(ctx)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp.Body.String()
}

func dataFrames(t *testing.T, body string) []model.Message {
	t.Helper()
	var messages []model.Message
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg model.Message
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			t.Fatalf("bad data frame %q: %v", line, err)
		}
		messages = append(messages, msg)
	}
	return messages
}

func TestStreamDeliversQueuedMessage(t *testing.T) {
	h, sessions := newTestHandler(1000)
	ctx := context.Background()

	sessions.Register(ctx, model.Session{ID: "abc123", CustomerName: "Jane"})
	sessions.Enqueue(ctx, "abc123", model.Message{Content: "Hello", Role: "assistant", Source: model.SourceVoice})

	body := runStream(t, h, "abc123", 50*time.Millisecond)

	frames := dataFrames(t, body)
	if len(frames) != 1 {
		t.Fatalf("expected exactly one event, got %d (body %q)", len(frames), body)
	}
	if frames[0].Content != "Hello" || frames[0].Role != "assistant" {
		t.Fatalf("unexpected event: %+v", frames[0])
	}

	// The queue was drained; a subsequent stream sees nothing.
	body = runStream(t, h, "abc123", 30*time.Millisecond)
	if frames := dataFrames(t, body); len(frames) != 0 {
		t.Fatalf("expected zero events on second stream, got %d", len(frames))
	}
}

func TestStreamPreservesOrder(t *testing.T) {
	h, sessions := newTestHandler(1000)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		sessions.Enqueue(ctx, "abc123", model.Message{Content: content, Role: "assistant"})
	}

	body := runStream(t, h, "abc123", 50*time.Millisecond)

	frames := dataFrames(t, body)
	if len(frames) != 3 {
		t.Fatalf("expected 3 events, got %d", len(frames))
	}
	for i, want := range []string{"one", "two", "three"} {
		if frames[i].Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, frames[i].Content)
		}
	}
}

func TestStreamPicksUpMessagesEnqueuedMidStream(t *testing.T) {
	h, sessions := newTestHandler(1000)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(15 * time.Millisecond)
		sessions.Enqueue(context.Background(), "abc123", model.Message{Content: "late", Role: "assistant"})
	}()

	body := runStream(t, h, "abc123", 80*time.Millisecond)
	wg.Wait()

	frames := dataFrames(t, body)
	if len(frames) != 1 || frames[0].Content != "late" {
		t.Fatalf("mid-stream enqueue not delivered: %v", frames)
	}
}

func TestIdleStreamEmitsKeepAlive(t *testing.T) {
	h, _ := newTestHandler(2)

	body := runStream(t, h, "abc123", 60*time.Millisecond)

	if !strings.Contains(body, ": keep-alive") {
		t.Fatalf("expected keep-alive comment in idle stream, body %q", body)
	}
	if frames := dataFrames(t, body); len(frames) != 0 {
		t.Fatalf("idle stream must not emit data frames, got %d", len(frames))
	}
}

func TestNoKeepAliveBeforeThreshold(t *testing.T) {
	// Threshold far beyond the stream's lifetime: nothing at all should
	// be written.
	h, _ := newTestHandler(1000)

	body := runStream(t, h, "abc123", 40*time.Millisecond)

	if strings.Contains(body, ": keep-alive") {
		t.Fatalf("keep-alive emitted before tick threshold, body %q", body)
	}
}

func TestActiveMarkerClearedOnDisconnect(t *testing.T) {
	h, _ := newTestHandler(1000)

	runStream(t, h, "abc123", 30*time.Millisecond)

	if h.Active("abc123") {
		t.Fatal("active marker must be removed after the stream ends")
	}
}

func TestStreamsDoNotCrossSessions(t *testing.T) {
	h, sessions := newTestHandler(1000)
	ctx := context.Background()

	sessions.Enqueue(ctx, "other", model.Message{Content: "not yours", Role: "assistant"})

	body := runStream(t, h, "abc123", 30*time.Millisecond)
	if frames := dataFrames(t, body); len(frames) != 0 {
		t.Fatalf("stream received another session's messages: %v", frames)
	}

	// The other session's message is still queued.
	drained, _ := sessions.Drain(ctx, "other")
	if len(drained) != 1 {
		t.Fatalf("other session's message lost, got %d", len(drained))
	}
}
