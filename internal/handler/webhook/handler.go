// Package webhook receives tool-call and direct-message events from
// the voice assistant provider and relays them into per-session
// message queues.
package webhook

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	model "github.com/bifrotek/voicebridge/internal/model/session"
	sessionService "github.com/bifrotek/voicebridge/internal/service/session"
	"github.com/bifrotek/voicebridge/pkg/utils"
)

// chatFunctionName is the only tool the relay handles. Everything else
// is acknowledged as unknown so the provider still gets a correlated
// response.
const chatFunctionName = "send_chat_message"

// Handler relays provider webhooks into session queues. It holds no
// state of its own.
type Handler struct {
	sessions *sessionService.Service
}

// New creates the webhook relay handler.
func New(sessions *sessionService.Service) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes mounts the webhook endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook", h.handleWebhook)
}

// envelope covers the recognized webhook shapes: tool-call batches,
// the legacy single functionCall, and direct messages.
type envelope struct {
	SessionID    string        `json:"sessionId"`
	Message      *messageBody  `json:"message"`
	FunctionCall *functionCall `json:"functionCall"`
}

type messageBody struct {
	ToolCalls []toolCall `json:"toolCalls"`
	Content   string     `json:"content"`
	Role      string     `json:"role"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type functionCall struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

// chatArgs are the send_chat_message arguments. The provider is not
// consistent about key casing, so both spellings are accepted.
type chatArgs struct {
	SessionID      string `json:"sessionId"`
	SessionIDSnake string `json:"session_id"`
	Message        string `json:"message"`
	Role           string `json:"role"`
}

func (a chatArgs) sessionID() string {
	if a.SessionID != "" {
		return a.SessionID
	}
	return a.SessionIDSnake
}

type toolCallResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

type toolCallResponse struct {
	Results []toolCallResult `json:"results"`
}

// handleWebhook is the relay's single entry point. It always answers
// 200 with a JSON body: an unanswered or malformed response makes the
// provider retry or mark the conversational turn failed.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[webhook] recovered: %v", rec)
			utils.RespondJSON(w, http.StatusOK, map[string]string{
				"status":  "error",
				"message": fmt.Sprint(rec),
			})
		}
	}()

	var payload envelope
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"message": "invalid JSON payload: " + err.Error(),
		})
		return
	}

	switch {
	case payload.Message != nil && len(payload.Message.ToolCalls) > 0:
		h.handleToolCalls(w, r, payload)
	case payload.FunctionCall != nil:
		h.handleLegacyFunctionCall(w, r, payload)
	case payload.Message != nil && payload.Message.Content != "":
		h.handleDirectMessage(w, r, payload)
	default:
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "ignored",
			"message": "unrecognized webhook payload",
		})
	}
}

// handleToolCalls processes the structured toolCalls shape. The
// provider does not guarantee exactly one invocation; the first one
// wins. Every outcome is acknowledged with a result correlated by the
// tool call id, including errors, or the provider marks the call
// failed.
func (h *Handler) handleToolCalls(w http.ResponseWriter, r *http.Request, payload envelope) {
	call := payload.Message.ToolCalls[0]

	result := h.executeChatFunction(r, call.Function.Name, call.Function.Arguments, payload.SessionID)
	utils.RespondJSON(w, http.StatusOK, toolCallResponse{
		Results: []toolCallResult{{ToolCallID: call.ID, Result: result}},
	})
}

// handleLegacyFunctionCall processes the older single functionCall
// shape. There is no tool call id to correlate, so the acknowledgement
// is a generic result envelope.
func (h *Handler) handleLegacyFunctionCall(w http.ResponseWriter, r *http.Request, payload envelope) {
	result := h.executeChatFunction(r, payload.FunctionCall.Name, payload.FunctionCall.Parameters, payload.SessionID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"result": result})
}

// executeChatFunction resolves and performs a send_chat_message
// invocation, returning the acknowledgement text.
func (h *Handler) executeChatFunction(r *http.Request, name string, rawArgs json.RawMessage, envelopeSessionID string) string {
	if name != chatFunctionName {
		return "Unknown function: " + name
	}

	args, err := decodeChatArgs(rawArgs)
	if err != nil {
		return "Error: invalid function arguments: " + err.Error()
	}

	// Destination priority: explicit id in the tool arguments, then
	// the webhook envelope. No destination means no guessing.
	sessionID := args.sessionID()
	if sessionID == "" {
		sessionID = envelopeSessionID
	}
	if sessionID == "" {
		return "Error: session_id missing in tool call arguments"
	}
	if args.Message == "" {
		return "Error: message missing in tool call arguments"
	}

	role := args.Role
	if role == "" {
		role = "assistant"
	}

	if _, found, err := h.sessions.Lookup(r.Context(), sessionID); err != nil {
		log.Printf("[webhook] session lookup failed for %s: %v", sessionID, err)
	} else if !found {
		// Unknown ids are valid-but-unenriched; the message is queued
		// for whichever stream claims the id.
		log.Printf("[webhook] delivering to unregistered session %s", sessionID)
	}

	msg := model.Message{
		Content: args.Message,
		Role:    role,
		Source:  model.SourceVoice,
	}
	if err := h.sessions.Enqueue(r.Context(), sessionID, msg); err != nil {
		return "Error: failed to queue message: " + err.Error()
	}
	return "Message sent to chat"
}

// handleDirectMessage relays a plain provider message. With an
// envelope session id it is directed; without one it fans out to every
// currently registered session.
func (h *Handler) handleDirectMessage(w http.ResponseWriter, r *http.Request, payload envelope) {
	role := payload.Message.Role
	if role == "" {
		role = "assistant"
	}
	msg := model.Message{
		Content: payload.Message.Content,
		Role:    role,
		Source:  model.SourceWebhook,
	}

	if payload.SessionID != "" {
		if err := h.sessions.Enqueue(r.Context(), payload.SessionID, msg); err != nil {
			utils.RespondJSON(w, http.StatusOK, map[string]string{
				"status":  "error",
				"message": "failed to queue message: " + err.Error(),
			})
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]any{"status": "success", "delivered": 1})
		return
	}

	ids, err := h.sessions.ActiveSessionIDs(r.Context())
	if err != nil {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"message": "failed to list sessions: " + err.Error(),
		})
		return
	}

	delivered := 0
	for _, id := range ids {
		if err := h.sessions.Enqueue(r.Context(), id, msg); err != nil {
			log.Printf("[webhook] broadcast enqueue failed for %s: %v", id, err)
			continue
		}
		delivered++
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"status": "success", "delivered": delivered})
}

// decodeChatArgs parses tool arguments that arrive either as a JSON
// object or as a JSON-encoded string containing an object.
func decodeChatArgs(raw json.RawMessage) (chatArgs, error) {
	var args chatArgs
	if len(raw) == 0 {
		return args, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return args, err
		}
		raw = json.RawMessage(inner)
	}

	if err := json.Unmarshal(raw, &args); err != nil {
		return args, err
	}
	return args, nil
}
