package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"payrollrag/internal/assistant"
	"payrollrag/internal/domain"
	"payrollrag/internal/engine"
	"payrollrag/internal/logger"
)

// Backend is the engine surface served over HTTP.
type Backend interface {
	assistant.Backend
	Filter(c domain.Criteria) []domain.Record
	Info() engine.Info
}

// DefaultMaxConversations bounds the live conversations when no limit is given.
const DefaultMaxConversations = 256

// Handler serves the API routes. Each conversation id gets its own assistant;
// past maxConversations the least recently used one is dropped.
type Handler struct {
	backend          Backend
	maxHistory       int
	maxConversations int
	now              func() time.Time

	mu            sync.Mutex
	conversations map[string]*session
}

type session struct {
	assistant *assistant.Assistant
	lastUsed  time.Time
}

func NewHandler(b Backend, maxHistory, maxConversations int) *Handler {
	if maxConversations <= 0 {
		maxConversations = DefaultMaxConversations
	}
	return &Handler{
		backend:          b,
		maxHistory:       maxHistory,
		maxConversations: maxConversations,
		now:              time.Now,
		conversations:    make(map[string]*session),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "dataset": h.backend.Info()})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	k := 0
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = n
	}
	resp := h.backend.Search(r.Context(), q, k)
	switch resp.Status {
	case domain.StatusRejected:
		writeJSON(w, http.StatusBadRequest, resp)
	case domain.StatusDegraded:
		writeJSON(w, http.StatusServiceUnavailable, resp)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	c := domain.Criteria{
		Name:       strings.TrimSpace(params.Get("name")),
		Competency: strings.TrimSpace(params.Get("competency")),
		EmployeeID: strings.TrimSpace(params.Get("employee_id")),
	}
	for key, dst := range map[string]**float64{"min": &c.MinNetPay, "max": &c.MaxNetPay} {
		v := params.Get(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, key+" must be a number")
			return
		}
		*dst = &f
	}
	records := h.backend.Filter(c)
	if records == nil {
		records = []domain.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(records), "records": records})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backend.Statistics())
}

// AskRequest is the body of POST /api/ask. An empty ConversationID starts a
// new conversation.
type AskRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// AskResponse wraps the assistant answer with its conversation id.
type AskResponse struct {
	ConversationID string `json:"conversation_id"`
	assistant.Answer
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	a, ok := h.conversation(req.ConversationID)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	ans := a.Ask(r.Context(), req.Message)
	writeJSON(w, http.StatusOK, AskResponse{ConversationID: a.Conversation().ID(), Answer: ans})
}

// ExportConversation returns the history of one conversation.
func (h *Handler) ExportConversation(w http.ResponseWriter, r *http.Request) {
	a, ok := h.conversation(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, a.Conversation().Export())
}

// DeleteConversation forgets a conversation.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.mu.Lock()
	_, ok := h.conversations[id]
	delete(h.conversations, id)
	h.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// conversation looks up id, or starts a new conversation when id is empty.
func (h *Handler) conversation(id string) (*assistant.Assistant, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id != "" {
		s, ok := h.conversations[id]
		if !ok {
			return nil, false
		}
		s.lastUsed = h.now()
		return s.assistant, true
	}
	if len(h.conversations) >= h.maxConversations {
		h.evictOldest()
	}
	a := assistant.New(h.backend, h.maxHistory)
	h.conversations[a.Conversation().ID()] = &session{assistant: a, lastUsed: h.now()}
	return a, true
}

func (h *Handler) evictOldest() {
	var oldest string
	var at time.Time
	for id, s := range h.conversations {
		if oldest == "" || s.lastUsed.Before(at) {
			oldest, at = id, s.lastUsed
		}
	}
	delete(h.conversations, oldest)
	logger.Debug("conversation %s evicted (limit %d)", oldest, h.maxConversations)
}

// Serve runs the API on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("API listening on %s", addr)
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}
