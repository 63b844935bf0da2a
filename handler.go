package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stock-scout/config"
	"stock-scout/marketdata"
	"stock-scout/models"
	"stock-scout/services"

	"github.com/google/uuid"
)

// APIHandler handles HTTP API requests
type APIHandler struct {
	app *App
	cfg *config.Config
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(app *App, cfg *config.Config) *APIHandler {
	return &APIHandler{app: app, cfg: cfg}
}

// maxRequestBody caps POST bodies at 1 MiB
const maxRequestBody = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	return json.NewDecoder(r.Body).Decode(dst)
}

// ChatRequest represents an incoming chat message. History lets stateless
// clients supply prior turns when no database holds them.
type ChatRequest struct {
	Message        string               `json:"message"`
	UserID         string               `json:"user_id"`
	ConversationID string               `json:"conversation_id,omitempty"`
	History        []models.ChatMessage `json:"history,omitempty"`
}

// QueryRequest carries a natural language query for the screening and
// parse endpoints
type QueryRequest struct {
	Query string `json:"query"`
}

// handleHealth returns the health status of the application
func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "unknown",
			"cache":    string(h.app.cache.State()),
		},
	}

	svc := status["services"].(map[string]string)
	if h.app.repo != nil {
		if err := h.app.repo.Health(r.Context()); err == nil {
			svc["database"] = "connected"
		} else {
			svc["database"] = "disconnected"
			status["status"] = "degraded"
		}
	} else {
		svc["database"] = "not_configured"
	}

	if h.app.cache.State() == marketdata.StateEmpty {
		status["status"] = "degraded"
	}

	if breakers := services.GetGlobalRegistry().Status(); len(breakers) > 0 {
		status["breakers"] = breakers
	}

	h.jsonResponse(w, status)
}

// handleChat runs a user message through the full conversational pipeline
func (h *APIHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		h.jsonError(w, "Message is required", http.StatusBadRequest)
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = "anonymous"
	}

	conversationID, isNew, err := h.resolveConversationID(req.ConversationID)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var history []models.ChatMessage
	if h.app.repo != nil && !isNew {
		entries, err := h.app.repo.GetConversation(r.Context(), userID, conversationID, 20)
		if err == nil {
			for _, e := range entries {
				history = append(history, models.ChatMessage{Role: e.Role, Content: e.Content})
			}
		}
	}
	// Stored history wins; client-supplied turns fill in when there is none.
	if len(history) == 0 {
		history = req.History
	}

	reply, err := h.app.orchestrator.Respond(r.Context(), userID, conversationID, req.Message, history)
	if err != nil {
		h.snapshotAwareError(w, err)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"conversation_id": conversationID.String(),
		"response":        reply.Response,
		"data":            reply.Data,
	})
}

// handleScreen interprets a natural language query and executes the
// resulting screen in one call, without chat history or persistence
func (h *APIHandler) handleScreen(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		h.jsonError(w, "Query is required", http.StatusBadRequest)
		return
	}

	result := h.app.interp.Interpret(r.Context(), req.Query, nil)
	if result.Reply != "" {
		h.jsonError(w, "Query is conversational, use /api/chat", http.StatusBadRequest)
		return
	}

	reply, err := h.app.orchestrator.Screen(r.Context(), *result.Spec)
	if err != nil {
		h.snapshotAwareError(w, err)
		return
	}

	h.jsonResponse(w, reply)
}

// handleScreenSpec executes an already structured specification directly,
// bypassing natural language interpretation
func (h *APIHandler) handleScreenSpec(w http.ResponseWriter, r *http.Request) {
	var spec models.QuerySpecification
	if err := decodeBody(w, r, &spec); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if spec.Intent != "" && !spec.Intent.IsValid() {
		h.jsonError(w, fmt.Sprintf("Unknown intent %q", spec.Intent), http.StatusBadRequest)
		return
	}
	for _, f := range spec.Filters {
		if !f.Operator.IsValid() {
			h.jsonError(w, fmt.Sprintf("Unknown operator %q", f.Operator), http.StatusBadRequest)
			return
		}
	}

	reply, err := h.app.orchestrator.Screen(r.Context(), spec)
	if err != nil {
		h.snapshotAwareError(w, err)
		return
	}

	h.jsonResponse(w, reply)
}

// handleParse interprets a query into a specification without executing it
func (h *APIHandler) handleParse(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		h.jsonError(w, "Query is required", http.StatusBadRequest)
		return
	}

	result := h.app.interp.Interpret(r.Context(), req.Query, nil)
	if result.Reply != "" {
		h.jsonResponse(w, map[string]interface{}{"reply": result.Reply})
		return
	}

	h.jsonResponse(w, map[string]interface{}{"specification": result.Spec})
}

// handleRefresh forces an immediate snapshot rebuild
func (h *APIHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	snap, err := h.app.cache.Refresh(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"status":      "refreshed",
		"snapshot_id": snap.ID.String(),
		"records":     snap.Size(),
		"duration_ms": time.Since(started).Milliseconds(),
	})
}

// handleGetSnapshot reports the current snapshot without rebuilding
func (h *APIHandler) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.app.cache.Current(r.Context())
	if err != nil {
		h.snapshotAwareError(w, err)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"snapshot_id": snap.ID.String(),
		"captured_at": snap.CapturedAt,
		"age_seconds": int(snap.Age().Seconds()),
		"records":     snap.Size(),
		"state":       string(h.app.cache.State()),
	})
}

// handleGetSnapshotBuilds returns the recent snapshot build audit trail
func (h *APIHandler) handleGetSnapshotBuilds(w http.ResponseWriter, r *http.Request) {
	if h.app.repo == nil {
		h.jsonError(w, "Database not configured", http.StatusServiceUnavailable)
		return
	}

	limit := h.parseLimitParam(r, 20)
	builds, err := h.app.repo.GetRecentSnapshotBuilds(r.Context(), limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, builds)
}

// handleGetConversation returns stored history for one conversation
func (h *APIHandler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	if h.app.repo == nil {
		h.jsonError(w, "Database not configured", http.StatusServiceUnavailable)
		return
	}

	conversationID, err := uuid.Parse(r.URL.Query().Get("conversation_id"))
	if err != nil {
		h.jsonError(w, "Invalid conversation_id", http.StatusBadRequest)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	limit := h.parseLimitParam(r, 50)
	entries, err := h.app.repo.GetConversation(r.Context(), userID, conversationID, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, entries)
}

// handleListConversations returns a user's recent conversation ids
func (h *APIHandler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	if h.app.repo == nil {
		h.jsonError(w, "Database not configured", http.StatusServiceUnavailable)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	limit := h.parseLimitParam(r, 20)
	ids, err := h.app.repo.GetRecentConversations(r.Context(), userID, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]interface{}{"conversations": ids})
}

// Helper functions

func (h *APIHandler) resolveConversationID(raw string) (uuid.UUID, bool, error) {
	if raw == "" {
		return uuid.New(), true, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("invalid conversation_id")
	}
	return id, false, nil
}

func (h *APIHandler) snapshotAwareError(w http.ResponseWriter, err error) {
	if errors.Is(err, marketdata.ErrSnapshotUnavailable) {
		h.jsonError(w, "Market data is not available yet, try again shortly", http.StatusServiceUnavailable)
		return
	}
	h.jsonError(w, err.Error(), http.StatusInternalServerError)
}

func (h *APIHandler) parseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func (h *APIHandler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *APIHandler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
