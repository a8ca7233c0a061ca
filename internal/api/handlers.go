/**
 * @description
 * HTTP handler functions for the generation-service. Handlers parse incoming
 * requests, call the generation service, and translate its error taxonomy
 * into HTTP status codes. Provider detail is logged server-side only.
 */
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aihub/generation-service/internal/app"
	"github.com/aihub/generation-service/internal/domain"
)

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service *app.Service
	logger  *slog.Logger
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service *app.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// handleChat handles POST /api/chat.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Chat(r.Context(), userID, req.Messages)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// handleCode handles POST /api/code.
func (h *Handler) handleCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req domain.CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Code(r.Context(), userID, req.Messages, req.Language)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// handleImage handles POST /api/image.
func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req domain.ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Image(r.Context(), userID, req.Prompt, string(req.Amount), req.Resolution)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// handleMusic handles POST /api/music. The success response is the raw audio
// payload, not JSON.
func (h *Handler) handleMusic(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req domain.PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}

	audio, err := h.service.Music(r.Context(), userID, req.Prompt)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	contentType := audio.ContentType
	if contentType == "" {
		contentType = "audio/wav"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(audio.Data)
}

// handleVideo handles POST /api/video.
func (h *Handler) handleVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req domain.PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Video(r.Context(), userID, req.Prompt)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// handleGetLimit handles GET /api/limit, the usage snapshot the frontend
// polls for the free-tier counter and the upgrade modal.
func (h *Handler) handleGetLimit(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	status, err := h.service.UsageStatus(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// quotaExceededResponse carries enough information for the client to present
// an upgrade path alongside the rejection.
type quotaExceededResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Upgrade bool   `json:"upgrade"`
}

// respondError translates service errors into the HTTP error taxonomy.
// Anything outside the taxonomy (datastore failures included) becomes a
// generic 500 so entitlement is never silently granted and no provider or
// database detail leaks to the client.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrUnauthenticated):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, app.ErrInvalidRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, app.ErrQuotaExceeded):
		respondWithJSON(w, http.StatusForbidden, quotaExceededResponse{
			Error:   "Free trial has expired. Please upgrade to pro.",
			Code:    "quota_exceeded",
			Upgrade: true,
		})
	case errors.Is(err, app.ErrProviderFailure):
		http.Error(w, "Internal Error", http.StatusInternalServerError)
	default:
		h.logger.Error("unhandled service error", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
