package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store backend unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth endpoints

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret  string `json:"secret"`
		Subject string `json:"subject"`
		Admin   bool   `json:"admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !s.authAdapter.VerifySecret(req.Secret) {
		writeError(w, http.StatusUnauthorized, "invalid API secret")
		return
	}

	// Without a configured secret, anyone could claim admin.
	if req.Admin && !s.authAdapter.SecretConfigured() {
		writeError(w, http.StatusForbidden, "admin tokens require a configured API secret")
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = "api-client"
	}
	token, err := s.authAdapter.GenerateToken(subject, req.Admin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Analysis endpoints

type analyzeRequest struct {
	Identifier   string `json:"identifier"` // profile URL or ID
	Language     string `json:"language,omitempty"`
	ForceRefresh bool   `json:"forceRefresh,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := s.analysisService.Analyze(r.Context(), req.Identifier, req.Language, req.ForceRefresh)
	if !result.Success {
		writeJSON(w, statusForError(result.Err), result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type optimizeRequest struct {
	UserID   string `json:"userId,omitempty"`
	Section  string `json:"section"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := s.optimizerService.OptimizeSection(r.Context(), req.UserID, req.Section, req.Content, req.Language)
	if !result.Success {
		writeJSON(w, statusForError(result.Err), result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	user, err := s.adminService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not load profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Admin endpoints

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	cursor := r.URL.Query().Get("cursor")

	page, err := s.adminService.ListUsers(r.Context(), limit, cursor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list profiles")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCountProfiles(w http.ResponseWriter, r *http.Request) {
	count, err := s.adminService.CountUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not count profiles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if err := s.adminService.DeleteUser(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "could not delete profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Helpers

// statusForError maps the typed failure carried by a result object to an
// HTTP status.
func statusForError(err error) int {
	var storeErr *domain.StoreError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrScrapeFailed),
		errors.Is(err, domain.ErrNoProfileData),
		errors.Is(err, domain.ErrAIFailed):
		return http.StatusBadGateway
	case errors.As(err, &storeErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
