package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eugenenazirov/dispatcher2-web/internal/config"
	"github.com/eugenenazirov/dispatcher2-web/internal/session"
)

type contextKey string

const (
	requestIDContextKey contextKey = "requestID"
	claimsContextKey    contextKey = "sessionClaims"
)

const healthPingTimeout = 2 * time.Second

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler wires the settings, session manager and database into HTTP handlers.
type Handler struct {
	settings config.Config
	sessions *session.Manager
	db       Pinger

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithSessions enables session protected endpoints.
func WithSessions(m *session.Manager) HandlerOption {
	return func(h *Handler) {
		h.sessions = m
	}
}

// WithDatabase attaches a database whose reachability is reported by /api/health.
func WithDatabase(db Pinger) HandlerOption {
	return func(h *Handler) {
		h.db = db
	}
}

// NewHandler constructs a Handler serving the provided settings.
func NewHandler(settings config.Config, opts ...HandlerOption) *Handler {
	h := &Handler{
		settings: settings,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		resp.Database = "ok"
		if err := h.db.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unavailable"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	entries := h.settings.Entries()
	items, totalPages := paginate(entries, page, h.settings.PageLimit)

	resp := settingsResponse{
		Items:      make([]settingItem, 0, len(items)),
		Page:       page,
		PageSize:   h.settings.PageLimit,
		Total:      len(entries),
		TotalPages: totalPages,
		Source:     h.settings.Source,
	}
	for _, e := range items {
		resp.Items = append(resp.Items, settingItem{
			Key:    e.Key,
			Value:  e.Display(),
			Secret: e.Secret,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "missing session")
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// requireSession rejects requests without a valid bearer session token.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.sessions == nil {
			writeError(w, http.StatusServiceUnavailable, "Sessions disabled", "secret key is not configured")
			return
		}

		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}

		claims, err := h.sessions.Validate(raw)
		if err != nil {
			if errors.Is(err, session.ErrExpired) {
				writeError(w, http.StatusUnauthorized, "Session expired", err.Error(), "request a new token and retry")
				return
			}
			writeError(w, http.StatusUnauthorized, "Unauthorized", "invalid session token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// parsePage reads the 1-based page query parameter.
func parsePage(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, errors.New("page must be a positive integer")
	}
	return page, nil
}

// paginate returns the slice for page along with the page count.
func paginate[T any](items []T, page, limit int) ([]T, int) {
	if limit <= 0 {
		limit = len(items)
	}
	if len(items) == 0 || limit == 0 {
		return nil, 0
	}

	totalPages := (len(items) + limit - 1) / limit
	if page < 1 || page > totalPages {
		return nil, totalPages
	}
	start := (page - 1) * limit
	end := min(start+limit, len(items))
	return items[start:end], totalPages
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func claimsFromContext(ctx context.Context) *session.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*session.Claims)
	return claims
}

type settingItem struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Secret bool   `json:"secret,omitempty"`
}

type settingsResponse struct {
	Items      []settingItem `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
	Source     string        `json:"source,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database,omitempty"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}
