package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"livegate/internal/identity"
	viewerreg "livegate/internal/registry"
	"livegate/pkg/interfaces"
	"livegate/pkg/types"
)

// ConnectionCounter reports live socket totals without coupling the HTTP
// layer to the WebSocket registry implementation.
type ConnectionCounter interface {
	Count() int
}

// ARCHITECTURAL DISCOVERY: HTTP API layer is a pure interface between
// operators and internal components. No business logic, only HTTP handling
// and JSON serialization.
type Server struct {
	store     interfaces.Store
	viewers   *viewerreg.Viewers
	conns     ConnectionCounter
	tokens    *identity.TokenService
	router    *http.ServeMux
	startedAt time.Time
}

func NewServer(store interfaces.Store, viewers *viewerreg.Viewers, conns ConnectionCounter, tokens *identity.TokenService) *Server {
	s := &Server{
		store:     store,
		viewers:   viewers,
		conns:     conns,
		tokens:    tokens,
		router:    http.NewServeMux(),
		startedAt: time.Now(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.healthCheck))))
	s.router.Handle("/api/channels", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleChannels))))
	s.router.Handle("/api/stats", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleStats))))
	s.router.Handle("/api/tokens", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleTokens))))
	s.router.Handle("/api/moderation/", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleModeration))))
	s.router.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Uptime    string    `json:"uptime"`
}

type ChannelsResponse struct {
	Channels []types.ChannelStat `json:"channels"`
}

type StatsResponse struct {
	Connections int `json:"connections"`
	Channels    int `json:"channels"`
	Viewers     int `json:"viewers"`
}

type TokenRequest struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type ModerationRequest struct {
	Status types.ModerationStatus `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GET /health - store connectivity plus process uptime.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "healthy"
	if err := s.store.HealthCheck(ctx); err != nil {
		status = "unhealthy"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Database:  dbStatus,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
	}

	if status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(response)
}

// GET /api/channels - active channels with viewer counts.
func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	channels, err := s.viewers.Channels(r.Context())
	if err != nil {
		s.sendError(w, "Failed to list channels", http.StatusInternalServerError)
		return
	}
	if channels == nil {
		channels = []types.ChannelStat{}
	}

	json.NewEncoder(w).Encode(ChannelsResponse{Channels: channels})
}

// GET /api/stats - connection and viewer totals.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	channels, err := s.viewers.Channels(r.Context())
	if err != nil {
		s.sendError(w, "Failed to gather stats", http.StatusInternalServerError)
		return
	}

	viewerTotal := 0
	for _, ch := range channels {
		viewerTotal += ch.ViewerCount
	}

	json.NewEncoder(w).Encode(StatsResponse{
		Connections: s.conns.Count(),
		Channels:    len(channels),
		Viewers:     viewerTotal,
	})
}

// POST /api/tokens - mint a connect token for a user.
// FUNCTIONAL DISCOVERY: In production the upstream identity system issues
// tokens; this endpoint keeps local development and integration tests
// self-contained.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		s.sendError(w, "userId is required", http.StatusBadRequest)
		return
	}

	token, err := s.tokens.Generate(&types.UserProfile{
		ID:          req.UserID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		s.sendError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(TokenResponse{Token: token})
}

// PUT /api/moderation/{userID} - set a user's moderation status. The change
// takes effect on the user's next message because identity is re-resolved
// per message.
func (s *Server) handleModeration(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/api/moderation/")
	if userID == "" || strings.Contains(userID, "/") {
		s.sendError(w, "User ID required", http.StatusBadRequest)
		return
	}

	if r.Method != http.MethodPut {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ModerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case types.StatusActive, types.StatusSuspended, types.StatusBanned:
	default:
		s.sendError(w, "Invalid moderation status", http.StatusBadRequest)
		return
	}

	if err := s.store.SetModerationStatus(r.Context(), userID, req.Status); err != nil {
		if err == interfaces.ErrUserNotFound {
			s.sendError(w, "User not found", http.StatusNotFound)
			return
		}
		s.sendError(w, "Failed to update moderation status", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"userId": userID,
		"status": string(req.Status),
	})
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

// ARCHITECTURAL DISCOVERY: CORS middleware enables web client access.
// Allows all origins in development, would be restricted in production.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
