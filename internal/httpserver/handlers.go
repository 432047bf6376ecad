package httpserver

import (
	"fmt"
	"net"
	"net/http"

	authdomain "identity/backend/internal/domain/auth"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.router.Handle("/", http.HandlerFunc(s.handleRoot))
	s.router.Handle("/health", http.HandlerFunc(s.handleHealth))
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router.Handle(s.basePath+"/signup", s.instrument("signup", s.handleSignUp))
	s.router.Handle(s.basePath+"/signin", s.instrument("signin", s.handleSignIn))
	s.router.Handle(s.basePath+"/validate-token", s.instrument("validate-token", s.handleValidateToken))

	me := s.authMiddleware(http.HandlerFunc(s.handleMe))
	s.router.Handle(s.basePath+"/me", s.instrument("me", me.ServeHTTP))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	port := s.addr
	if _, p, err := net.SplitHostPort(s.addr); err == nil {
		port = p
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "The MicroService Auth is running on port %s", port)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		s.metrics.recordOutcome("signup", err)
		s.writeServiceError(w, r, err)
		return
	}

	user, err := s.authService.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	s.metrics.recordOutcome("signup", err)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"msg":  "User registered successfully",
		"user": user,
	})
}

type identitySummary struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"sub"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		s.metrics.recordOutcome("signin", err)
		s.writeServiceError(w, r, err)
		return
	}

	token, user, err := s.authService.Login(r.Context(), authdomain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	s.metrics.recordOutcome("signin", err)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payload":      identitySummary{Name: user.Name, Email: user.Email, Subject: user.ID},
		"access_token": token,
	})
}

type validateResponse struct {
	Success bool               `json:"success"`
	Msg     string             `json:"msg"`
	User    *authdomain.Claims `json:"user,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	token, err := extractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		s.metrics.recordOutcome("validate", err)
		writeJSON(w, statusFor(err), validateResponse{
			Msg:   "No token provided or invalid token format",
			Error: err.Error(),
		})
		return
	}

	claims, err := s.authService.ValidateToken(token)
	s.metrics.recordOutcome("validate", err)
	if err != nil {
		writeJSON(w, statusFor(err), validateResponse{
			Msg:   "Invalid or expired token",
			Error: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Success: true,
		Msg:     "Token is valid",
		User:    claims,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
