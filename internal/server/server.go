// Package server exposes device enumeration and selection over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/devsel"
	"github.com/cwbudde/clkit/internal/errs"
	"github.com/cwbudde/clkit/internal/ocl"
	"github.com/cwbudde/clkit/internal/store"
)

// Server represents the HTTP server
type Server struct {
	session        *ocl.Session
	selections     *SelectionManager
	profiles       store.Store
	defaultFilters []string
	addr           string
	server         *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithProfiles enables the profile routes and the profile/save fields of
// selection requests.
func WithProfiles(st store.Store) Option {
	return func(s *Server) { s.profiles = st }
}

// WithDefaultFilters sets the chain used when a request names none.
func WithDefaultFilters(terms []string) Option {
	return func(s *Server) { s.defaultFilters = terms }
}

// NewServer creates a new HTTP server
func NewServer(addr string, session *ocl.Session, opts ...Option) *Server {
	s := &Server{
		session:        session,
		selections:     NewSelectionManager(),
		defaultFilters: []string{"menu"},
		addr:           addr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Selections returns the selection manager.
func (s *Server) Selections() *SelectionManager { return s.selections }

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/devices", s.handleDevices)
	mux.HandleFunc("/api/v1/selections", s.handleSelections)
	mux.HandleFunc("/api/v1/selections/", s.handleSelectionsWithID)
	mux.HandleFunc("/api/v1/profiles", s.handleProfiles)
	mux.HandleFunc("/api/v1/profiles/", s.handleProfileWithName)
	mux.HandleFunc("/api/v1/registry", s.handleRegistry)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and releases every held
// selection.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	s.selections.broadcaster.Close()

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if rerr := s.selections.ReleaseAll(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// handleDevices handles GET /api/v1/devices
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	devices, err := devsel.Inventory(s.session)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleSelections handles /api/v1/selections
func (s *Server) handleSelections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSelection(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.selections.List())
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	}
}

// handleSelectionsWithID handles /api/v1/selections/:id
func (s *Server) handleSelectionsWithID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/selections/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not_found", "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		sel, exists := s.selections.Get(id)
		if !exists {
			writeError(w, http.StatusNotFound, "selection_not_found", "Selection not found")
			return
		}
		writeJSON(w, http.StatusOK, sel)
	case http.MethodDelete:
		exists, err := s.selections.Release(id)
		if !exists {
			writeError(w, http.StatusNotFound, "selection_not_found", "Selection not found")
			return
		}
		if err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	}
}

// SelectionRequest is the body of POST /api/v1/selections. Filters and
// Profile are exclusive; with neither the server's default chain is used.
type SelectionRequest struct {
	Filters []string `json:"filters,omitempty"`
	Profile string   `json:"profile,omitempty"`
	Save    string   `json:"save,omitempty"` // store the chain under this profile name
}

// handleCreateSelection handles POST /api/v1/selections
func (s *Server) handleCreateSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", fmt.Sprintf("Invalid JSON: %v", err))
		return
	}
	if len(req.Filters) > 0 && req.Profile != "" {
		writeError(w, http.StatusBadRequest, errs.Args.String(), "filters and profile are exclusive")
		return
	}
	if (req.Profile != "" || req.Save != "") && s.profiles == nil {
		writeError(w, http.StatusNotImplemented, "profiles_disabled", "Profiles are not enabled")
		return
	}

	filters := req.Filters
	if req.Profile != "" {
		p, err := s.profiles.Load(req.Profile)
		if err != nil {
			writeErr(w, err)
			return
		}
		filters = p.Filters
	}
	if len(filters) == 0 {
		filters = s.defaultFilters
	}

	// No prompter: an unresolved menu is rejected as invalid arguments.
	chain, err := devsel.ParseChain(filters, nil)
	if err != nil {
		writeErr(w, err)
		return
	}
	sel, err := devsel.Select(s.session, chain)
	if err != nil {
		writeErr(w, err)
		return
	}

	held, err := s.selections.Hold(filters, req.Profile, sel)
	if err != nil {
		writeErr(w, err)
		return
	}

	if req.Save != "" {
		p := store.NewProfile(req.Save, filters, held.Identities())
		if err := s.profiles.Save(p); err != nil {
			_, _ = s.selections.Release(held.ID)
			writeErr(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, held)
}

// handleProfiles handles GET /api/v1/profiles
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}
	if s.profiles == nil {
		writeError(w, http.StatusNotImplemented, "profiles_disabled", "Profiles are not enabled")
		return
	}

	infos, err := s.profiles.List()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleProfileWithName handles /api/v1/profiles/:name
func (s *Server) handleProfileWithName(w http.ResponseWriter, r *http.Request) {
	if s.profiles == nil {
		writeError(w, http.StatusNotImplemented, "profiles_disabled", "Profiles are not enabled")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/profiles/")

	switch r.Method {
	case http.MethodGet:
		p, err := s.profiles.Load(name)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := s.profiles.Delete(name); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	}
}

// RegistryStatus is the body of GET /api/v1/registry.
type RegistryStatus struct {
	Live       int            `json:"live"`
	Kinds      map[string]int `json:"kinds"`
	Wrappers   []string       `json:"wrappers"`
	Selections int            `json:"selections"`
}

// handleRegistry handles GET /api/v1/registry
func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	reg := s.session.Registry()
	kinds := make(map[string]int)
	for k, n := range reg.Counts() {
		kinds[k.String()] = n
	}
	_, live := reg.Memcheck()
	if live == nil {
		live = []string{}
	}

	writeJSON(w, http.StatusOK, RegistryStatus{
		Live:       reg.Len(),
		Kinds:      kinds,
		Wrappers:   live,
		Selections: s.selections.Len(),
	})
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

// writeErr maps an error to its status code and error name.
func writeErr(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}
	writeError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	var verr *store.ValidationError
	switch {
	case store.IsNotFound(err):
		return http.StatusNotFound, "profile_not_found"
	case errors.As(err, &verr):
		return http.StatusBadRequest, "invalid_profile"
	case errors.Is(err, cl.ErrNative):
		return http.StatusBadGateway, "native_error"
	}

	code := errs.CodeOf(err)
	switch code {
	case errs.Args:
		return http.StatusBadRequest, code.String()
	case errs.DeviceNotFound:
		return http.StatusNotFound, code.String()
	case errs.NoPlatforms:
		return http.StatusServiceUnavailable, code.String()
	case errs.InfoUnavailable, errs.UnsupportedOCL:
		return http.StatusUnprocessableEntity, code.String()
	}
	return http.StatusInternalServerError, code.String()
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
