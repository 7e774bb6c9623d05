//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/smartplate/redistribution/internal/geo"
	"github.com/smartplate/redistribution/internal/leaderboard"
	"github.com/smartplate/redistribution/internal/lifecycle"
	"github.com/smartplate/redistribution/internal/scoring"
	"github.com/smartplate/redistribution/internal/storage"
)

type Service interface {
	CreateRequest(ctx context.Context, req storage.Request) (*storage.Request, error)
	GetRequest(ctx context.Context, id string) (*storage.Request, error)
	GetRequestHistory(ctx context.Context, id string) ([]storage.HistoryEntry, error)
	ListEligibleMatches(ctx context.Context, id string, role storage.Role) ([]storage.Match, error)
	SubmitLifecycleEvent(ctx context.Context, id string, event lifecycle.Event, payload lifecycle.Payload) (*storage.Request, error)
	UpsertCandidate(ctx context.Context, c storage.Candidate) error
	UpsertNGO(ctx context.Context, ngo storage.NGO) error
}

type Leaderboard interface {
	Standings(ctx context.Context, role storage.Role) ([]leaderboard.Entry, error)
	Impact() leaderboard.Impact
}

type UserRepo interface {
	ValidateUser(ctx context.Context, username, password string) (bool, error)
}

type Server struct {
	service  Service
	board    Leaderboard
	userRepo UserRepo
	audit    *AuditManager
	logger   *zap.Logger
	server   *http.Server
	timeNow  func() time.Time
}

func New(service Service, board Leaderboard, userRepo UserRepo, audit *AuditManager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = NewAuditManager(2, 5, 500*time.Millisecond, logger)
	}
	return &Server{
		service:  service,
		board:    board,
		userRepo: userRepo,
		audit:    audit,
		logger:   logger.With(zap.String("component", "http")),
		timeNow:  defaultTimeNow,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port string) error {
	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.audit.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("port", port))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("HTTP server shutdown completed")

	s.audit.Shutdown(ctx)
	s.logger.Info("Server shutdown completed successfully")
	return nil
}

// Handler returns the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	accessLog := zap.NewStdLog(s.logger.Named("access")).Writer()
	recoveryLog := zap.NewStdLog(s.logger.Named("recovery"))

	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLog))(
		handlers.CombinedLoggingHandler(accessLog, s.setupRoutes()),
	)
}

func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet).Name("handleHealth")
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name("metrics")

	router.HandleFunc("/requests/{id}", s.handleGetRequest).Methods(http.MethodGet).Name("handleGetRequest")
	router.HandleFunc("/requests/{id}/matches", s.handleListMatches).Methods(http.MethodGet).Name("handleListMatches")
	router.HandleFunc("/requests/{id}/history", s.handleRequestHistory).Methods(http.MethodGet).Name("handleRequestHistory")
	router.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet).Name("handleLeaderboard")
	router.HandleFunc("/impact", s.handleImpact).Methods(http.MethodGet).Name("handleImpact")

	writes := router.NewRoute().Subrouter()
	// Audit runs after auth so anonymous calls never reach the service.
	writes.Use(s.basicAuthMiddleware)
	writes.Use(s.auditLogMiddleware)
	writes.Use(jsonContentType)
	writes.HandleFunc("/requests", s.handleCreateRequest).Methods(http.MethodPost).Name("handleCreateRequest")
	writes.HandleFunc("/requests/{id}/events", s.handleSubmitEvent).Methods(http.MethodPost).Name("handleSubmitEvent")
	writes.HandleFunc("/candidates/{id}", s.handleUpsertCandidate).Methods(http.MethodPut).Name("handleUpsertCandidate")
	writes.HandleFunc("/ngos/{id}", s.handleUpsertNGO).Methods(http.MethodPut).Name("handleUpsertNGO")

	return router
}

func jsonContentType(next http.Handler) http.Handler {
	return handlers.ContentTypeHandler(next, "application/json")
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		valid, err := s.userRepo.ValidateUser(r.Context(), username, password)
		if err != nil {
			s.logger.Error("failed to validate user", zap.String("username", username), zap.Error(err))
		}
		if err != nil || !valid {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, geo.ErrInvalidCoordinate),
		errors.Is(err, scoring.ErrUnknownFoodCategory),
		errors.Is(err, storage.ErrUnknownUrgency),
		errors.Is(err, storage.ErrUnknownRole),
		errors.Is(err, storage.ErrInvalidRequest),
		errors.Is(err, lifecycle.ErrMissingProof),
		errors.Is(err, lifecycle.ErrUnknownEvent):
		return http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrUnverifiedNGO):
		return http.StatusForbidden
	case errors.Is(err, lifecycle.ErrInvalidMatch),
		errors.Is(err, lifecycle.ErrInvalidStateTransition),
		errors.Is(err, leaderboard.ErrOutOfOrderEvent),
		errors.Is(err, storage.ErrConcurrentUpdate),
		errors.Is(err, storage.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, status, "Error: internal error")
		return
	}
	respondError(w, status, "Error: "+err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createRequestBody struct {
	ID           string    `json:"id"`
	NGOID        string    `json:"ngo_id"`
	Title        string    `json:"title"`
	Location     geo.Point `json:"location"`
	Quantity     float64   `json:"quantity"`
	Unit         string    `json:"unit"`
	FoodCategory string    `json:"food_category"`
	Urgency      string    `json:"urgency"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	urgency, err := storage.ParseUrgency(body.Urgency)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Error: "+err.Error())
		return
	}

	created, err := s.service.CreateRequest(r.Context(), storage.Request{
		ID:           body.ID,
		NGOID:        body.NGOID,
		Title:        body.Title,
		Location:     body.Location,
		Quantity:     body.Quantity,
		Unit:         body.Unit,
		FoodCategory: body.FoodCategory,
		Urgency:      urgency,
		ExpiresAt:    body.ExpiresAt.UTC(),
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.service.GetRequest(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	var role storage.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := storage.ParseRole(raw)
		if err != nil || (parsed != storage.RoleDonor && parsed != storage.RoleVolunteer) {
			respondError(w, http.StatusBadRequest, "Invalid value for 'role' parameter")
			return
		}
		role = parsed
	}

	matches, err := s.service.ListEligibleMatches(r.Context(), mux.Vars(r)["id"], role)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, matches)
}

func (s *Server) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Event string `json:"event"`
		lifecycle.Payload
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := lifecycle.ParseEvent(body.Event)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Error: "+err.Error())
		return
	}

	updated, err := s.service.SubmitLifecycleEvent(r.Context(), mux.Vars(r)["id"], event, body.Payload)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleRequestHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.GetRequestHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []storage.HistoryEntry{}
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleUpsertCandidate(w http.ResponseWriter, r *http.Request) {
	var c storage.Candidate
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c.ID = mux.Vars(r)["id"]
	c.Role = storage.Role(strings.ToLower(string(c.Role)))

	if err := s.service.UpsertCandidate(r.Context(), c); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Candidate saved",
		"id":      c.ID,
	})
}

func (s *Server) handleUpsertNGO(w http.ResponseWriter, r *http.Request) {
	var ngo storage.NGO
	if err := json.NewDecoder(r.Body).Decode(&ngo); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ngo.ID = mux.Vars(r)["id"]

	if err := s.service.UpsertNGO(r.Context(), ngo); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "NGO saved",
		"id":      ngo.ID,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	var role storage.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := storage.ParseRole(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid value for 'role' parameter")
			return
		}
		role = parsed
	}

	entries, err := s.board.Standings(r.Context(), role)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleImpact(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.board.Impact())
}
