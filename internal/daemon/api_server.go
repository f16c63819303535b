package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bandstand/internal/api"
	"bandstand/internal/config"
	"bandstand/internal/logging"
	"bandstand/internal/services"
)

const maxRequestBytes = 1 << 20

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}

	srv := &apiServer{
		bind:   bind,
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/status", srv.auth(srv.handleStatus))
	mux.HandleFunc("/api/research", srv.auth(srv.handleResearch))
	mux.HandleFunc("/api/research/status", srv.auth(srv.handleResearchStatus))
	mux.HandleFunc("/api/research/jobs", srv.auth(srv.handleJobs))
	mux.HandleFunc("/api/duplicates", srv.auth(srv.handleDuplicates))
	mux.HandleFunc("/api/merge", srv.auth(srv.handleMerge))
	mux.HandleFunc("/api/fields/curated", srv.auth(srv.handleCurate))
	mux.HandleFunc("/api/fields/curated/clear", srv.auth(srv.handleCurateClear))
	mux.HandleFunc("/api/refs/verify", srv.auth(srv.handleRefVerify))
	mux.HandleFunc("/api/refs/purge", srv.auth(srv.handleRefPurge))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// auth validates bearer tokens when one is configured; without a token all
// requests pass through. Every authenticated request gets a correlation id
// so its log lines can be tied together.
func (s *apiServer) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.token {
				s.writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		next(w, r.WithContext(services.WithRequestID(r.Context(), requestID)))
	}
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Research:     api.FromSnapshot(status.Research, status.LastError),
		Library:      api.FromLibraryStats(status.Library),
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleResearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.EnqueueRequest
	if !s.decode(w, r, &req) {
		return
	}
	job, err := s.daemon.orchestrator.Enqueue(r.Context(), req.EntityType, req.EntityID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	queueSize, err := s.daemon.orchestrator.Jobs().QueueSize(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.EnqueueResponse{Job: api.FromJob(job), QueueSize: queueSize})
}

func (s *apiServer) handleResearchStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snapshot, err := s.daemon.orchestrator.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSnapshot(snapshot, s.daemon.orchestrator.LastError()))
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 50
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	jobs, err := s.daemon.orchestrator.Jobs().ListJobs(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(jobs)})
}

func (s *apiServer) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	songID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("song_id")), 10, 64)
	if err != nil || songID <= 0 {
		s.writeError(w, http.StatusBadRequest, "song_id required")
		return
	}
	groups, err := s.daemon.resolver.FindCandidates(r.Context(), songID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DuplicateListResponse{Groups: api.FromGroups(groups)})
}

func (s *apiServer) handleMerge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.MergeRequest
	if !s.decode(w, r, &req) {
		return
	}
	report, err := s.daemon.resolver.Merge(r.Context(), req.MasterID, req.DuplicateIDs)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromReport(report))
}

func (s *apiServer) handleCurate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.CurateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.daemon.fields.SetCurated(r.Context(), req.EntityType, req.EntityID, req.Field, req.Value, req.CuratedBy); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "curated"})
}

func (s *apiServer) handleCurateClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.CurateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.daemon.fields.ClearCurated(r.Context(), req.EntityType, req.EntityID, req.Field); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *apiServer) handleRefVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.RefRequest
	if !s.decode(w, r, &req) {
		return
	}
	refID, err := s.resolveRefID(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if req.Destructive {
		purged, verdict, err := s.daemon.checker.Purge(r.Context(), refID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		payload := api.FromVerdict(verdict)
		payload.Purged = purged
		s.writeJSON(w, http.StatusOK, payload)
		return
	}
	verdict, err := s.daemon.checker.VerifyByID(r.Context(), refID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromVerdict(verdict))
}

// resolveRefID accepts either a direct ref id or the entity/catalog pair
// that identifies the reference.
func (s *apiServer) resolveRefID(ctx context.Context, req api.RefRequest) (int64, error) {
	if req.RefID > 0 {
		return req.RefID, nil
	}
	if req.EntityType == "" || req.EntityID <= 0 || req.Catalog == "" {
		return 0, services.Wrap(services.ErrValidation, "api", "resolve_ref",
			"refId or entityType/entityId/catalog required", nil)
	}
	ref, err := s.daemon.store.RefForCatalog(ctx, req.EntityType, req.EntityID, req.Catalog)
	if err != nil {
		return 0, err
	}
	if ref == nil {
		// The catalog group may hold conflicting identifiers; that needs an
		// explicit refId, never a silent pick.
		refs, err := s.daemon.store.RefsForEntity(ctx, req.EntityType, req.EntityID)
		if err != nil {
			return 0, err
		}
		for _, candidate := range refs {
			if candidate.Catalog == req.Catalog && candidate.Ambiguous {
				return 0, services.Wrap(services.ErrAmbiguousReference, "api", "resolve_ref",
					fmt.Sprintf("%s %d holds conflicting %s references, address one by refId",
						req.EntityType, req.EntityID, req.Catalog), nil)
			}
		}
		return 0, services.Wrap(services.ErrNotFound, "api", "resolve_ref",
			fmt.Sprintf("%s %d has no %s reference", req.EntityType, req.EntityID, req.Catalog), nil)
	}
	return ref.ID, nil
}

func (s *apiServer) handleRefPurge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.RefRequest
	if !s.decode(w, r, &req) {
		return
	}
	refID, err := s.resolveRefID(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	purged, verdict, err := s.daemon.checker.Purge(r.Context(), refID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	payload := api.FromVerdict(verdict)
	payload.Purged = purged
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(target); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps the error taxonomy onto HTTP statuses.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAmbiguousReference), errors.Is(err, services.ErrMergeConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrExternalUnavailable):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
