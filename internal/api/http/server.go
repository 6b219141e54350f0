package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"debridops/internal/app"
	"debridops/internal/domain"
	domainports "debridops/internal/domain/ports"
	"debridops/internal/usecase"
)

type ExecuteBulkUseCase interface {
	Execute(ctx context.Context, input usecase.ExecuteBulkOperationInput) (domain.BulkProgress, error)
}

type CancelBulkUseCase interface {
	Execute(ctx context.Context, id domain.OperationID) error
}

type ListActiveOperationsUseCase interface {
	Execute(ctx context.Context) []domain.BulkProgress
}

type GetOperationProgressUseCase interface {
	Execute(ctx context.Context, id domain.OperationID) (domain.BulkProgress, error)
}

type ListOperationHistoryUseCase interface {
	Execute(ctx context.Context, filter domain.OperationFilter) ([]domain.OperationRecord, error)
}

type SyncLibraryUseCase interface {
	Execute(ctx context.Context) (int, error)
}

type BulkSettingsController interface {
	Get() app.BulkSettings
	Update(settings app.BulkSettings) error
}

type CacheSettingsController interface {
	Get() app.CacheSettings
	Update(settings app.CacheSettings) error
}

// PingFunc probes one backing component for the health endpoint.
type PingFunc func(ctx context.Context) error

type Server struct {
	executeBulk   ExecuteBulkUseCase
	cancelBulk    CancelBulkUseCase
	listActive    ListActiveOperationsUseCase
	getProgress   GetOperationProgressUseCase
	listHistory   ListOperationHistoryUseCase
	syncLibrary   SyncLibraryUseCase
	files         domainports.FileRepository
	bulkSettings  BulkSettingsController
	cacheSettings CacheSettingsController

	mongoPing  PingFunc
	cachePing  PingFunc
	debridPing PingFunc

	allowedOrigins []string
	rateLimitRPS   float64
	rateLimitBurst int

	logger  *slog.Logger
	handler http.Handler
	wsHub   *wsHub
}

type ServerOption func(*Server)

func WithCancelBulk(uc CancelBulkUseCase) ServerOption {
	return func(s *Server) { s.cancelBulk = uc }
}

func WithListActiveOperations(uc ListActiveOperationsUseCase) ServerOption {
	return func(s *Server) { s.listActive = uc }
}

func WithGetOperationProgress(uc GetOperationProgressUseCase) ServerOption {
	return func(s *Server) { s.getProgress = uc }
}

func WithListOperationHistory(uc ListOperationHistoryUseCase) ServerOption {
	return func(s *Server) { s.listHistory = uc }
}

func WithSyncLibrary(uc SyncLibraryUseCase) ServerOption {
	return func(s *Server) { s.syncLibrary = uc }
}

func WithFileRepository(repo domainports.FileRepository) ServerOption {
	return func(s *Server) { s.files = repo }
}

func WithBulkSettings(ctrl BulkSettingsController) ServerOption {
	return func(s *Server) { s.bulkSettings = ctrl }
}

func WithCacheSettings(ctrl CacheSettingsController) ServerOption {
	return func(s *Server) { s.cacheSettings = ctrl }
}

func WithMongoPing(ping PingFunc) ServerOption {
	return func(s *Server) { s.mongoPing = ping }
}

func WithCachePing(ping PingFunc) ServerOption {
	return func(s *Server) { s.cachePing = ping }
}

func WithDebridPing(ping PingFunc) ServerOption {
	return func(s *Server) { s.debridPing = ping }
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) { s.allowedOrigins = origins }
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateLimitRPS = rps
		s.rateLimitBurst = burst
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

func NewServer(executeBulk ExecuteBulkUseCase, opts ...ServerOption) *Server {
	s := &Server{
		executeBulk:    executeBulk,
		rateLimitRPS:   100,
		rateLimitBurst: 200,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/operations", s.handleOperations)
	mux.HandleFunc("/operations/", s.handleOperationByID)
	mux.HandleFunc("/files", s.handleFiles)
	mux.HandleFunc("/files/sync", s.handleFilesSync)
	mux.HandleFunc("/settings/bulk", s.handleBulkSettings)
	mux.HandleFunc("/settings/cache", s.handleCacheSettings)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "debridops",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health" && !strings.HasPrefix(p, "/ws")
		}),
	)
	s.handler = recoveryMiddleware(s.logger,
		rateLimitMiddleware(s.rateLimitRPS, s.rateLimitBurst,
			metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// PublishProgress pushes one snapshot to all WebSocket clients. Implements
// ports.ProgressNotifier; never blocks the stream consumer.
func (s *Server) PublishProgress(p domain.BulkProgress) {
	if s.wsHub != nil {
		s.wsHub.BroadcastProgress(p)
	}
}

// BroadcastActiveOperations pushes the current active snapshots to all
// WebSocket clients.
func (s *Server) BroadcastActiveOperations(ctx context.Context) {
	if s.wsHub == nil || s.listActive == nil {
		return
	}
	s.wsHub.Broadcast("active_operations", s.listActive.Execute(ctx))
}

// BroadcastHealth pushes the current component health to all WebSocket
// clients.
func (s *Server) BroadcastHealth(ctx context.Context) {
	if s.wsHub == nil {
		return
	}
	s.wsHub.Broadcast("health", s.BuildHealth(ctx))
}

// Close shuts down the WebSocket hub, disconnecting all clients.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}

type healthResponse struct {
	Status             string    `json:"status"`
	CheckedAt          time.Time `json:"checkedAt"`
	ActiveOperations   int       `json:"activeOperations"`
	ActiveOperationIDs []string  `json:"activeOperationIds,omitempty"`
	Mongo              string    `json:"mongo"`
	Cache              string    `json:"cache"`
	Debrid             string    `json:"debrid"`
	Issues             []string  `json:"issues,omitempty"`
}

// BuildHealth probes every backing component and reports an aggregate
// status: "ok" or "degraded" with the list of issues.
func (s *Server) BuildHealth(ctx context.Context) healthResponse {
	resp := healthResponse{
		Status:    "ok",
		CheckedAt: time.Now().UTC(),
	}

	setDegraded := func(issue string) {
		if strings.TrimSpace(issue) == "" {
			return
		}
		resp.Status = "degraded"
		resp.Issues = append(resp.Issues, issue)
	}

	if s.listActive != nil {
		active := s.listActive.Execute(ctx)
		resp.ActiveOperations = len(active)
		for _, p := range active {
			resp.ActiveOperationIDs = append(resp.ActiveOperationIDs, string(p.OperationID))
		}
	} else {
		setDegraded("bulk engine is not configured")
	}

	probe := func(name string, ping PingFunc) string {
		if ping == nil {
			setDegraded(name + " is not configured")
			return "not_configured"
		}
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := ping(probeCtx); err != nil {
			setDegraded(name + " is unreachable")
			return "unreachable"
		}
		return "ok"
	}

	resp.Mongo = probe("mongodb", s.mongoPing)
	resp.Cache = probe("cache", s.cachePing)
	resp.Debrid = probe("debrid api", s.debridPing)

	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.BuildHealth(r.Context()))
}
