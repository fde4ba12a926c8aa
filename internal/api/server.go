// Package api serves the device websocket endpoint and the admin HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/signage-hub/internal/constants"
	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/benmeehan/signage-hub/internal/registry"
	"github.com/benmeehan/signage-hub/internal/stores"
	"github.com/benmeehan/signage-hub/internal/utils"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout      = 5 * time.Second
	defaultAlertLimit    = 20
	defaultMetricsWindow = time.Hour
)

// commands accepted by the command endpoint, besides playback:<action>.
var knownCommands = utils.SliceToSet([]string{
	constants.CommandSystemReconnect,
	constants.CommandVolumeSet,
	constants.CommandPlaylistChange,
})

// DeviceGateway is the device facing side of the server.
type DeviceGateway interface {
	http.Handler
	SendCommand(deviceID, command string, data any) bool
	Shutdown()
}

// HealthView exposes the health monitor's per device state.
type HealthView interface {
	Snapshot(deviceID string) (models.DeviceHealth, bool)
	Snapshots() []models.DeviceHealth
}

// ConnectionInfo describes a live device connection.
type ConnectionInfo struct {
	DeviceID      string    `json:"deviceId"`
	BranchID      string    `json:"branchId"`
	ConnectionID  string    `json:"connectionId"`
	ConnectedAt   time.Time `json:"connectedAt"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

// CommandRequest is the body of the command endpoint.
type CommandRequest struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Server is the HTTP listener of the hub.
type Server struct {
	addr     string
	gateway  DeviceGateway
	registry *registry.Registry
	health   HealthView
	metrics  stores.MetricsStore
	router   *mux.Router
	logger   zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewServer builds the router. health may be nil when the health monitor is disabled.
func NewServer(addr, websocketPath string, gateway DeviceGateway, reg *registry.Registry, health HealthView,
	metrics stores.MetricsStore, logger zerolog.Logger) *Server {

	if websocketPath == "" {
		websocketPath = constants.DefaultWebsocketPath
	}

	s := &Server{
		addr:     addr,
		gateway:  gateway,
		registry: reg,
		health:   health,
		metrics:  metrics,
		router:   mux.NewRouter(),
		logger:   logger,
	}
	s.setupRoutes(websocketPath)
	return s
}

func (s *Server) setupRoutes(websocketPath string) {
	s.router.Handle(websocketPath, s.gateway).Methods(http.MethodGet)

	s.router.HandleFunc("/api/connections", s.getConnections).Methods(http.MethodGet)
	s.router.HandleFunc("/api/health", s.getHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices/{id}/health", s.getDeviceHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices/{id}/alerts", s.getAlerts).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices/{id}/alerts", s.clearAlerts).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/devices/{id}/metrics", s.getMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices/{id}/commands", s.postCommand).Methods(http.MethodPost)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the address the server listens on once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Start binds the listener and serves in a separate goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		s.logger.Warn().Msg("API server is already running")
		return errors.New("api server is already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.done = make(chan struct{})

	go func(server *http.Server, done chan struct{}) {
		defer close(done)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("API server failed")
		}
	}(s.server, s.done)

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("API server started successfully")
	return nil
}

// Stop stops accepting requests, then closes every device connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		s.logger.Warn().Msg("API server is not running")
		return errors.New("api server is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by http.Server.
	err := s.server.Shutdown(ctx)
	s.gateway.Shutdown()
	<-s.done

	s.server = nil
	s.listener = nil

	s.logger.Info().Msg("API server stopped successfully")
	return err
}

func (s *Server) getConnections(w http.ResponseWriter, _ *http.Request) {
	conns := make([]ConnectionInfo, 0, s.registry.Len())
	s.registry.ForEach(func(conn *registry.DeviceConnection) {
		conns = append(conns, ConnectionInfo{
			DeviceID:      conn.DeviceID,
			BranchID:      conn.BranchID,
			ConnectionID:  conn.Handle.ID(),
			ConnectedAt:   conn.ConnectedAt,
			LastHeartbeat: conn.LastHeartbeat(),
		})
	})
	sort.Slice(conns, func(i, j int) bool { return conns[i].DeviceID < conns[j].DeviceID })

	s.writeJSON(w, http.StatusOK, conns)
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	if s.health == nil {
		http.Error(w, "Health monitor disabled", http.StatusServiceUnavailable)
		return
	}

	snapshots := s.health.Snapshots()
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].DeviceID < snapshots[j].DeviceID })
	s.writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) getDeviceHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		http.Error(w, "Health monitor disabled", http.StatusServiceUnavailable)
		return
	}

	deviceID := mux.Vars(r)["id"]
	snapshot, ok := s.health.Snapshot(deviceID)
	if !ok {
		http.Error(w, "Device not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	limit := defaultAlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	alerts, err := s.metrics.ReadAlerts(r.Context(), deviceID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("device_id", deviceID).Msg("Failed to read alerts")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	s.writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) clearAlerts(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	if err := s.metrics.ClearAlerts(r.Context(), deviceID); err != nil {
		s.logger.Error().Err(err).Str("device_id", deviceID).Msg("Failed to clear alerts")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	window := defaultMetricsWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			http.Error(w, "Invalid window", http.StatusBadRequest)
			return
		}
		window = d
	}

	samples, err := s.metrics.ReadMetrics(r.Context(), deviceID, time.Now().Add(-window))
	if err != nil {
		s.logger.Error().Err(err).Str("device_id", deviceID).Msg("Failed to read metrics")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if samples == nil {
		samples = []models.MetricSample{}
	}
	s.writeJSON(w, http.StatusOK, samples)
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	_, known := knownCommands[req.Command]
	action := strings.TrimPrefix(req.Command, constants.CommandPlaybackPrefix)
	if !known && (action == req.Command || action == "") {
		http.Error(w, "Unknown command", http.StatusBadRequest)
		return
	}

	var data any
	if len(req.Data) > 0 {
		data = req.Data
	}

	if !s.gateway.SendCommand(deviceID, req.Command, data) {
		http.Error(w, "Device not connected", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
