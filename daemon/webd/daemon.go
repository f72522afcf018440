package webd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/olahol/melody"
	"github.com/rotblauer/fieldcat/api"
	"github.com/rotblauer/fieldcat/catdb/cache"
	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/metrics"
	"github.com/rotblauer/fieldcat/params"
)

// WebDaemon serves the agent's ingest and diagnostics API,
// and a reference backend sink for delivered fixes.
type WebDaemon struct {
	Config *params.WebDaemonConfig
	// Agent may be nil, in which case only the sink routes are useful.
	Agent *api.Agent

	acks     *cache.AckCache
	accepted atomic.Uint64
	received *common.RingBuffer[json.RawMessage]

	started        time.Time
	logger         *slog.Logger
	melodyInstance *melody.Melody
}

func NewWebDaemon(config *params.WebDaemonConfig, agent *api.Agent) (*WebDaemon, error) {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	acks, err := cache.NewAckCache(config.AckCacheSize)
	if err != nil {
		return nil, err
	}
	return &WebDaemon{
		Config:   config,
		Agent:    agent,
		acks:     acks,
		received: common.NewRingBuffer[json.RawMessage](config.SinkRingSize),
		started:  time.Now(),
		logger:   slog.With("d", "web"),
	}, nil
}

// Run serves on the configured listener until ctx is done.
func (s *WebDaemon) Run(ctx context.Context) error {
	ln, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.melodyInstance != nil {
			_ = s.melodyInstance.Close()
		}
		_ = srv.Shutdown(shutdown)
	}()
	s.logger.Info("Starting web daemon", "address", ln.Addr().String())
	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *WebDaemon) NewRouter() *mux.Router {
	s.initMelody()

	router := mux.NewRouter().StrictSlash(false)
	router.Use(loggingMiddleware)

	router.Path("/socket").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})
	router.Path("/metrics").Handler(metrics.Handler()).Methods(http.MethodGet)

	apiRoutes := router.NewRoute().Subrouter()
	// All API routes use permissive CORS settings.
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))

	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)
	apiJSONRoutes.Path("/last").HandlerFunc(s.handleLast).Methods(http.MethodGet)
	apiJSONRoutes.Path("/stats").HandlerFunc(s.handleStats).Methods(http.MethodGet)
	apiJSONRoutes.Path("/pending").HandlerFunc(s.handlePending).Methods(http.MethodGet)
	apiJSONRoutes.Path("/locations").HandlerFunc(s.handleReceived).Methods(http.MethodGet)

	authenticatedAPIRoutes := apiJSONRoutes.NewRoute().Subrouter()
	authenticatedAPIRoutes.Use(tokenAuthenticationMiddleware)

	authenticatedAPIRoutes.Path("/fixes").HandlerFunc(s.handleFixes).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/drain").HandlerFunc(s.handleDrain).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/locations").HandlerFunc(s.handleLocations).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/devices").HandlerFunc(s.handleDevices).Methods(http.MethodPost)

	return router
}
