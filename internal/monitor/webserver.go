// Package monitor serves the local observability interface: current and
// recent classifier snapshots as JSON, a live websocket feed, and a speed
// trace chart. It binds loopback by default and carries no auth.
package monitor

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/halcyard/motiongate/internal/gate"
)

// WebServer handles the HTTP interface for monitoring the classifier.
// It provides endpoints for health checks and real-time motion state.
type WebServer struct {
	address    string
	cell       *gate.Cell
	history    *History
	live       *liveHub
	gateRoutes http.Handler
	server     *http.Server
}

// Config contains configuration options for the web server.
type Config struct {
	Address string
	Cell    *gate.Cell
	History *History

	// GateRoutes, if set, is mounted under /api/gate/ so the daemon can
	// expose its executor-facing decide endpoints on the same listener.
	GateRoutes http.Handler
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config Config) *WebServer {
	ws := &WebServer{
		address:    config.Address,
		cell:       config.Cell,
		history:    config.History,
		live:       newLiveHub(),
		gateRoutes: config.GateRoutes,
	}
	if ws.address == "" {
		ws.address = "127.0.0.1:8421"
	}
	if ws.history == nil {
		ws.history = NewHistory(0)
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// Record feeds one committed snapshot into the history ring and pushes it
// to connected live clients. Register it as a pipeline snapshot hook; it
// runs on the polling goroutine and must stay quick.
func (ws *WebServer) Record(snap gate.Snapshot) {
	ws.history.Add(snap)
	ws.live.broadcast(snap)
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown
// when the context is cancelled.
func (ws *WebServer) Start(ctx context.Context) error {
	// Start server in a goroutine so it doesn't block
	go func() {
		log.Printf("[Monitor] listening on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Monitor] failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Printf("[Monitor] shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Monitor] HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := ws.server.Close(); err != nil {
			log.Printf("[Monitor] HTTP server force close error: %v", err)
		}
	}

	log.Printf("[Monitor] HTTP server stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", ws.handleHealth)
	mux.HandleFunc("/api/motion/state", ws.handleState)
	mux.HandleFunc("/api/motion/history", ws.handleHistory)
	mux.HandleFunc("/api/motion/live", ws.handleLive)
	mux.HandleFunc("/charts/speed", ws.handleSpeedChart)

	if ws.gateRoutes != nil {
		mux.Handle("/api/gate/", http.StripPrefix("/api/gate", ws.gateRoutes))
	}

	return mux
}
