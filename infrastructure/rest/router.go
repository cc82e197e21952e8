package rest

import (
	"chat-relay/observability"
	"chat-relay/runtime"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rs/cors"
)

type StatsSource interface {
	Stats() observability.RelayStats
	RoomsSnapshot() []runtime.RoomView
}

type HealthResponse struct {
	Status string `json:"status"`
	observability.RelayStats
}

type RouterOptions struct {
	SocketPath        string
	AllowedOrigin     string
	EnableDebugRoutes bool
}

// NewRouter mounts the websocket endpoint next to the health and debug routes.
// Cross-origin access is limited to the configured origin.
func NewRouter(log *slog.Logger, socket http.Handler, source StatsSource, options RouterOptions) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(options.SocketPath, socket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(log, w, HealthResponse{Status: "ok", RelayStats: source.Stats()})
	})
	if options.EnableDebugRoutes {
		log.Info("Debug routes enabled", "path", "/debug/rooms")
		mux.HandleFunc("/debug/rooms", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(log, w, source.RoomsSnapshot())
		})
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{options.AllowedOrigin},
		AllowedMethods:   []string{http.MethodGet},
		AllowCredentials: true,
	})
	return corsMiddleware.Handler(mux)
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}
