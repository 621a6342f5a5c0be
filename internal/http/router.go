package httpx

import (
	"log/slog"
	"net/http"

	"taskchat/internal/app"
	"taskchat/internal/chat"
	"taskchat/internal/upload"
	"taskchat/pkg/metrics"
)

// NewRouter wires up the realtime endpoint, the upload pipeline, static
// serving of persisted uploads, and the ops surface
func NewRouter(cfg app.Config, logger *slog.Logger, hub *chat.Hub, uploads *upload.Handler, uploadDir string) http.Handler {
	mw := NewMiddleware(cfg)

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// Realtime event channel
	mux.Handle("/ws", http.HandlerFunc(hub.ServeWS))

	// Attachment upload + read-only serving of the persisted bytes
	mux.Handle("/api/upload", mw.Limit(uploads))
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))

	return mw.CORS(mux)
}
