package httpx

import (
	"net/http"
	"time"

	"github.com/rs/cors"

	"taskchat/internal/app"
	"taskchat/pkg/ratelimit"
)

type Middleware struct {
	cors   *cors.Cors
	rlimit *ratelimit.Limiter
}

// NewMiddleware builds the shared middleware stack from config
func NewMiddleware(cfg app.Config) *Middleware {
	return &Middleware{
		cors: cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllow,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}),
		rlimit: ratelimit.New(30, time.Minute), // 30 req/min default
	}
}

// CORS applies the origin allowlist to a handler
func (m *Middleware) CORS(h http.Handler) http.Handler {
	return m.cors.Handler(h)
}

// Limit applies the per-IP rate limit; the websocket upgrade stays exempt
// so long-lived sessions don't eat the window
func (m *Middleware) Limit(h http.Handler) http.Handler {
	return m.rlimit.Middleware(h)
}
