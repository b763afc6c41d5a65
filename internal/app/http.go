package app

import (
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/mealsplit/internal/auth"
	"github.com/mmynk/mealsplit/internal/middleware"
	"github.com/mmynk/mealsplit/internal/service"
	"github.com/mmynk/mealsplit/pkg/api"
)

// NewHandler builds the HTTP handler serving the Connect services, health
// and metrics endpoints. The result speaks HTTP/2 without TLS.
func (a *App) NewHandler(jwtManager *auth.JWTManager) http.Handler {
	cfg := a.Config.Server

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Connect-Protocol-Version", "Connect-Timeout-Ms"},
		ExposedHeaders: []string{"Connect-Protocol-Version", "Connect-Timeout-Ms"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := a.Ping(req.Context()); err != nil {
			slog.Warn("Health check failed", "error", err)
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	interceptors := connect.WithInterceptors(
		middleware.LoggingInterceptor(),
		middleware.Authenticate(jwtManager, service.PublicProcedures...),
	)

	r.Group(func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateWindow))
		}

		splitPath, splitHandler := api.NewSplitServiceHandler(service.NewSplitService(a.Manager, a.Store), interceptors)
		r.Mount(splitPath, splitHandler)

		messagePath, messageHandler := api.NewMessageServiceHandler(service.NewMessageService(a.Messaging), interceptors)
		r.Mount(messagePath, messageHandler)

		userPath, userHandler := api.NewUserServiceHandler(service.NewUserService(a.Store, a.Store), interceptors)
		r.Mount(userPath, userHandler)
	})

	return h2c.NewHandler(r, &http2.Server{})
}

// requestLogger logs all incoming requests at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"remote_addr", r.RemoteAddr,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
