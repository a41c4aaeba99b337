// Package http exposes composition sessions and exported invoice records
// over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"invoicer/internal/auth"
	"invoicer/internal/log"
	"invoicer/internal/middleware/ratelimit"
	"invoicer/internal/middleware/security"
	"invoicer/internal/records"
	"invoicer/internal/session"
	"invoicer/internal/submission"
)

// Deps are the collaborators behind the routes. Records may be nil, in
// which case the invoice and profile routes answer 503.
type Deps struct {
	Sessions   *session.Manager
	Controller *submission.Controller
	Records    records.Repository
	Logger     *log.Logger

	// JWTSecret enables bearer authentication when non-empty.
	JWTSecret      []byte
	RequestTimeout time.Duration
	RateLimit      ratelimit.Config
	TrustedProxies []string
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	clientIP *security.ClientIP

	shutdownOnce sync.Once
}

// NewServer wires the router and returns a ready-to-run http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = log.FromContext(context.Background())
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		deps:     deps,
		logger:   deps.Logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(deps.RateLimit),
		clientIP: security.NewClientIP(),
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.clientIP.AddTrustedProxy(cidr); err != nil {
			s.limiter.Stop()
			return nil, err
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(middleware.Timeout(deps.RequestTimeout))

	r.Get("/healthz", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(auth.Middleware(deps.JWTSecret, s.unauthorized))
		r.Use(s.limitMutations)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDiscardSession)
				r.Put("/header", s.handleSetHeader)
				r.Post("/columns", s.handleAddColumn)
				r.Delete("/columns/{columnID}", s.handleRemoveColumn)
				r.Post("/items", s.handleAddItem)
				r.Delete("/items/{itemID}", s.handleRemoveItem)
				r.Patch("/items/{itemID}", s.handleUpdateItem)
				r.Put("/items/{itemID}/custom/{columnID}", s.handleUpdateCustom)
				r.Post("/validate", s.handleValidate)
				r.Post("/export", s.handleExport)
				r.Post("/notify", s.handleNotify)
			})
		})

		r.Get("/invoices", s.handleListInvoices)
		r.Patch("/invoices/{recordID}", s.handleUpdateInvoiceStatus)

		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handlePutProfile)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Shutdown stops the limiter and drains the server. Safe to call twice.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
