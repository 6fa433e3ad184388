package server

import (
	"context"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/formguard/formguard/internal/appid"
	"github.com/formguard/formguard/internal/observability"
	"github.com/formguard/formguard/internal/server/handlers"
)

// ContactAPIPrefix is where the contact form API is mounted.
const ContactAPIPrefix = "/api/v1/contact"

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	if hm := s.opts.Health; hm != nil {
		s.router.Get("/health", hm.HealthHandler)
		s.router.Get("/health/live", hm.LivenessHandler)
		s.router.Get("/health/ready", hm.ReadinessHandler)
		s.router.Get("/health/startup", hm.StartupHandler)
	} else {
		s.router.Get("/health", handlers.HealthHandler)
		s.router.Get("/health/live", handlers.LivenessHandler)
		s.router.Get("/health/ready", handlers.ReadinessHandler)
		s.router.Get("/health/startup", handlers.StartupHandler)
	}

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	if s.opts.Contact != nil {
		s.router.Route(ContactAPIPrefix, func(r chi.Router) {
			s.opts.Contact.Routes(r)
		})
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint mounts the signal endpoint when <PREFIX>ADMIN_TOKEN is set
func (s *Server) registerAdminEndpoint() {
	identity, _ := appid.Get(context.Background())
	envPrefix := appid.EnvPrefix(identity)

	adminToken := os.Getenv(envPrefix + "ADMIN_TOKEN")
	logger := observability.Logger()

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + envPrefix + "ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
	}
}
