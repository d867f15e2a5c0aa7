package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/ferretcontrol-console/internal/config"
	"github.com/jrsteele09/ferretcontrol-console/notifications"
	"github.com/jrsteele09/ferretcontrol-console/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Deps holds the core objects the console serves.
type Deps struct {
	Sessions *session.Manager       // Session state and login/logout
	Poller   *notifications.Poller  // Unread alert badge
	Alerts   *notifications.Service // Alert list and read actions
	Metrics  http.Handler           // Optional /metrics handler
}

type Server struct {
	env          string // Environment (e.g., "DEV", "PROD")
	mux          *http.ServeMux
	routes       []string
	config       config.Config
	sessions     *session.Manager
	poller       *notifications.Poller
	alerts       *notifications.Service
	metrics      http.Handler
	loginLimiter *rate.Limiter
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Sessions == nil {
		return nil, fmt.Errorf("[Server New] session manager is required")
	}
	if deps.Poller == nil {
		return nil, fmt.Errorf("[Server New] notification poller is required")
	}
	if deps.Alerts == nil {
		return nil, fmt.Errorf("[Server New] alerts service is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		sessions: deps.Sessions,
		poller:   deps.Poller,
		alerts:   deps.Alerts,
		metrics:  deps.Metrics,
	}
	if perMinute := cfg.GetLoginRatePerMinute(); perMinute > 0 {
		s.loginLimiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
