package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/ferretcontrol-console/internal/errors"
	"github.com/rs/zerolog/log"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// LoginHandler signs the operator in. The body is {"username","password"}.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "Body must be a JSON object with username and password", http.StatusBadRequest)
			return
		}

		if err := s.sessions.Login(r.Context(), req.Username, req.Password); err != nil {
			writeJSONError(w, "authentication_failed", loginFailureMessage(err), http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func loginFailureMessage(err error) string {
	switch {
	case errors.Is(err, errors.ErrInvalidRequest):
		return "Username and password are required"
	case errors.Is(err, errors.ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, errors.ErrNetwork):
		return "Authentication service unreachable"
	default:
		return "Login failed"
	}
}

// LogoutHandler ends the session. It always succeeds from the caller's view.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.sessions.Logout(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := sessionResponse{Authenticated: s.sessions.IsAuthenticated()}
		if resp.Authenticated {
			if id, ok := s.sessions.Identity(); ok {
				resp.Username = id.Username
			}
		}
		log.Debug().Bool("authenticated", resp.Authenticated).Msg("Session state requested")
		writeJSON(w, http.StatusOK, resp)
	}
}
