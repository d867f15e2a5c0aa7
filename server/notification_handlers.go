package server

import (
	"net/http"
	"strconv"

	"github.com/jrsteele09/ferretcontrol-console/api"
	"github.com/jrsteele09/ferretcontrol-console/notifications"
	"github.com/rs/zerolog/log"
)

type unreadResponse struct {
	Count int `json:"count"`
}

type notificationsResponse struct {
	Notifications []api.Notification    `json:"notifications"`
	Summary       notifications.Summary `json:"summary"`
}

// UnreadCountHandler serves the badge count from the poller cache; it never calls the backend.
func (s *Server) UnreadCountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, unreadResponse{Count: s.poller.UnreadCount()})
	}
}

func (s *Server) ListNotificationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.alerts.List(r.Context())
		if err != nil {
			log.Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("Failed to list notifications")
			writeBackendError(w, err)
			return
		}
		if list == nil {
			list = []api.Notification{}
		}
		writeJSON(w, http.StatusOK, notificationsResponse{
			Notifications: list,
			Summary:       notifications.Summarise(list),
		})
	}
}

func (s *Server) MarkReadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || id <= 0 {
			writeJSONError(w, "invalid_request", "Notification id must be a positive integer", http.StatusBadRequest)
			return
		}

		if err := s.alerts.MarkRead(r.Context(), id); err != nil {
			log.Err(err).Int64("notification_id", id).Msg("Failed to mark notification read")
			writeBackendError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) MarkAllReadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.alerts.MarkAllRead(r.Context()); err != nil {
			log.Err(err).Msg("Failed to mark all notifications read")
			writeBackendError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
