package server

// Route path constants
// All console routes are defined here to ensure consistency and prevent typos
const (
	RouteHealth = "/healthz"

	// Auth Routes - Login & Logout
	RouteLogin      = "/login" // Where the guard sends anonymous callers
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Session
	RouteSession = "/api/session"

	// Notifications
	RouteNotifications        = "/api/notifications"
	RouteNotificationsUnread  = "/api/notifications/unread"
	RouteNotificationRead     = "/api/notifications/{id}/read"
	RouteNotificationsReadAll = "/api/notifications/read-all"

	RouteMetrics = "/metrics"
)
