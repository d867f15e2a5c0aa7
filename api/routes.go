package api

import "fmt"

// Backend route constants
const (
	RouteAuthToken            = "/api/auth/token/"
	RouteAuthRefresh          = "/api/auth/refresh/"
	RouteAuthLogout           = "/api/auth/logout/"
	RouteNotifications        = "/api/notifications/"
	RouteNotificationsUnread  = "/api/notifications/unread_count/"
	RouteNotificationsReadAll = "/api/notifications/mark_all_read/"
)

// RouteNotificationMarkRead returns the mark_read path for one notification
func RouteNotificationMarkRead(id int64) string {
	return fmt.Sprintf("/api/notifications/%d/mark_read/", id)
}
