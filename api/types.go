package api

import (
	"time"
)

// Credentials is the body of the token endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is the token endpoint response. Both values are opaque to the client.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type unreadCountResponse struct {
	Count *int `json:"count"`
}

// AlertType classifies a security notification.
type AlertType string

const (
	AlertLoginSuccess    AlertType = "LOGIN_SUCCESS"
	AlertConcurrentLogin AlertType = "CONCURRENT_LOGIN"
	AlertForumPost       AlertType = "FORUM_POST"
	AlertBruteForce      AlertType = "BRUTE_FORCE"
)

// Notification is a security alert as served by the notifications endpoint.
type Notification struct {
	ID        int64     `json:"id"`
	User      int64     `json:"user"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	AlertType AlertType `json:"alert_type"`
	IsRead    bool      `json:"is_read"`
	IPAddress *string   `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

// IsCritical reports alert types the dashboard flags as critical
func (n Notification) IsCritical() bool {
	return n.AlertType == AlertConcurrentLogin || n.AlertType == AlertBruteForce
}
