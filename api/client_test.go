package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/ferretcontrol-console/api"
	"github.com/jrsteele09/ferretcontrol-console/internal/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL+"/", api.WithTimeout(2*time.Second))
}

func TestClient_ObtainToken(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, api.RouteAuthToken, r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var creds api.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Username != "alice" || creds.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
			return
		}
		w.Write([]byte(`{"access":"acc-1","refresh":"ref-1"}`))
	})

	pair, err := client.ObtainToken(context.Background(), api.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "acc-1", pair.Access)
	require.Equal(t, "ref-1", pair.Refresh)

	_, err = client.ObtainToken(context.Background(), api.Credentials{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)

	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusUnauthorized, se.StatusCode)
}

func TestClient_ObtainToken_IncompleteResponse(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access":"only-access"}`))
	})

	_, err := client.ObtainToken(context.Background(), api.Credentials{Username: "a", Password: "b"})
	require.ErrorIs(t, err, errors.ErrUnexpectedResponse)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := api.NewClient(url)
	_, err := client.ObtainToken(context.Background(), api.Credentials{Username: "a", Password: "b"})
	require.ErrorIs(t, err, errors.ErrNetwork)
}

func TestClient_Logout_SendsBearer(t *testing.T) {
	var gotAuth string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, api.RouteAuthLogout, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"message":"Logout successful"}`))
	})

	require.NoError(t, client.Logout(context.Background(), "acc-1"))
	require.Equal(t, "Bearer acc-1", gotAuth)
}

func TestClient_RefreshToken(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, api.RouteAuthRefresh, r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["refresh"] != "ref-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"access":"acc-2"}`))
	})

	pair, err := client.RefreshToken(context.Background(), "ref-1")
	require.NoError(t, err)
	require.Equal(t, "acc-2", pair.Access)
	require.Empty(t, pair.Refresh)

	_, err = client.RefreshToken(context.Background(), "stale")
	require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)
}

func TestClient_AuthenticatedCalls(t *testing.T) {
	var paths []string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		paths = append(paths, r.Method+" "+r.URL.RequestURI())
		switch r.URL.Path {
		case api.RouteNotificationsUnread:
			w.Write([]byte(`{"count":3}`))
		case api.RouteNotifications:
			w.Write([]byte(`[{"id":7,"title":"Inicio","message":"ok","alert_type":"CONCURRENT_LOGIN","is_read":false,"ip_address":"10.0.0.1","created_at":"2026-01-02T03:04:05Z"}]`))
		default:
			w.Write([]byte(`{"status":"marked as read"}`))
		}
	})

	_, err := client.UnreadCount(context.Background())
	require.ErrorIs(t, err, errors.ErrNotAuthenticated, "no token source configured")

	authed := client.WithTokens(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "acc-1"}))

	count, err := authed.UnreadCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, count)

	list, err := authed.ListNotifications(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(7), list[0].ID)
	require.True(t, list[0].IsCritical())
	require.Equal(t, "10.0.0.1", *list[0].IPAddress)

	require.NoError(t, authed.MarkRead(context.Background(), 7))
	require.NoError(t, authed.MarkAllRead(context.Background()))

	require.Equal(t, []string{
		"GET " + api.RouteNotificationsUnread,
		"GET " + api.RouteNotifications + "?ordering=-created_at",
		"POST /api/notifications/7/mark_read/",
		"POST " + api.RouteNotificationsReadAll,
	}, paths)

	wrong := client.WithTokens(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "expired"}))
	_, err = wrong.UnreadCount(context.Background())
	require.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestClient_UnreadCount_MalformedBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unread":4}`))
	})
	authed := client.WithTokens(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "a"}))

	_, err := authed.UnreadCount(context.Background())
	require.ErrorIs(t, err, errors.ErrUnexpectedResponse)
}
