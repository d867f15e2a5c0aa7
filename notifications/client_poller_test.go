package notifications_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/ferretcontrol-console/api"
	"github.com/jrsteele09/ferretcontrol-console/api/apifake"
	"github.com/jrsteele09/ferretcontrol-console/notifications"
	"github.com/jrsteele09/ferretcontrol-console/session"
	"github.com/jrsteele09/ferretcontrol-console/tokenstore/memstore"
	"github.com/stretchr/testify/require"
)

// httpBackend serves the FerretControl endpoints the poller path touches.
// Access tokens expire within a minute so every authenticated call refreshes first.
type httpBackend struct {
	unreadHits     atomic.Int32
	unauthorized   atomic.Int32
	stallRefresh   atomic.Bool
	refreshStarted chan struct{}
	startOnce      sync.Once
	release        chan struct{}
}

func newHTTPBackend(t *testing.T) (*httpBackend, *httptest.Server) {
	t.Helper()
	b := &httpBackend{
		refreshStarted: make(chan struct{}),
		release:        make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+api.RouteAuthToken, func(w http.ResponseWriter, r *http.Request) {
		writeTokens(w, "refresh-1")
	})
	mux.HandleFunc("POST "+api.RouteAuthRefresh, func(w http.ResponseWriter, r *http.Request) {
		if b.stallRefresh.Load() {
			b.startOnce.Do(func() { close(b.refreshStarted) })
			select {
			case <-r.Context().Done():
			case <-b.release:
			}
			return
		}
		writeTokens(w, "")
	})
	mux.HandleFunc("POST "+api.RouteAuthLogout, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET "+api.RouteNotificationsUnread, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			b.unauthorized.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.unreadHits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]int{"count": 2})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(b.release) })
	return b, srv
}

func writeTokens(w http.ResponseWriter, refresh string) {
	access := apifake.SignedAccessToken(jwt.MapClaims{
		"username": testUsername,
		"user_id":  float64(1),
		"exp":      time.Now().Add(time.Minute).Unix(),
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(api.TokenPair{Access: access, Refresh: refresh})
}

func TestPoller_ThroughAPIClient_LogoutDuringRefresh(t *testing.T) {
	backend, srv := newHTTPBackend(t)

	client := api.NewClient(srv.URL, api.WithTimeout(5*time.Second))
	m, err := session.NewManager(client, memstore.New(),
		session.WithRefreshOnExpiry(true),
		session.WithExpiryLeeway(2*time.Minute),
		session.WithRefreshTimeout(5*time.Second),
	)
	require.NoError(t, err)

	tickers := &tickerFactory{}
	p := notifications.NewPoller(client.WithTokens(m), notifications.WithTicker(tickers.New))
	t.Cleanup(p.Close)
	m.AddObserver(p)

	require.NoError(t, m.Login(context.Background(), testUsername, testPassword))
	require.Eventually(t, func() bool { return p.UnreadCount() == 2 }, waitFor, pollEvery)

	for want := int32(2); want <= 3; want++ {
		require.True(t, tickers.tick())
		require.Eventually(t, func() bool { return backend.unreadHits.Load() == want }, waitFor, pollEvery)
	}

	backend.stallRefresh.Store(true)
	require.True(t, tickers.tick())
	<-backend.refreshStarted

	start := time.Now()
	m.Logout(context.Background())
	require.Less(t, time.Since(start), 500*time.Millisecond, "logout must not wait for the stalled refresh")

	require.Zero(t, p.UnreadCount())
	require.Never(t, func() bool {
		return backend.unreadHits.Load() != 3 || backend.unauthorized.Load() != 0
	}, 100*time.Millisecond, pollEvery)
}
