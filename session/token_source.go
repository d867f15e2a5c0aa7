package session

import (
	"context"

	"github.com/jrsteele09/ferretcontrol-console/internal/errors"
	"github.com/jrsteele09/ferretcontrol-console/tokenstore"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*Manager)(nil)

// Token implements oauth2.TokenSource for the authenticated API client.
// It returns the persisted access token, refreshing it first when refresh on
// expiry is enabled and the token's exp claim falls inside the leeway.
func (m *Manager) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.refreshTimeout)
	defer cancel()
	return m.TokenContext(ctx)
}

// TokenContext is Token with a caller supplied context for the refresh call.
func (m *Manager) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	tok, err := m.storedToken()
	if err != nil {
		return nil, err
	}
	if !m.refreshOnExpiry || tok.Expiry.IsZero() || m.nowFunc().Add(m.leeway).Before(tok.Expiry) {
		return tok, nil
	}
	return m.refresh(ctx, tok)
}

// RefreshAccessToken exchanges the refresh token for a new access token now.
func (m *Manager) RefreshAccessToken(ctx context.Context) error {
	tok, err := m.storedToken()
	if err != nil {
		return err
	}
	_, err = m.doRefresh(ctx, tok)
	return err
}

func (m *Manager) storedToken() (*oauth2.Token, error) {
	access, ok, err := tokenstore.Lookup(m.store, tokenstore.AccessTokenKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrNotAuthenticated
	}
	refresh, _, err := tokenstore.Lookup(m.store, tokenstore.RefreshTokenKey)
	if err != nil {
		return nil, err
	}

	tok := &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: refresh,
	}
	if exp, ok := tokenExpiry(access); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

// refresh falls back to the stale token on a refresh problem so the backend's
// 401 reaches the caller. A session that ended meanwhile fails the request.
func (m *Manager) refresh(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	tok, err := m.doRefresh(ctx, stale)
	if errors.Is(err, errors.ErrNotAuthenticated) {
		return nil, err
	}
	if err != nil {
		log.Err(err).Msg("Token refresh failed, using stored access token")
		return stale, nil
	}
	return tok, nil
}

// doRefresh runs one refresh at a time. The backend call is abandoned as soon
// as the session it started in ends.
func (m *Manager) doRefresh(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	session := m.session()
	if session == nil {
		return nil, errors.ErrNotAuthenticated
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(session, cancel)
	defer stop()

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	// another caller may have refreshed while we waited
	current, err := m.storedToken()
	if err != nil {
		return nil, err
	}
	if current.AccessToken != stale.AccessToken {
		return current, nil
	}
	if current.RefreshToken == "" {
		return nil, errors.ErrInvalidRefreshToken
	}

	pair, err := m.auth.RefreshToken(ctx, current.RefreshToken)
	if session.Err() != nil {
		return nil, errors.Wrapf(errors.ErrNotAuthenticated, "session ended during refresh")
	}
	if err != nil {
		m.metrics.RecordTokenRefresh(false)
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// a logout during the refresh call wins; never resurrect a cleared session
	access, ok, err := tokenstore.Lookup(m.store, tokenstore.AccessTokenKey)
	if err != nil {
		return nil, err
	}
	if !ok || access != current.AccessToken || session.Err() != nil {
		return nil, errors.ErrNotAuthenticated
	}

	refresh := current.RefreshToken
	if pair.Refresh != "" {
		refresh = pair.Refresh
	}
	if err := m.commitTokens(pair.Access, refresh); err != nil {
		m.metrics.RecordTokenRefresh(false)
		return nil, err
	}
	m.metrics.RecordTokenRefresh(true)
	log.Debug().Msg("Access token refreshed")

	tok := &oauth2.Token{
		AccessToken:  pair.Access,
		TokenType:    "Bearer",
		RefreshToken: refresh,
	}
	if exp, ok := tokenExpiry(pair.Access); ok {
		tok.Expiry = exp
	}
	return tok, nil
}
