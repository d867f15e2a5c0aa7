package apifake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/ferretcontrol-console/api"
	"github.com/jrsteele09/ferretcontrol-console/internal/errors"
)

// Call names reported by Calls.
const (
	CallObtainToken       = "ObtainToken"
	CallRefreshToken      = "RefreshToken"
	CallLogout            = "Logout"
	CallUnreadCount       = "UnreadCount"
	CallListNotifications = "ListNotifications"
	CallMarkRead          = "MarkRead"
	CallMarkAllRead       = "MarkAllRead"
)

const signingKey = "apifake-signing-key"

// FakeBackend is an in-memory stand-in for the FerretControl backend.
type FakeBackend struct {
	lock          sync.Mutex
	users         map[string]string
	unread        int
	unreadErr     error
	logoutErr     error
	loginErr      error
	refreshErr    error
	refreshTokens map[string]string // refresh token -> username
	notifications []api.Notification
	calls         map[string]int
	issued        int

	// AccessTTL, when set, issues JWT access tokens expiring after AccessTTL from Now
	AccessTTL time.Duration
	Now       func() time.Time

	// BeforeUnread runs inside UnreadCount before the answer is produced
	BeforeUnread func(ctx context.Context)

	// BeforeRefresh runs inside RefreshToken before the answer is produced
	BeforeRefresh func(ctx context.Context)
}

var _ interface {
	ObtainToken(context.Context, api.Credentials) (*api.TokenPair, error)
	RefreshToken(context.Context, string) (*api.TokenPair, error)
	Logout(context.Context, string) error
	UnreadCount(context.Context) (int, error)
	ListNotifications(context.Context) ([]api.Notification, error)
	MarkRead(context.Context, int64) error
	MarkAllRead(context.Context) error
} = (*FakeBackend)(nil)

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		users:         make(map[string]string),
		refreshTokens: make(map[string]string),
		calls:         make(map[string]int),
		Now:           time.Now,
	}
}

func (b *FakeBackend) AddUser(username, password string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.users[username] = password
}

func (b *FakeBackend) SetUnread(count int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.unread = count
}

func (b *FakeBackend) SetUnreadErr(err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.unreadErr = err
}

func (b *FakeBackend) SetLoginErr(err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.loginErr = err
}

func (b *FakeBackend) SetLogoutErr(err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.logoutErr = err
}

func (b *FakeBackend) SetRefreshErr(err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.refreshErr = err
}

// AddNotification stores n; unread ones count towards UnreadCount.
func (b *FakeBackend) AddNotification(n api.Notification) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.notifications = append(b.notifications, n)
	if !n.IsRead {
		b.unread++
	}
}

// Calls returns how many times the named operation was invoked
func (b *FakeBackend) Calls(name string) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.calls[name]
}

func (b *FakeBackend) ObtainToken(ctx context.Context, creds api.Credentials) (*api.TokenPair, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.calls[CallObtainToken]++

	if b.loginErr != nil {
		return nil, b.loginErr
	}
	if pw, ok := b.users[creds.Username]; !ok || pw != creds.Password {
		return nil, fmt.Errorf("%w: no active account found with the given credentials", errors.ErrInvalidCredentials)
	}

	access := b.accessToken(creds.Username)
	pair := api.TokenPair{
		Access:  access,
		Refresh: fmt.Sprintf("refresh-%s-%d", creds.Username, b.issued),
	}
	b.refreshTokens[pair.Refresh] = creds.Username
	return &pair, nil
}

func (b *FakeBackend) RefreshToken(ctx context.Context, refreshToken string) (*api.TokenPair, error) {
	b.lock.Lock()
	b.calls[CallRefreshToken]++
	hook := b.BeforeRefresh
	b.lock.Unlock()

	if hook != nil {
		hook(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrNetwork, err)
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	if b.refreshErr != nil {
		return nil, b.refreshErr
	}
	username, ok := b.refreshTokens[refreshToken]
	if !ok {
		return nil, errors.ErrInvalidRefreshToken
	}
	return &api.TokenPair{Access: b.accessToken(username)}, nil
}

func (b *FakeBackend) Logout(ctx context.Context, accessToken string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.calls[CallLogout]++
	return b.logoutErr
}

func (b *FakeBackend) UnreadCount(ctx context.Context) (int, error) {
	b.lock.Lock()
	b.calls[CallUnreadCount]++
	hook := b.BeforeUnread
	b.lock.Unlock()

	if hook != nil {
		hook(ctx)
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", errors.ErrNetwork, err)
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	if b.unreadErr != nil {
		return 0, b.unreadErr
	}
	return b.unread, nil
}

func (b *FakeBackend) ListNotifications(ctx context.Context) ([]api.Notification, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.calls[CallListNotifications]++

	list := make([]api.Notification, len(b.notifications))
	for i := range b.notifications {
		list[len(list)-1-i] = b.notifications[i]
	}
	return list, nil
}

func (b *FakeBackend) MarkRead(ctx context.Context, id int64) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.calls[CallMarkRead]++

	for i := range b.notifications {
		if b.notifications[i].ID != id {
			continue
		}
		if !b.notifications[i].IsRead {
			b.notifications[i].IsRead = true
			b.unread--
		}
		return nil
	}
	return errors.ErrNotFound
}

func (b *FakeBackend) MarkAllRead(ctx context.Context) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.calls[CallMarkAllRead]++

	for i := range b.notifications {
		b.notifications[i].IsRead = true
	}
	b.unread = 0
	return nil
}

// accessToken issues an opaque token, or a JWT when AccessTTL is set. Caller holds the lock.
func (b *FakeBackend) accessToken(username string) string {
	b.issued++
	if b.AccessTTL == 0 {
		return fmt.Sprintf("access-%s-%d", username, b.issued)
	}
	return SignedAccessToken(jwt.MapClaims{
		"token_type": "access",
		"username":   username,
		"user_id":    float64(len(username)),
		"jti":        fmt.Sprintf("%d", b.issued),
		"exp":        b.Now().Add(b.AccessTTL).Unix(),
	})
}

// SignedAccessToken builds an HS256 JWT with the given claims.
func SignedAccessToken(claims jwt.MapClaims) string {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	return raw
}
