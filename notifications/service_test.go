package notifications_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/ferretcontrol-console/api"
	"github.com/jrsteele09/ferretcontrol-console/internal/errors"
	"github.com/jrsteele09/ferretcontrol-console/notifications"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct {
	n atomic.Int32
}

func (c *countingNotifier) NotifyMutation() { c.n.Add(1) }

func seedAlerts(f *testFixture) {
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	ip := "192.168.1.20"
	f.backend.AddNotification(api.Notification{ID: 1, Title: "Inicio de Sesión Exitoso", AlertType: api.AlertLoginSuccess, IPAddress: &ip, CreatedAt: created})
	f.backend.AddNotification(api.Notification{ID: 2, Title: "Intento de Inicio de Sesión Concurrente", AlertType: api.AlertConcurrentLogin, IPAddress: &ip, CreatedAt: created.Add(time.Minute)})
	f.backend.AddNotification(api.Notification{ID: 3, Title: "Nuevo Mensaje en Foro", AlertType: api.AlertForumPost, IsRead: true, CreatedAt: created.Add(2 * time.Minute)})
}

func TestService_ListAndSummarise(t *testing.T) {
	f := setupTestFixture(t)
	seedAlerts(f)
	svc := notifications.NewService(f.backend, &countingNotifier{})

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, int64(3), list[0].ID, "newest first")

	require.Equal(t, notifications.Summary{Total: 3, Unread: 2, Critical: 1}, notifications.Summarise(list))
}

func TestService_MutationsNotify(t *testing.T) {
	f := setupTestFixture(t)
	seedAlerts(f)
	notifier := &countingNotifier{}
	svc := notifications.NewService(f.backend, notifier)

	require.NoError(t, svc.MarkRead(context.Background(), 1))
	require.NoError(t, svc.MarkAllRead(context.Background()))
	require.Equal(t, int32(2), notifier.n.Load())

	err := svc.MarkRead(context.Background(), 99)
	require.ErrorIs(t, err, errors.ErrNotFound)
	require.Equal(t, int32(2), notifier.n.Load(), "failed mutations do not trigger a refresh")
}

func TestService_MarkReadUpdatesBadge(t *testing.T) {
	f := setupTestFixture(t)
	seedAlerts(f)
	svc := notifications.NewService(f.backend, f.poller)

	f.login(t)
	f.requireCount(t, 2)

	require.NoError(t, svc.MarkRead(context.Background(), 2))
	f.requireCount(t, 1)

	require.NoError(t, svc.MarkAllRead(context.Background()))
	f.requireCount(t, 0)
}
