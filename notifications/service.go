package notifications

import (
	"context"
	"fmt"

	"github.com/jrsteele09/ferretcontrol-console/api"
)

// AlertsAPI is the backend surface of the security alerts page.
type AlertsAPI interface {
	ListNotifications(ctx context.Context) ([]api.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
}

// MutationNotifier is told whenever notification state was changed by us.
type MutationNotifier interface {
	NotifyMutation()
}

// Service runs the alert actions and keeps the unread badge honest by poking
// the poller after every successful mutation.
type Service struct {
	api      AlertsAPI
	notifier MutationNotifier
}

func NewService(alerts AlertsAPI, notifier MutationNotifier) *Service {
	return &Service{api: alerts, notifier: notifier}
}

func (s *Service) List(ctx context.Context) ([]api.Notification, error) {
	list, err := s.api.ListNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

func (s *Service) MarkRead(ctx context.Context, id int64) error {
	if err := s.api.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	s.notifier.NotifyMutation()
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context) error {
	if err := s.api.MarkAllRead(ctx); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	s.notifier.NotifyMutation()
	return nil
}

// Summary holds the alert page counters.
type Summary struct {
	Total    int `json:"total"`
	Unread   int `json:"unread"`
	Critical int `json:"critical"`
}

func Summarise(list []api.Notification) Summary {
	s := Summary{Total: len(list)}
	for _, n := range list {
		if !n.IsRead {
			s.Unread++
		}
		if n.IsCritical() {
			s.Critical++
		}
	}
	return s
}
