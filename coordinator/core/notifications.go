package core

import "context"

type NotificationFeed struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}

func (s *Service) Notifications(ctx context.Context, userID int64) (NotificationFeed, error) {
	if userID <= 0 {
		return NotificationFeed{}, ErrInvalidArgs
	}
	list, unread, err := s.store.ListNotifications(ctx, userID, 50)
	if err != nil {
		return NotificationFeed{}, err
	}
	return NotificationFeed{Notifications: list, UnreadCount: unread}, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidArgs
	}
	return s.store.MarkNotificationRead(ctx, id)
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrInvalidArgs
	}
	return s.store.MarkAllNotificationsRead(ctx, userID)
}

func (s *Service) DeleteReadNotifications(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrInvalidArgs
	}
	return s.store.DeleteReadNotifications(ctx, userID)
}
