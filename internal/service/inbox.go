package service

import (
	"context"

	"github.com/richardliu001/event-stream-service/internal/model"
	"github.com/richardliu001/event-stream-service/internal/repo"
	"go.uber.org/zap"
)

// Inbox is the read model over notification rows.
type Inbox struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

// NewInbox returns Inbox.
func NewInbox(r repo.RepositoryInterface, logger *zap.SugaredLogger) *Inbox {
	return &Inbox{repo: r, log: logger}
}

// List returns the recipient's inbox newest-first plus the unread count. The
// count is served from Redis when cached, falling back to the database.
func (i *Inbox) List(ctx context.Context, recipientID uint64, limit int) ([]model.Notification, int64, error) {
	ns, err := i.repo.NotificationsFor(ctx, recipientID, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := i.repo.GetCachedUnreadCount(ctx, recipientID)
	if err != nil {
		unread, err = i.repo.UnreadCount(ctx, recipientID)
		if err != nil {
			return nil, 0, err
		}
		if err := i.repo.CacheUnreadCount(ctx, recipientID, unread); err != nil {
			i.log.Warnf("cache unread recipient=%d: %v", recipientID, err)
		}
	}
	return ns, unread, nil
}

// MarkRead stamps one notification read; idempotent. repo.ErrNotFound covers
// both missing rows and rows owned by another recipient.
func (i *Inbox) MarkRead(ctx context.Context, recipientID, id uint64) error {
	if err := i.repo.MarkNotificationRead(ctx, recipientID, id); err != nil {
		return err
	}
	if err := i.repo.InvalidateUnreadCount(ctx, recipientID); err != nil {
		i.log.Warnf("invalidate unread cache recipient=%d: %v", recipientID, err)
	}
	return nil
}

// MarkAllRead stamps every unread row, returning how many changed.
func (i *Inbox) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	n, err := i.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	if err := i.repo.InvalidateUnreadCount(ctx, recipientID); err != nil {
		i.log.Warnf("invalidate unread cache recipient=%d: %v", recipientID, err)
	}
	return n, nil
}
