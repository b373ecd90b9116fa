package service

import (
	"context"
	"fmt"

	"github.com/richardliu001/event-stream-service/internal/model"
	"github.com/richardliu001/event-stream-service/internal/repo"
	"go.uber.org/zap"
)

// Entity is the minimal surface a business record must expose to trigger an
// admin notification.
type Entity interface {
	Kind() string
	PrimaryID() uint64
	DisplayName() string
	ActionPath() string
}

// Notifier fans one qualifying entity write out to every elevated-role user
// as a database-backed inbox row.
type Notifier struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

// NewNotifier returns Notifier.
func NewNotifier(r repo.RepositoryInterface, logger *zap.SugaredLogger) *Notifier {
	return &Notifier{repo: r, log: logger}
}

func titleFor(action, kind string) string {
	switch action {
	case "created":
		return fmt.Sprintf("A new %s was created", kind)
	case "updated":
		return fmt.Sprintf("A %s was updated", kind)
	case "deleted":
		return fmt.Sprintf("A %s was deleted", kind)
	default:
		return fmt.Sprintf("Event %s", kind)
	}
}

// NotifyAdmins writes one notification per elevated-role user. Each
// recipient's insert runs in its own failure boundary: a failed write is
// logged and the loop continues with the remaining recipients. Returns the
// number delivered and the first insert error, if any.
func (n *Notifier) NotifyAdmins(ctx context.Context, entity Entity, action, customMessage string) (int, error) {
	recipients, err := n.repo.AdminRecipients(ctx)
	if err != nil {
		return 0, err
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	message := customMessage
	if message == "" {
		message = fmt.Sprintf("%s %q was %s", entity.Kind(), entity.DisplayName(), action)
	}
	title := titleFor(action, entity.Kind())

	delivered := 0
	var firstErr error
	for _, u := range recipients {
		row := &model.Notification{
			RecipientID: u.ID,
			Title:       title,
			Message:     message,
			ModelType:   entity.Kind(),
			ModelID:     entity.PrimaryID(),
			ActionURL:   entity.ActionPath(),
		}
		if err := n.repo.CreateNotification(ctx, row); err != nil {
			n.log.Errorf("notify recipient=%d %s/%d: %v", u.ID, entity.Kind(), entity.PrimaryID(), err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delivered++
		if err := n.repo.InvalidateUnreadCount(ctx, u.ID); err != nil {
			n.log.Warnf("invalidate unread cache recipient=%d: %v", u.ID, err)
		}
	}
	return delivered, firstErr
}
