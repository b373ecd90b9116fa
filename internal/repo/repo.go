package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/event-stream-service/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a notification does not exist or belongs to
// another recipient.
var ErrNotFound = errors.New("notification not found")

const unreadCacheTTL = 5 * time.Minute

// RepositoryInterface restricts Repo methods (方便单元测试 mock)
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB

	AppendEvent(ctx context.Context, evt *model.Event) error
	EventsSince(ctx context.Context, after time.Time) ([]model.Event, error)

	PollUnrelayed(ctx context.Context, limit int) ([]model.Event, error)
	MarkRelayed(ctx context.Context, id uint64) error
	RelayEvent(ctx context.Context, evt model.Event) error

	AdminRecipients(ctx context.Context) ([]model.User, error)
	CreateNotification(ctx context.Context, n *model.Notification) error
	NotificationsFor(ctx context.Context, recipientID uint64, limit int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, recipientID uint64) (int64, error)
	MarkNotificationRead(ctx context.Context, recipientID, id uint64) error
	MarkAllRead(ctx context.Context, recipientID uint64) (int64, error)

	CacheUnreadCount(ctx context.Context, recipientID uint64, n int64) error
	GetCachedUnreadCount(ctx context.Context, recipientID uint64) (int64, error)
	InvalidateUnreadCount(ctx context.Context, recipientID uint64) error
}

// Repository implements RepositoryInterface.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// AppendEvent writes one immutable event row. OccurredAt is stamped here, by
// the log writer, so callers cannot backdate entries.
func (r *Repository) AppendEvent(ctx context.Context, evt *model.Event) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(evt).Error
}

// EventsSince returns events strictly newer than the watermark, oldest first.
func (r *Repository) EventsSince(ctx context.Context, after time.Time) ([]model.Event, error) {
	var evts []model.Event
	err := r.db.WithContext(ctx).
		Where("occurred_at > ?", after).
		Order("occurred_at asc").
		Find(&evts).Error
	return evts, err
}

// PollUnrelayed pulls events not yet republished to Kafka.
func (r *Repository) PollUnrelayed(ctx context.Context, limit int) ([]model.Event, error) {
	var evts []model.Event
	err := r.db.WithContext(ctx).
		Where("relayed=false").
		Order("occurred_at asc").
		Limit(limit).
		Find(&evts).Error
	return evts, err
}

// MarkRelayed sets the relay flag.
func (r *Repository) MarkRelayed(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.Event{}).Where("id=?", id).
		Updates(map[string]interface{}{"relayed": true, "relayed_at": &now}).Error
}

// RelayEvent sends one event to Kafka, keyed by channel.
func (r *Repository) RelayEvent(ctx context.Context, evt model.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(evt.Channel),
		Value: body,
		Time:  evt.OccurredAt,
	}
	return r.writer.WriteMessages(ctx, msg)
}

// AdminRecipients lists users holding an elevated role.
func (r *Repository) AdminRecipients(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("role IN ?", []string{model.RoleAdmin, model.RoleSuperAdmin}).
		Order("id").
		Find(&users).Error
	return users, err
}

// CreateNotification inserts one inbox row.
func (r *Repository) CreateNotification(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// NotificationsFor lists a recipient's inbox, newest first.
func (r *Repository) NotificationsFor(ctx context.Context, recipientID uint64, limit int) ([]model.Notification, error) {
	var ns []model.Notification
	err := r.db.WithContext(ctx).
		Where("recipient_id=?", recipientID).
		Order("created_at desc").
		Limit(limit).
		Find(&ns).Error
	return ns, err
}

// UnreadCount counts unread rows from the database.
func (r *Repository) UnreadCount(ctx context.Context, recipientID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id=? AND read_at IS NULL", recipientID).
		Count(&n).Error
	return n, err
}

// MarkNotificationRead sets read_at once; a second call is a no-op. Returns
// ErrNotFound when the row does not exist or belongs to someone else.
func (r *Repository) MarkNotificationRead(ctx context.Context, recipientID, id uint64) error {
	var n model.Notification
	err := r.db.WithContext(ctx).
		Where("id=? AND recipient_id=?", id, recipientID).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if n.ReadAt != nil {
		return nil
	}
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id=? AND read_at IS NULL", id).
		Update("read_at", &now).Error
}

// MarkAllRead stamps every unread row for the recipient.
func (r *Repository) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id=? AND read_at IS NULL", recipientID).
		Update("read_at", &now)
	return res.RowsAffected, res.Error
}

func unreadKey(recipientID uint64) string { return fmt.Sprintf("unread:%d", recipientID) }

// CacheUnreadCount writes Redis.
func (r *Repository) CacheUnreadCount(ctx context.Context, recipientID uint64, n int64) error {
	return r.rdb.Set(ctx, unreadKey(recipientID), strconv.FormatInt(n, 10), unreadCacheTTL).Err()
}

// GetCachedUnreadCount reads Redis.
func (r *Repository) GetCachedUnreadCount(ctx context.Context, recipientID uint64) (int64, error) {
	str, err := r.rdb.Get(ctx, unreadKey(recipientID)).Result()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(str, 10, 64)
}

// InvalidateUnreadCount drops the cached counter after inbox writes.
func (r *Repository) InvalidateUnreadCount(ctx context.Context, recipientID uint64) error {
	return r.rdb.Del(ctx, unreadKey(recipientID)).Err()
}
