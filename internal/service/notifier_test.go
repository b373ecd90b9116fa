package service

import (
	"context"
	"errors"
	"testing"

	"github.com/richardliu001/event-stream-service/internal/logger"
	"github.com/richardliu001/event-stream-service/internal/model"
	"github.com/richardliu001/event-stream-service/internal/repo"
	"github.com/stretchr/testify/assert"
)

type testEntity struct {
	kind string
	id   uint64
	name string
	path string
}

func (e testEntity) Kind() string        { return e.kind }
func (e testEntity) PrimaryID() uint64   { return e.id }
func (e testEntity) DisplayName() string { return e.name }
func (e testEntity) ActionPath() string  { return e.path }

func seedUsers(t *testing.T, r *repo.Repository, users ...model.User) {
	for i := range users {
		assert.NoError(t, r.DB(context.Background()).Create(&users[i]).Error)
	}
}

func TestNotifyAdmins_FanOutCompleteness(t *testing.T) {
	r := newTestRepo(t, "fanOut")
	log, _ := logger.NewLogger()
	n := NewNotifier(r, log)
	ctx := context.Background()

	seedUsers(t, r,
		model.User{ID: 1, Name: "a", Email: "a@x.io", Role: model.RoleAdmin},
		model.User{ID: 2, Name: "b", Email: "b@x.io", Role: "user"},
		model.User{ID: 3, Name: "c", Email: "c@x.io", Role: model.RoleSuperAdmin},
	)

	entity := testEntity{kind: "client", id: 42, name: "Acme", path: "/clients/42"}
	delivered, err := n.NotifyAdmins(ctx, entity, "created", "")
	assert.NoError(t, err)
	assert.Equal(t, 2, delivered)

	for _, recipient := range []uint64{1, 3} {
		rows, err := r.NotificationsFor(ctx, recipient, 10)
		assert.NoError(t, err)
		assert.Len(t, rows, 1)
		assert.Equal(t, "A new client was created", rows[0].Title)
		assert.Equal(t, "client", rows[0].ModelType)
		assert.Equal(t, uint64(42), rows[0].ModelID)
		assert.Equal(t, "/clients/42", rows[0].ActionURL)
		assert.Contains(t, rows[0].Message, "Acme")
		assert.Nil(t, rows[0].ReadAt)
	}
}

func TestNotifyAdmins_TitleMapping(t *testing.T) {
	assert.Equal(t, "A new invoice was created", titleFor("created", "invoice"))
	assert.Equal(t, "A quote was updated", titleFor("updated", "quote"))
	assert.Equal(t, "A client was deleted", titleFor("deleted", "client"))
	// unrecognized actions fall back to the literal default
	assert.Equal(t, "Event client", titleFor("archived", "client"))
}

func TestNotifyAdmins_CustomMessage(t *testing.T) {
	r := newTestRepo(t, "fanOutCustom")
	log, _ := logger.NewLogger()
	n := NewNotifier(r, log)
	ctx := context.Background()

	seedUsers(t, r, model.User{ID: 1, Name: "a", Email: "a1@x.io", Role: model.RoleAdmin})

	entity := testEntity{kind: "quote", id: 9, name: "Q-2026-009", path: "/quotes/9"}
	delivered, err := n.NotifyAdmins(ctx, entity, "updated", "totals recalculated")
	assert.NoError(t, err)
	assert.Equal(t, 1, delivered)

	rows, _ := r.NotificationsFor(ctx, 1, 10)
	assert.Equal(t, "totals recalculated", rows[0].Message)
}

func TestNotifyAdmins_NoRecipientsIsNoop(t *testing.T) {
	r := newTestRepo(t, "fanOutEmpty")
	log, _ := logger.NewLogger()
	n := NewNotifier(r, log)

	delivered, err := n.NotifyAdmins(context.Background(), testEntity{kind: "client", id: 1}, "created", "")
	assert.NoError(t, err)
	assert.Equal(t, 0, delivered)
}

// failingRepo fails the insert for one recipient to exercise per-recipient
// failure isolation.
type failingRepo struct {
	repo.RepositoryInterface
	failFor uint64
}

func (f *failingRepo) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.RecipientID == f.failFor {
		return errors.New("disk full")
	}
	return f.RepositoryInterface.CreateNotification(ctx, n)
}

func TestNotifyAdmins_PerRecipientIsolation(t *testing.T) {
	r := newTestRepo(t, "fanOutIsolation")
	log, _ := logger.NewLogger()
	n := NewNotifier(&failingRepo{RepositoryInterface: r, failFor: 2}, log)
	ctx := context.Background()

	seedUsers(t, r,
		model.User{ID: 1, Name: "a", Email: "a2@x.io", Role: model.RoleAdmin},
		model.User{ID: 2, Name: "b", Email: "b2@x.io", Role: model.RoleAdmin},
		model.User{ID: 3, Name: "c", Email: "c2@x.io", Role: model.RoleAdmin},
	)

	delivered, err := n.NotifyAdmins(ctx, testEntity{kind: "invoice", id: 5, name: "F-5", path: "/invoices/5"}, "deleted", "")
	assert.Error(t, err, "first failure is surfaced")
	assert.Equal(t, 2, delivered, "remaining recipients still receive theirs")

	rows, _ := r.NotificationsFor(ctx, 3, 10)
	assert.Len(t, rows, 1)
	rows, _ = r.NotificationsFor(ctx, 2, 10)
	assert.Len(t, rows, 0)
}
