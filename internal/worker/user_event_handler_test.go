package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/medrecords-users/internal/domain/event"
	"github.com/oksasatya/medrecords-users/internal/infrastructure/search"
	"github.com/oksasatya/medrecords-users/pkg/mailer/templates"
)

type mockIndexer struct{ mock.Mock }

func (m *mockIndexer) Upsert(ctx context.Context, doc search.UserDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockIndexer) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockArchiver struct{ mock.Mock }

func (m *mockArchiver) Archive(ctx context.Context, userID string, deletedAt time.Time, snapshot any) (string, error) {
	args := m.Called(ctx, userID, deletedAt, snapshot)
	return args.String(0), args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, data templates.AuditData) error {
	return m.Called(ctx, data).Error(0)
}

// ack records the outcome of one delivery.
type ack struct {
	acked, nacked, requeued bool
}

func (a *ack) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *ack) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *ack) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

var at = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newEvent(typ event.Type) event.UserEvent {
	return event.UserEvent{
		ID: "ev-1", Type: typ, Actor: "admin", OccurredAt: at,
		User: event.UserSnapshot{ID: "u1", Username: "jdoe", GivenName: "John", FamilyName: "Doe", Roles: []string{"Clerk"}},
	}
}

type fixture struct {
	index   *mockIndexer
	archive *mockArchiver
	notify  *mockNotifier
	h       *UserEventHandler
}

func newFixture(t *testing.T) *fixture {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	f := &fixture{index: &mockIndexer{}, archive: &mockArchiver{}, notify: &mockNotifier{}}
	f.h = &UserEventHandler{Index: f.index, Archive: f.archive, Notify: f.notify, Logger: logger}
	t.Cleanup(func() {
		f.index.AssertExpectations(t)
		f.archive.AssertExpectations(t)
		f.notify.AssertExpectations(t)
	})
	return f
}

func TestCreatedIsIndexedNotMailed(t *testing.T) {
	f := newFixture(t)
	f.index.On("Upsert", mock.Anything, mock.MatchedBy(func(d search.UserDocument) bool {
		return d.ID == "u1" && d.Username == "jdoe"
	})).Return(nil)

	require.NoError(t, f.h.Handle(context.Background(), newEvent(event.UserCreated)))
	f.notify.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestVoidedIsIndexedAndMailed(t *testing.T) {
	f := newFixture(t)
	ev := newEvent(event.UserVoided)
	ev.Reason = "left clinic"
	f.index.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.notify.On("Notify", mock.Anything, mock.MatchedBy(func(d templates.AuditData) bool {
		return d.Summary == "User voided" && d.Reason == "left clinic" && d.FullName == "John Doe" && d.Actor == "admin"
	})).Return(nil)

	require.NoError(t, f.h.Handle(context.Background(), ev))
}

func TestDeletedIsArchivedThenUnindexed(t *testing.T) {
	f := newFixture(t)
	ev := newEvent(event.UserDeleted)
	f.archive.On("Archive", mock.Anything, "u1", at, ev).Return("gs://bucket/deleted-users/2024/06/01/u1.json", nil)
	f.index.On("Delete", mock.Anything, "u1").Return(nil)
	f.notify.On("Notify", mock.Anything, mock.MatchedBy(func(d templates.AuditData) bool {
		return d.ArchiveURL == "gs://bucket/deleted-users/2024/06/01/u1.json"
	})).Return(nil)

	require.NoError(t, f.h.Handle(context.Background(), ev))
	f.index.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestArchiveFailureStopsDelete(t *testing.T) {
	f := newFixture(t)
	f.archive.On("Archive", mock.Anything, "u1", at, mock.Anything).Return("", errors.New("bucket missing"))

	err := f.h.Handle(context.Background(), newEvent(event.UserDeleted))
	assert.ErrorContains(t, err, "bucket missing")
	f.index.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestNilComponentsAreSkipped(t *testing.T) {
	h := &UserEventHandler{}
	assert.NoError(t, h.Handle(context.Background(), newEvent(event.UserDeleted)))
	assert.Error(t, h.Handle(context.Background(), newEvent("user.renamed")))
}

func delivery(t *testing.T, body any, redelivered bool) (amqp.Delivery, *ack) {
	a := &ack{}
	var b []byte
	switch v := body.(type) {
	case []byte:
		b = v
	default:
		var err error
		b, err = json.Marshal(v)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: a, Body: b, Redelivered: redelivered}, a
}

func TestProcessAcks(t *testing.T) {
	f := newFixture(t)
	f.index.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	d, a := delivery(t, newEvent(event.UserUpdated), false)
	f.h.Process(context.Background(), d)
	assert.True(t, a.acked)
	assert.False(t, a.nacked)
}

func TestProcessDropsGarbage(t *testing.T) {
	f := newFixture(t)
	d, a := delivery(t, []byte("{not json"), false)
	f.h.Process(context.Background(), d)
	assert.True(t, a.nacked)
	assert.False(t, a.requeued)
}

func TestProcessRequeuesOnce(t *testing.T) {
	f := newFixture(t)
	f.index.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("es down"))

	d, a := delivery(t, newEvent(event.UserUpdated), false)
	f.h.Process(context.Background(), d)
	assert.True(t, a.nacked)
	assert.True(t, a.requeued)

	d, a = delivery(t, newEvent(event.UserUpdated), true)
	f.h.Process(context.Background(), d)
	assert.True(t, a.nacked)
	assert.False(t, a.requeued)
}

func TestRunStopsWhenChannelCloses(t *testing.T) {
	f := newFixture(t)
	f.index.On("Upsert", mock.Anything, mock.Anything).Return(nil).Twice()

	ch := make(chan amqp.Delivery, 2)
	d1, a1 := delivery(t, newEvent(event.UserCreated), false)
	d2, a2 := delivery(t, newEvent(event.UserUnvoided), false)
	ch <- d1
	ch <- d2
	close(ch)

	f.h.Run(context.Background(), ch)
	assert.True(t, a1.acked)
	assert.True(t, a2.acked)
}
