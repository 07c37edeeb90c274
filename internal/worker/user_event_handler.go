// Package worker consumes user lifecycle events and keeps the side systems
// (search index, deletion archive, audit mail) in step with Postgres.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/medrecords-users/internal/domain/event"
	"github.com/oksasatya/medrecords-users/internal/infrastructure/search"
	"github.com/oksasatya/medrecords-users/pkg/helpers"
	"github.com/oksasatya/medrecords-users/pkg/mailer/templates"
)

type Indexer interface {
	Upsert(ctx context.Context, doc search.UserDocument) error
	Delete(ctx context.Context, id string) error
}

type Archiver interface {
	Archive(ctx context.Context, userID string, deletedAt time.Time, snapshot any) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, data templates.AuditData) error
}

// UserEventHandler applies one event to every configured side system.
// Nil components are skipped.
type UserEventHandler struct {
	Index   Indexer
	Archive Archiver
	Notify  Notifier
	Logger  *logrus.Logger
	Timeout time.Duration
}

var summaries = map[event.Type]string{
	event.UserCreated:     "User created",
	event.UserUpdated:     "User updated",
	event.UserVoided:      "User voided",
	event.UserUnvoided:    "User restored",
	event.UserDeleted:     "User deleted",
	event.UserRoleGranted: "Role granted",
	event.UserRoleRevoked: "Role revoked",
}

func (h *UserEventHandler) Handle(ctx context.Context, ev event.UserEvent) error {
	if _, ok := summaries[ev.Type]; !ok {
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	var archiveURL string
	if ev.Type == event.UserDeleted {
		if h.Archive != nil {
			url, err := h.Archive.Archive(ctx, ev.User.ID, ev.OccurredAt, ev)
			if err != nil {
				return fmt.Errorf("archive %s: %w", ev.User.ID, err)
			}
			archiveURL = url
		}
		if h.Index != nil {
			if err := h.Index.Delete(ctx, ev.User.ID); err != nil {
				return fmt.Errorf("unindex %s: %w", ev.User.ID, err)
			}
		}
	} else if h.Index != nil {
		if err := h.Index.Upsert(ctx, search.DocumentFor(ev.User)); err != nil {
			return fmt.Errorf("index %s: %w", ev.User.ID, err)
		}
	}

	if ev.Type.Audited() && h.Notify != nil {
		if err := h.Notify.Notify(ctx, auditData(ev, archiveURL)); err != nil {
			return fmt.Errorf("notify %s: %w", ev.Type, err)
		}
	}
	return nil
}

func auditData(ev event.UserEvent, archiveURL string) templates.AuditData {
	return templates.AuditData{
		Event:      string(ev.Type),
		Summary:    summaries[ev.Type],
		Username:   ev.User.Username,
		FullName:   fullName(ev.User),
		UserID:     ev.User.ID,
		Actor:      ev.Actor,
		Role:       ev.Role,
		Reason:     ev.Reason,
		OccurredAt: ev.OccurredAt,
		ArchiveURL: archiveURL,
	}
}

func fullName(s event.UserSnapshot) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.GivenName, s.MiddleName, s.FamilyName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Process handles a single delivery. Undecodable messages are dropped;
// a failed handle is requeued once and dropped on redelivery.
func (h *UserEventHandler) Process(ctx context.Context, d amqp.Delivery) {
	var ev event.UserEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		helpers.LogError(h.Logger, "bad user event", err, logrus.Fields{"message_id": d.MessageId})
		_ = d.Nack(false, false)
		return
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := h.Handle(c, ev); err != nil {
		helpers.LogError(h.Logger, "user event failed", err, logrus.Fields{
			"event_id":    ev.ID,
			"event":       ev.Type,
			"user_id":     ev.User.ID,
			"redelivered": d.Redelivered,
		})
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

// Run processes deliveries until the channel closes or ctx is done.
func (h *UserEventHandler) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			h.Process(ctx, d)
		}
	}
}
