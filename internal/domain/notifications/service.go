package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"perfhub/internal/requestctx"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// EmailLookup resolves a user's email address for outgoing mail.
type EmailLookup interface {
	Email(ctx context.Context, userID string) (string, error)
}

type Service struct {
	store        StoreAPI
	Mailer       Mailer
	Emails       EmailLookup
	EmailEnabled bool
	DefaultFrom  string
	logger       *zap.Logger
	now          func() time.Time
	newID        func() string
}

func New(store StoreAPI, mailer Mailer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		Mailer:      mailer,
		DefaultFrom: "no-reply@perfhub.local",
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Notify stores an in-app notification and, when mail is configured, emails
// the user. Mail failures are logged and never returned.
func (s *Service) Notify(ctx context.Context, userID, ntype, title, body string) error {
	_, err := s.Create(ctx, userID, ntype, title, body)
	return err
}

func (s *Service) Create(ctx context.Context, userID, ntype, title, body string) (Notification, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(ntype) == "" {
		return Notification{}, fmt.Errorf("%w: userId and type are required", ErrInvalidNotification)
	}
	n := Notification{
		ID:        s.newID(),
		UserID:    userID,
		Type:      ntype,
		Title:     title,
		Body:      body,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return Notification{}, err
	}
	s.sendEmail(ctx, n)
	return n, nil
}

func (s *Service) sendEmail(ctx context.Context, n Notification) {
	if s.Mailer == nil || s.Emails == nil || !s.EmailEnabled {
		return
	}
	email, err := s.Emails.Email(ctx, n.UserID)
	if err != nil {
		s.logger.With(requestctx.Fields(ctx)...).Warn("notification email lookup failed", zap.String("userId", n.UserID), zap.Error(err))
		return
	}
	if email == "" {
		return
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, email, n.Title, n.Body); err != nil {
		s.logger.With(requestctx.Fields(ctx)...).Warn("notification email send failed", zap.String("notificationId", n.ID), zap.Error(err))
	}
}

// List clamps limit to [1, MaxLimit], using DefaultLimit for non-positive values.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListNotifications(ctx, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	return s.store.CountNotifications(ctx, userID)
}

func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID, s.now().UTC().Truncate(time.Microsecond))
}
