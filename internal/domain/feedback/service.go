package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"perfhub/internal/requestctx"
)

type Notifier interface {
	Notify(ctx context.Context, userID, ntype, title, body string) error
}

type Service struct {
	store  StoreAPI
	Notify Notifier
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(store StoreAPI, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now, newID: uuid.NewString}
}

// Create records feedback and tells the employee about it.
func (s *Service) Create(ctx context.Context, draft Draft) (Feedback, error) {
	content := strings.TrimSpace(draft.Content)
	if strings.TrimSpace(draft.EmployeeID) == "" || strings.TrimSpace(draft.AuthorID) == "" {
		return Feedback{}, fmt.Errorf("%w: employeeId and authorId are required", ErrInvalidFeedback)
	}
	if utf8.RuneCountInString(content) < minContentLength {
		return Feedback{}, fmt.Errorf("%w: content must be at least %d characters", ErrInvalidFeedback, minContentLength)
	}
	ftype := draft.Type
	if ftype == "" {
		ftype = TypeAdHoc
	}
	if !ftype.Valid() {
		return Feedback{}, fmt.Errorf("%w: unknown type %q", ErrInvalidFeedback, ftype)
	}

	item := Feedback{
		ID:         s.newID(),
		EmployeeID: draft.EmployeeID,
		AuthorID:   draft.AuthorID,
		Type:       ftype,
		Content:    content,
		CreatedAt:  s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.Insert(ctx, item); err != nil {
		return Feedback{}, err
	}
	if s.Notify != nil {
		if err := s.Notify.Notify(ctx, item.EmployeeID, NotificationFeedbackReceived, "You received new feedback", item.Content); err != nil {
			s.logger.With(requestctx.Fields(ctx)...).Warn("feedback notification failed", zap.String("feedbackId", item.ID), zap.Error(err))
		}
	}
	return item, nil
}

func (s *Service) Get(ctx context.Context, id string) (Feedback, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListForEmployee(ctx context.Context, employeeID string) ([]Feedback, error) {
	return s.store.ListForEmployee(ctx, employeeID)
}

func (s *Service) ListByAuthor(ctx context.Context, authorID string) ([]Feedback, error) {
	return s.store.ListByAuthor(ctx, authorID)
}
