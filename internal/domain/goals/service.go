package goals

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

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create stores a new goal at zero progress.
func (s *Service) Create(ctx context.Context, draft Draft) (Goal, error) {
	if strings.TrimSpace(draft.EmployeeID) == "" || strings.TrimSpace(draft.CreatedBy) == "" {
		return Goal{}, fmt.Errorf("%w: employeeId and createdBy are required", ErrInvalidGoal)
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return Goal{}, fmt.Errorf("%w: title is required", ErrInvalidGoal)
	}
	if draft.TimeBound.IsZero() {
		return Goal{}, fmt.Errorf("%w: timeBound is required", ErrInvalidGoal)
	}

	now := s.timestamp()
	goal := Goal{
		ID:          s.newID(),
		EmployeeID:  draft.EmployeeID,
		CreatedBy:   draft.CreatedBy,
		Title:       title,
		Description: strings.TrimSpace(draft.Description),
		Specific:    strings.TrimSpace(draft.Specific),
		Measurable:  strings.TrimSpace(draft.Measurable),
		Achievable:  strings.TrimSpace(draft.Achievable),
		Relevant:    strings.TrimSpace(draft.Relevant),
		TimeBound:   draft.TimeBound.UTC(),
		Status:      StatusNotStarted,
		Progress:    MinProgress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, goal); err != nil {
		return Goal{}, err
	}
	return goal, nil
}

func (s *Service) Get(ctx context.Context, id string) (Goal, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListForEmployee(ctx context.Context, employeeID string) ([]Goal, error) {
	return s.store.ListForEmployee(ctx, employeeID)
}

// UpdateProgress clamps progress to 0..100 and re-derives the status from it.
func (s *Service) UpdateProgress(ctx context.Context, id string, progress int) (Goal, error) {
	progress = clampProgress(progress)
	return s.store.Update(ctx, id, func(goal *Goal) error {
		goal.Progress = progress
		goal.Status = StatusFor(progress)
		goal.UpdatedAt = s.timestamp()
		return nil
	})
}

func (s *Service) UpdateDetails(ctx context.Context, id string, details Details) (Goal, error) {
	if details.Title != nil && strings.TrimSpace(*details.Title) == "" {
		return Goal{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidGoal)
	}
	if details.TimeBound != nil && details.TimeBound.IsZero() {
		return Goal{}, fmt.Errorf("%w: timeBound cannot be empty", ErrInvalidGoal)
	}
	return s.store.Update(ctx, id, func(goal *Goal) error {
		setTrimmed(&goal.Title, details.Title)
		setTrimmed(&goal.Description, details.Description)
		setTrimmed(&goal.Specific, details.Specific)
		setTrimmed(&goal.Measurable, details.Measurable)
		setTrimmed(&goal.Achievable, details.Achievable)
		setTrimmed(&goal.Relevant, details.Relevant)
		if details.TimeBound != nil {
			goal.TimeBound = details.TimeBound.UTC()
		}
		goal.UpdatedAt = s.timestamp()
		return nil
	})
}

func setTrimmed(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}

// AddComment records a comment and tells the goal's owner when someone else wrote it.
func (s *Service) AddComment(ctx context.Context, goalID, authorID, body string) (Comment, error) {
	body = strings.TrimSpace(body)
	if strings.TrimSpace(authorID) == "" || body == "" {
		return Comment{}, fmt.Errorf("%w: authorId and body are required", ErrInvalidGoal)
	}
	if utf8.RuneCountInString(body) > maxCommentLength {
		return Comment{}, fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidGoal, maxCommentLength)
	}
	goal, err := s.store.Get(ctx, goalID)
	if err != nil {
		return Comment{}, err
	}

	comment := Comment{
		ID:        s.newID(),
		GoalID:    goal.ID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: s.timestamp(),
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return Comment{}, err
	}
	if s.Notify != nil && authorID != goal.EmployeeID {
		if err := s.Notify.Notify(ctx, goal.EmployeeID, NotificationGoalComment, "New comment on "+goal.Title, body); err != nil {
			s.logger.With(requestctx.Fields(ctx)...).Warn("goal comment notification failed", zap.String("goalId", goal.ID), zap.Error(err))
		}
	}
	return comment, nil
}

func (s *Service) Comments(ctx context.Context, goalID string) ([]Comment, error) {
	if _, err := s.store.Get(ctx, goalID); err != nil {
		return nil, err
	}
	return s.store.Comments(ctx, goalID)
}
