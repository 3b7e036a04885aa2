package evaluations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"perfhub/internal/domain/frameworks"
	"perfhub/internal/requestctx"
)

type FrameworkSource interface {
	Snapshot(id string) (frameworks.Framework, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, ntype, title, body string) error
}

type Service struct {
	store      StoreAPI
	frameworks FrameworkSource
	Notify     Notifier
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

func NewService(store StoreAPI, source FrameworkSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		frameworks: source,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create stores a DRAFT evaluation with a snapshot of its framework.
func (s *Service) Create(ctx context.Context, draft Draft) (Evaluation, error) {
	if strings.TrimSpace(draft.EmployeeID) == "" || strings.TrimSpace(draft.SupervisorID) == "" {
		return Evaluation{}, fmt.Errorf("%w: employeeId and supervisorId are required", ErrInvalidEvaluation)
	}
	if strings.TrimSpace(draft.FrameworkID) == "" {
		return Evaluation{}, fmt.Errorf("%w: frameworkId is required", ErrInvalidEvaluation)
	}
	framework, err := s.frameworks.Snapshot(draft.FrameworkID)
	if err != nil {
		if errors.Is(err, frameworks.ErrFrameworkNotFound) {
			return Evaluation{}, fmt.Errorf("%w: %s", ErrUnknownFramework, draft.FrameworkID)
		}
		return Evaluation{}, err
	}
	ratings, err := normalizeRatings(framework, draft.Ratings)
	if err != nil {
		return Evaluation{}, err
	}

	now := s.timestamp()
	evaluation := Evaluation{
		ID:              s.newID(),
		EmployeeID:      draft.EmployeeID,
		SupervisorID:    draft.SupervisorID,
		Period:          draft.Period,
		FrameworkID:     framework.ID,
		Framework:       framework,
		Ratings:         ratings,
		OverallComments: draft.OverallComments,
		Strengths:       nonNil(draft.Strengths),
		Improvements:    nonNil(draft.Improvements),
		Status:          StatusDraft,
		OverallScore:    Score(ratings),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Insert(ctx, evaluation); err != nil {
		return Evaluation{}, err
	}
	s.logger.With(requestctx.Fields(ctx)...).Info("evaluation created", zap.String("evaluationId", evaluation.ID), zap.String("employeeId", evaluation.EmployeeID), zap.Int("frameworkVersion", framework.Version))
	return evaluation, nil
}

func (s *Service) Get(ctx context.Context, id string) (Evaluation, error) {
	return s.store.Get(ctx, id)
}

// Update edits a non-completed evaluation. Changing ratings recomputes the score.
func (s *Service) Update(ctx context.Context, id string, changes Changes) (Evaluation, error) {
	return s.store.Update(ctx, id, func(e *Evaluation) error {
		if e.Status == StatusCompleted {
			return ErrEvaluationCompleted
		}
		if changes.Ratings != nil {
			ratings, err := normalizeRatings(e.Framework, *changes.Ratings)
			if err != nil {
				return err
			}
			e.Ratings = ratings
			e.OverallScore = Score(ratings)
		}
		if changes.Period != nil {
			e.Period = *changes.Period
		}
		if changes.OverallComments != nil {
			e.OverallComments = *changes.OverallComments
		}
		if changes.Strengths != nil {
			e.Strengths = nonNil(*changes.Strengths)
		}
		if changes.Improvements != nil {
			e.Improvements = nonNil(*changes.Improvements)
		}
		e.UpdatedAt = s.timestamp()
		return nil
	})
}

// Transition moves an evaluation along DRAFT → IN_PROGRESS → PENDING_REVIEW → COMPLETED.
// Completing requires a rating for every framework category.
func (s *Service) Transition(ctx context.Context, id string, to Status) (Evaluation, error) {
	if !to.Valid() {
		return Evaluation{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	var from Status
	updated, err := s.store.Update(ctx, id, func(e *Evaluation) error {
		from = e.Status
		if e.Status == StatusCompleted {
			return ErrEvaluationCompleted
		}
		if e.Status == to {
			return nil
		}
		if !CanTransition(e.Status, to) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, e.Status, to)
		}
		if to == StatusCompleted {
			if missing := unrated(*e); len(missing) > 0 {
				return fmt.Errorf("%w: unrated categories %s", ErrInvalidTransition, strings.Join(missing, ", "))
			}
		}
		e.Status = to
		e.UpdatedAt = s.timestamp()
		return nil
	})
	if err != nil {
		return Evaluation{}, err
	}
	if from != to {
		s.notifyTransition(ctx, updated)
	}
	return updated, nil
}

func (s *Service) notifyTransition(ctx context.Context, e Evaluation) {
	if s.Notify == nil {
		return
	}
	var ntype, title string
	switch e.Status {
	case StatusInProgress:
		ntype, title = NotificationEvaluationStarted, "Your evaluation for "+e.Period+" has started"
	case StatusCompleted:
		ntype, title = NotificationEvaluationCompleted, "Your evaluation for "+e.Period+" is complete"
	default:
		return
	}
	if err := s.Notify.Notify(ctx, e.EmployeeID, ntype, title, e.OverallComments); err != nil {
		s.logger.With(requestctx.Fields(ctx)...).Warn("evaluation notification failed", zap.String("evaluationId", e.ID), zap.Error(err))
	}
}

// Delete removes an evaluation that is not completed. Missing ids are ignored.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteIf(ctx, id, func(e Evaluation) error {
		if e.Status == StatusCompleted {
			return ErrEvaluationCompleted
		}
		return nil
	})
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Evaluation, error) {
	return s.store.List(ctx, filter)
}

func (s *Service) ListByEmployee(ctx context.Context, employeeID string) ([]Evaluation, error) {
	return s.store.List(ctx, Filter{EmployeeID: employeeID})
}

func (s *Service) ListBySupervisor(ctx context.Context, supervisorID string) ([]Evaluation, error) {
	return s.store.List(ctx, Filter{SupervisorID: supervisorID})
}

func normalizeRatings(framework frameworks.Framework, ratings []Rating) ([]Rating, error) {
	out := make([]Rating, 0, len(ratings))
	seen := make(map[string]struct{}, len(ratings))
	for _, rating := range ratings {
		if _, ok := framework.Category(rating.CategoryID); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, rating.CategoryID)
		}
		if _, ok := seen[rating.CategoryID]; ok {
			return nil, fmt.Errorf("%w: category %q rated twice", ErrInvalidEvaluation, rating.CategoryID)
		}
		seen[rating.CategoryID] = struct{}{}
		if !framework.RatingScale.Contains(rating.Value) {
			return nil, fmt.Errorf("%w: %v for %q", ErrRatingOutOfScale, rating.Value, rating.CategoryID)
		}
		rating.Label = framework.RatingScale.Label(rating.Value)
		out = append(out, rating)
	}
	return out, nil
}

func unrated(e Evaluation) []string {
	rated := make(map[string]struct{}, len(e.Ratings))
	for _, r := range e.Ratings {
		rated[r.CategoryID] = struct{}{}
	}
	var missing []string
	for _, c := range e.Framework.Categories {
		if _, ok := rated[c.ID]; !ok {
			missing = append(missing, c.ID)
		}
	}
	return missing
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
