package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier delivers in-app notifications to users.
type Notifier interface {
	Notify(ctx context.Context, userID, ntype, title, body string) error
}

// Observer receives task metrics.
type Observer interface {
	ObserveTaskMutation(op string)
	ObserveCycleLaunch(outcome string, members int)
	ObserveRollup(duration time.Duration)
}

// FrameworkLookup reports whether a framework id is configured.
type FrameworkLookup interface {
	Has(id string) bool
}

type Service struct {
	store      StoreAPI
	Frameworks FrameworkLookup
	Notify     Notifier
	Metrics    Observer
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

func NewService(store StoreAPI, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		Metrics: noopObserver{},
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) observer() Observer {
	if s.Metrics == nil {
		return noopObserver{}
	}
	return s.Metrics
}

// CreateTask stores a new task and returns its id.
func (s *Service) CreateTask(ctx context.Context, spec Spec) (string, error) {
	task, err := s.build(spec)
	if err != nil {
		return "", err
	}
	if spec.ParentID != "" {
		parent, err := s.store.Get(ctx, spec.ParentID)
		if err != nil {
			return "", err
		}
		if _, ok := parent.Parent(); !ok {
			return "", ErrNotParentTask
		}
	}
	if err := s.store.Insert(ctx, task); err != nil {
		return "", err
	}
	s.observer().ObserveTaskMutation(OpCreate)
	if spec.ParentID != "" {
		if _, err := s.RecomputeParentProgress(ctx, spec.ParentID); err != nil {
			return "", err
		}
	}
	return task.ID, nil
}

func (s *Service) build(spec Spec) (Task, error) {
	if strings.TrimSpace(spec.AssignedTo) == "" {
		return Task{}, fmt.Errorf("%w: assignedTo is required", ErrInvalidTaskSpec)
	}
	if strings.TrimSpace(spec.Title) == "" {
		return Task{}, fmt.Errorf("%w: title is required", ErrInvalidTaskSpec)
	}
	if spec.IsParent && spec.ParentID != "" {
		return Task{}, fmt.Errorf("%w: a task cannot be both parent and child", ErrInvalidTaskSpec)
	}
	if spec.Type == "" {
		spec.Type = TypeGoalUpdate
	}
	if !spec.Type.Valid() {
		return Task{}, fmt.Errorf("%w: unknown type %q", ErrInvalidTaskSpec, spec.Type)
	}
	if spec.Status == "" {
		spec.Status = StatusPending
	}
	if !spec.Status.Valid() {
		return Task{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTaskSpec, spec.Status)
	}

	now := s.timestamp()
	task := Task{
		ID:             s.newID(),
		Type:           spec.Type,
		Title:          spec.Title,
		Description:    spec.Description,
		AssignedTo:     spec.AssignedTo,
		AssignedToName: spec.AssignedToName,
		AssignedBy:     spec.AssignedBy,
		DueDate:        spec.DueDate,
		Status:         spec.Status,
		FrameworkID:    spec.FrameworkID,
		Kind:           Standalone{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	switch {
	case spec.IsParent:
		task.Kind = Parent{}
	case spec.ParentID != "":
		task.Kind = Child{ParentID: spec.ParentID}
	}
	return task, nil
}

func (s *Service) Get(ctx context.Context, id string) (Task, error) {
	return s.store.Get(ctx, id)
}

// UpdateTask applies patch and refreshes updatedAt. A status change on a
// child task is followed by a rollup of its parent. Parent status is derived
// and cannot be patched.
func (s *Service) UpdateTask(ctx context.Context, id string, patch Patch) (Task, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return Task{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidTaskSpec)
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return Task{}, fmt.Errorf("%w: unknown type %q", ErrInvalidTaskSpec, *patch.Type)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return Task{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTaskSpec, *patch.Status)
	}

	var statusChanged bool
	updated, err := s.store.Update(ctx, id, func(task *Task) error {
		if _, ok := task.Parent(); ok && patch.Status != nil {
			return fmt.Errorf("%w: parent status follows its sub-tasks", ErrInvalidTaskSpec)
		}
		statusChanged = patch.Status != nil && *patch.Status != task.Status
		applyPatch(task, patch)
		task.UpdatedAt = s.timestamp()
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	s.observer().ObserveTaskMutation(OpUpdate)

	if parentID := updated.ParentID(); parentID != "" && statusChanged {
		if _, err := s.RecomputeParentProgress(ctx, parentID); err != nil {
			s.logger.Warn("parent rollup after update failed", zap.String("taskId", id), zap.String("parentId", parentID), zap.Error(err))
		}
	}
	return updated, nil
}

func applyPatch(task *Task, patch Patch) {
	if patch.Type != nil {
		task.Type = *patch.Type
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.DueDate != nil {
		task.DueDate = *patch.DueDate
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.FrameworkID != nil {
		task.FrameworkID = *patch.FrameworkID
	}
}

// DeleteTask removes id. Deleting a missing task is a no-op.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	removed, found, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	s.observer().ObserveTaskMutation(OpDelete)
	if parentID := removed.ParentID(); parentID != "" {
		if _, err := s.RecomputeParentProgress(ctx, parentID); err != nil && !errors.Is(err, ErrTaskNotFound) {
			s.logger.Warn("parent rollup after delete failed", zap.String("taskId", id), zap.String("parentId", parentID), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) TasksByAssignee(ctx context.Context, userID string) ([]Task, error) {
	return s.store.ByAssignee(ctx, userID)
}

func (s *Service) TasksByAssigner(ctx context.Context, userID string) ([]Task, error) {
	return s.store.ByAssigner(ctx, userID)
}

func (s *Service) ChildTasks(ctx context.Context, parentID string) ([]Task, error) {
	return s.store.Children(ctx, parentID)
}

// RecomputeParentProgress re-derives the parent's rollup fields from its children.
func (s *Service) RecomputeParentProgress(ctx context.Context, parentID string) (Task, error) {
	start := time.Now()
	parent, err := s.store.Rollup(ctx, parentID, func(parent *Task, children []Task) error {
		before := *parent
		if err := Recompute(parent, children); err != nil {
			return err
		}
		if parent.Status != before.Status || parent.Kind != before.Kind {
			parent.UpdatedAt = s.timestamp()
		}
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	s.observer().ObserveRollup(time.Since(start))
	s.observer().ObserveTaskMutation(OpRollup)
	return parent, nil
}

// ReconcileParents recomputes every parent task and reports how many were processed.
func (s *Service) ReconcileParents(ctx context.Context) (int, error) {
	parents, err := s.store.Parents(ctx)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, parent := range parents {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.RecomputeParentProgress(ctx, parent.ID); err != nil {
			if errors.Is(err, ErrTaskNotFound) {
				continue
			}
			return done, err
		}
		done++
	}
	return done, nil
}

type noopObserver struct{}

func (noopObserver) ObserveTaskMutation(string)     {}
func (noopObserver) ObserveCycleLaunch(string, int) {}
func (noopObserver) ObserveRollup(time.Duration)    {}
