package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"perfhub/internal/domain/auth"
	"perfhub/internal/requestctx"
)

// NotificationReviewAssigned is the notification type sent to cycle members.
const NotificationReviewAssigned = "review_assigned"

type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LaunchCycle creates one parent task owned by initiator and one child task per
// member, all in a single batch. It returns the parent task id.
func (s *Service) LaunchCycle(ctx context.Context, initiator auth.User, members []Member, frameworkID, message string, dueDate time.Time) (string, error) {
	if len(members) == 0 {
		s.observer().ObserveCycleLaunch("rejected", 0)
		return "", ErrNoMembersSelected
	}
	if strings.TrimSpace(initiator.ID) == "" {
		return "", fmt.Errorf("%w: initiator is required", ErrInvalidTaskSpec)
	}
	seen := make(map[string]struct{}, len(members))
	for i, member := range members {
		if strings.TrimSpace(member.ID) == "" {
			return "", fmt.Errorf("%w: member %d has no id", ErrInvalidTaskSpec, i)
		}
		if _, ok := seen[member.ID]; ok {
			return "", fmt.Errorf("%w: member %s listed twice", ErrInvalidTaskSpec, member.ID)
		}
		seen[member.ID] = struct{}{}
	}
	if frameworkID != "" && s.Frameworks != nil && !s.Frameworks.Has(frameworkID) {
		s.observer().ObserveCycleLaunch("rejected", len(members))
		return "", fmt.Errorf("%w: %s", ErrUnknownFramework, frameworkID)
	}

	now := s.timestamp()
	parent := Task{
		ID:             s.newID(),
		Type:           TypeGoalUpdate,
		Title:          CycleParentTitle,
		Description:    message,
		AssignedTo:     initiator.ID,
		AssignedToName: initiator.Name,
		AssignedBy:     initiator.ID,
		DueDate:        dueDate,
		Status:         StatusPending,
		FrameworkID:    frameworkID,
		Kind:           Parent{TotalSubTasks: len(members)},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	batch := make([]Task, 0, len(members)+1)
	batch = append(batch, parent)
	for _, member := range members {
		batch = append(batch, Task{
			ID:             s.newID(),
			Type:           TypeGoalUpdate,
			Title:          CycleChildTitle,
			Description:    message,
			AssignedTo:     member.ID,
			AssignedToName: member.Name,
			AssignedBy:     initiator.ID,
			DueDate:        dueDate,
			Status:         StatusPending,
			FrameworkID:    frameworkID,
			Kind:           Child{ParentID: parent.ID},
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	if err := s.store.InsertBatch(ctx, batch); err != nil {
		s.observer().ObserveCycleLaunch("failed", len(members))
		s.logger.With(requestctx.Fields(ctx)...).Error("cycle launch failed", zap.String("initiatorId", initiator.ID), zap.Int("members", len(members)), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrCycleLaunchFailed, err)
	}
	s.observer().ObserveCycleLaunch("launched", len(members))
	for range batch {
		s.observer().ObserveTaskMutation(OpCreate)
	}
	s.logger.With(requestctx.Fields(ctx)...).Info("cycle launched", zap.String("parentTaskId", parent.ID), zap.String("initiatorId", initiator.ID), zap.Int("members", len(members)))

	if s.Notify != nil {
		title := "New review assigned: " + CycleChildTitle
		for _, member := range members {
			if err := s.Notify.Notify(ctx, member.ID, NotificationReviewAssigned, title, message); err != nil {
				s.logger.With(requestctx.Fields(ctx)...).Warn("cycle notification failed", zap.String("userId", member.ID), zap.Error(err))
			}
		}
	}
	return parent.ID, nil
}
