package evaluations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfhub/internal/domain/frameworks"
)

type notification struct {
	userID, ntype string
}

type captureNotifier struct {
	sent []notification
}

func (c *captureNotifier) Notify(_ context.Context, userID, ntype, _, _ string) error {
	c.sent = append(c.sent, notification{userID, ntype})
	return nil
}

func newTestService(t *testing.T) (*Service, *frameworks.Catalog) {
	t.Helper()
	catalog, err := frameworks.Load("")
	require.NoError(t, err)
	return NewService(NewMemoryStore(), catalog, nil), catalog
}

func fullRatings(value float64) []Rating {
	return []Rating{
		{CategoryID: "driving-results", Value: value},
		{CategoryID: "delivering-expertise", Value: value},
		{CategoryID: "inspiring-others", Value: value},
		{CategoryID: "continuous-improvement", Value: value},
	}
}

func TestCreateComputesScoreAndLabels(t *testing.T) {
	svc, _ := newTestService(t)
	e, err := svc.Create(context.Background(), Draft{
		EmployeeID:   "e1",
		SupervisorID: "m1",
		Period:       "2026 H1",
		FrameworkID:  "framework1",
		Ratings: []Rating{
			{CategoryID: "driving-results", Value: 5, Comment: "Shipped early"},
			{CategoryID: "inspiring-others", Value: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, e.Status)
	assert.InDelta(t, 3.5, e.OverallScore, 0.0001)
	assert.Equal(t, "Distinctive", e.Ratings[0].Label)
	assert.Equal(t, "Needs Development", e.Ratings[1].Label)
	assert.Equal(t, 1, e.Framework.Version)
	assert.NotNil(t, e.Strengths)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	tests := []struct {
		name  string
		draft Draft
		want  error
	}{
		{name: "missing employee", draft: Draft{SupervisorID: "m", FrameworkID: "framework1"}, want: ErrInvalidEvaluation},
		{name: "missing framework", draft: Draft{EmployeeID: "e", SupervisorID: "m"}, want: ErrInvalidEvaluation},
		{name: "unknown framework", draft: Draft{EmployeeID: "e", SupervisorID: "m", FrameworkID: "nope"}, want: ErrUnknownFramework},
		{name: "unknown category", draft: Draft{EmployeeID: "e", SupervisorID: "m", FrameworkID: "framework1", Ratings: []Rating{{CategoryID: "quality", Value: 3}}}, want: ErrUnknownCategory},
		{name: "off scale", draft: Draft{EmployeeID: "e", SupervisorID: "m", FrameworkID: "framework1", Ratings: []Rating{{CategoryID: "driving-results", Value: 3.5}}}, want: ErrRatingOutOfScale},
		{name: "rated twice", draft: Draft{EmployeeID: "e", SupervisorID: "m", FrameworkID: "framework1", Ratings: []Rating{{CategoryID: "driving-results", Value: 3}, {CategoryID: "driving-results", Value: 4}}}, want: ErrInvalidEvaluation},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.draft)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdateRecomputesScore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	e, err := svc.Create(ctx, Draft{EmployeeID: "e1", SupervisorID: "m1", FrameworkID: "framework1"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, e.OverallScore)

	ratings := fullRatings(4)
	ratings[0].Value = 2
	updated, err := svc.Update(ctx, e.ID, Changes{Ratings: &ratings})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, updated.OverallScore, 0.0001)

	stored, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.OverallScore, stored.OverallScore)
}

func TestStatusLifecycleAndImmutability(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	notifier := &captureNotifier{}
	svc.Notify = notifier

	e, err := svc.Create(ctx, Draft{EmployeeID: "e1", SupervisorID: "m1", FrameworkID: "framework1", Ratings: fullRatings(3)})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, e.ID, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	for _, next := range []Status{StatusInProgress, StatusPendingReview, StatusCompleted} {
		e, err = svc.Transition(ctx, e.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, e.Status)
	}

	comments := "late edit"
	_, err = svc.Update(ctx, e.ID, Changes{OverallComments: &comments})
	assert.ErrorIs(t, err, ErrEvaluationCompleted)
	_, err = svc.Transition(ctx, e.ID, StatusInProgress)
	assert.ErrorIs(t, err, ErrEvaluationCompleted)
	assert.ErrorIs(t, svc.Delete(ctx, e.ID), ErrEvaluationCompleted)

	stored, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.OverallComments)

	assert.Equal(t, []notification{
		{"e1", NotificationEvaluationStarted},
		{"e1", NotificationEvaluationCompleted},
	}, notifier.sent)
}

func TestCompletionRequiresAllCategories(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	e, err := svc.Create(ctx, Draft{EmployeeID: "e1", SupervisorID: "m1", FrameworkID: "framework1", Ratings: fullRatings(4)[:2]})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, e.ID, StatusPendingReview)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, e.ID, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFrameworkEditsDoNotTouchExistingEvaluations(t *testing.T) {
	ctx := context.Background()
	svc, catalog := newTestService(t)
	e, err := svc.Create(ctx, Draft{EmployeeID: "e1", SupervisorID: "m1", FrameworkID: "framework1"})
	require.NoError(t, err)

	edited, err := catalog.Get("framework1")
	require.NoError(t, err)
	edited.Categories = []frameworks.Category{{ID: "new-only", Name: "New"}}
	_, err = catalog.Upsert(ctx, edited)
	require.NoError(t, err)

	stored, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Framework.Categories, 4)
	assert.Equal(t, 1, stored.Framework.Version)

	ratings := fullRatings(5)
	_, err = svc.Update(ctx, e.ID, Changes{Ratings: &ratings})
	assert.NoError(t, err)

	fresh, err := svc.Create(ctx, Draft{EmployeeID: "e2", SupervisorID: "m1", FrameworkID: "framework1"})
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Framework.Version)
	assert.Len(t, fresh.Framework.Categories, 1)
}

func TestDeleteAndList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	a, err := svc.Create(ctx, Draft{EmployeeID: "e1", SupervisorID: "m1", FrameworkID: "framework1"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Draft{EmployeeID: "e2", SupervisorID: "m1", FrameworkID: "framework2"})
	require.NoError(t, err)

	bySupervisor, err := svc.ListBySupervisor(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, bySupervisor, 2)

	require.NoError(t, svc.Delete(ctx, a.ID))
	require.NoError(t, svc.Delete(ctx, a.ID))

	byEmployee, err := svc.ListByEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, byEmployee)

	_, err = svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrEvaluationNotFound)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusDraft, StatusPendingReview))
	assert.True(t, CanTransition(StatusPendingReview, StatusInProgress))
	assert.False(t, CanTransition(StatusInProgress, StatusDraft))
	assert.False(t, CanTransition(StatusCompleted, StatusInProgress))
}
