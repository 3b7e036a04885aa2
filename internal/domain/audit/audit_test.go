package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	svc := New(NewMemoryStore(), nil)
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("evt-%d", seq)
	}
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestRecordRequiresActorAndAction(t *testing.T) {
	svc := newTestService()
	err := svc.Record(context.Background(), Event{Action: "POST /api/v1/tasks"})
	assert.ErrorIs(t, err, ErrInvalidEvent)
	err = svc.Record(context.Background(), Event{ActorID: "m1"})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestListNewestFirstWithFilters(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, Event{ActorID: "m1", Action: "POST /api/v1/tasks/cycles", EntityType: "tasks"}))
	require.NoError(t, svc.Record(ctx, Event{ActorID: "m1", Action: "POST /api/v1/evaluations", EntityType: "evaluations"}))
	require.NoError(t, svc.Record(ctx, Event{ActorID: "a1", Action: "PUT /api/v1/frameworks/{frameworkID}", EntityType: "frameworks", EntityID: "framework1"}))

	events, total, err := svc.List(ctx, Filter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, events, 3)
	assert.Equal(t, "evt-3", events[0].ID)
	assert.Equal(t, "evt-1", events[2].ID)
	assert.False(t, events[0].CreatedAt.IsZero())

	events, total, err = svc.List(ctx, Filter{ActorID: "m1"}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].ID)

	events, total, err = svc.List(ctx, Filter{EntityType: "frameworks"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, "framework1", events[0].EntityID)
}

func TestBuildBaseQueryNumbersPlaceholders(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{Action: "a", ActorID: "u"})
	assert.Equal(t, "SELECT COUNT(1) FROM audit_events WHERE TRUE AND action = $1 AND actor_user_id = $2", query)
	assert.Equal(t, []any{"a", "u"}, args)
}
