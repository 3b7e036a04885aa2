package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

var ErrInvalidEvent = errors.New("invalid audit event")

// Event is one successful state change made through the API.
type Event struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actorId"`
	ActorRole  string    `json:"actorRole"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId,omitempty"`
	Status     int       `json:"status"`
	RequestID  string    `json:"requestId"`
	IP         string    `json:"ip"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Filter struct {
	Action     string
	EntityType string
	ActorID    string
}

func (f Filter) matches(e Event) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	return true
}

type StoreAPI interface {
	Insert(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error)
	Count(ctx context.Context, filter Filter) (int, error)
}

type Service struct {
	store  StoreAPI
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func New(store StoreAPI, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now, newID: uuid.NewString}
}

// Record stores event, filling in its id and timestamp.
func (s *Service) Record(ctx context.Context, event Event) error {
	if strings.TrimSpace(event.ActorID) == "" || strings.TrimSpace(event.Action) == "" {
		return ErrInvalidEvent
	}
	event.ID = s.newID()
	event.CreatedAt = s.now().UTC().Truncate(time.Microsecond)
	return s.store.Insert(ctx, event)
}

// List returns events newest first together with the unpaged total.
func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, int, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	events, err := s.store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
