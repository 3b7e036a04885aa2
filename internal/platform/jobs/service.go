package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	JobRollupReconcile = "rollup_reconcile"

	queueSize   = 128
	historySize = 50
)

var ErrNoReconciler = errors.New("no rollup reconciler configured")

// Reconciler recomputes every parent task from its children and reports how
// many parents it touched.
type Reconciler interface {
	ReconcileParents(ctx context.Context) (int, error)
}

type Run struct {
	ID          string     `json:"id"`
	JobType     string     `json:"jobType"`
	Status      string     `json:"status"`
	Details     any        `json:"details,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type Service struct {
	reconciler     Reconciler
	rollupInterval time.Duration
	logger         *zap.Logger
	queue          chan job

	mu   sync.Mutex
	runs []Run
	now  func() time.Time
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(reconciler Reconciler, rollupInterval time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		reconciler:     reconciler,
		rollupInterval: rollupInterval,
		logger:         logger,
		queue:          make(chan job, queueSize),
		now:            time.Now,
	}
}

// Start runs the worker and, when an interval is set, the rollup scheduler.
// Both stop when ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.rollupInterval > 0 && s.reconciler != nil {
		go s.scheduleRollups(ctx, s.rollupInterval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		s.logger.Warn("job queue full", zap.String("jobType", jobType))
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (Run, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// EnqueueReconcile queues a rollup reconciliation for the worker.
func (s *Service) EnqueueReconcile() bool {
	return s.Enqueue(JobRollupReconcile, s.reconcile)
}

// ReconcileNow runs the rollup reconciliation synchronously.
func (s *Service) ReconcileNow(ctx context.Context) (Run, error) {
	return s.RunNow(ctx, JobRollupReconcile, s.reconcile)
}

// Runs returns recorded runs, newest first.
func (s *Service) Runs() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Run, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		out = append(out, s.runs[i])
	}
	return out
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.logger.Warn("job run failed", zap.String("jobType", j.Type), zap.Error(err))
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (Run, error) {
	run := Run{ID: uuid.NewString(), JobType: j.Type, Status: "running", StartedAt: s.now().UTC()}
	details, err := j.Run(ctx)
	completed := s.now().UTC()
	run.CompletedAt = &completed
	run.Details = details
	run.Status = "completed"
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
	}
	s.record(run)
	s.logger.Debug("job run finished",
		zap.String("jobType", run.JobType),
		zap.String("status", run.Status),
		zap.Duration("duration", completed.Sub(run.StartedAt)),
	)
	return run, err
}

func (s *Service) record(run Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	if len(s.runs) > historySize {
		s.runs = append([]Run(nil), s.runs[len(s.runs)-historySize:]...)
	}
}

func (s *Service) reconcile(ctx context.Context) (any, error) {
	if s.reconciler == nil {
		return nil, ErrNoReconciler
	}
	touched, err := s.reconciler.ReconcileParents(ctx)
	return map[string]any{"parents": touched}, err
}

func (s *Service) scheduleRollups(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EnqueueReconcile()
		}
	}
}
