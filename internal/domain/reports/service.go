package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"perfhub/internal/domain/auth"
	"perfhub/internal/domain/evaluations"
	"perfhub/internal/domain/tasks"
)

type TaskSource interface {
	TasksByAssignee(ctx context.Context, userID string) ([]tasks.Task, error)
}

type EvaluationSource interface {
	ListByEmployee(ctx context.Context, employeeID string) ([]evaluations.Evaluation, error)
}

// Service aggregates tasks and evaluations for a set of users the caller has
// already filtered for visibility.
type Service struct {
	Tasks       TaskSource
	Evaluations EvaluationSource
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(taskSource TaskSource, evaluationSource EvaluationSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Tasks: taskSource, Evaluations: evaluationSource, logger: logger, now: time.Now}
}

type collected struct {
	tasks       []tasks.Task
	evaluations []evaluations.Evaluation
	byEmployee  map[string][]evaluations.Evaluation
	names       map[string]string
}

func (s *Service) collect(ctx context.Context, users []auth.User) (collected, error) {
	out := collected{
		byEmployee: map[string][]evaluations.Evaluation{},
		names:      map[string]string{},
	}
	for _, user := range users {
		out.names[user.ID] = user.Name
		taskList, err := s.Tasks.TasksByAssignee(ctx, user.ID)
		if err != nil {
			return collected{}, fmt.Errorf("tasks for %s: %w", user.ID, err)
		}
		out.tasks = append(out.tasks, taskList...)
		evaluationList, err := s.Evaluations.ListByEmployee(ctx, user.ID)
		if err != nil {
			return collected{}, fmt.Errorf("evaluations for %s: %w", user.ID, err)
		}
		out.evaluations = append(out.evaluations, evaluationList...)
		out.byEmployee[user.ID] = evaluationList
	}
	return out, nil
}

func (s *Service) Summary(ctx context.Context, users []auth.User) (Summary, error) {
	data, err := s.collect(ctx, users)
	if err != nil {
		return Summary{}, err
	}
	return buildSummary(len(users), data.tasks, data.evaluations), nil
}

func (s *Service) Calibration(ctx context.Context, users []auth.User) (Calibration, error) {
	data, err := s.collect(ctx, users)
	if err != nil {
		return Calibration{}, err
	}
	return buildCalibration(users, data.byEmployee), nil
}

// Build assembles the report sections. Individual reports take exactly one user.
func (s *Service) Build(ctx context.Context, reportType Type, users []auth.User) (Report, error) {
	if len(users) == 0 {
		return Report{}, ErrNoSubjects
	}
	if reportType == TypeIndividual && len(users) != 1 {
		return Report{}, fmt.Errorf("%w: individual report needs one employee", ErrNoSubjects)
	}
	data, err := s.collect(ctx, users)
	if err != nil {
		return Report{}, err
	}

	title := reportType.Title()
	if reportType == TypeIndividual {
		title += ": " + users[0].Name
	}
	report := Report{Title: title}
	switch reportType {
	case TypeIndividual, TypeTeam, TypeOrganization:
		report.Sections = []Dataset{
			summaryDataset(buildSummary(len(users), data.tasks, data.evaluations)),
			tasksDataset(data.names, data.tasks),
			evaluationsDataset(data.names, data.evaluations),
		}
	case TypeCalibration:
		report.Sections = []Dataset{calibrationDataset(buildCalibration(users, data.byEmployee))}
	default:
		return Report{}, ErrUnknownReportType
	}
	return report, nil
}

type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (s *Service) Export(ctx context.Context, reportType Type, format Format, users []auth.User) (Export, error) {
	exporter, err := ExporterFor(format)
	if err != nil {
		return Export{}, err
	}
	report, err := s.Build(ctx, reportType, users)
	if err != nil {
		return Export{}, err
	}
	data, err := exporter.Render(report)
	if err != nil {
		return Export{}, err
	}
	filename := fmt.Sprintf("%s-report-%s.%s", reportType, s.now().UTC().Format("20060102"), format)
	s.logger.Info("report exported",
		zap.String("type", string(reportType)),
		zap.String("format", string(format)),
		zap.Int("subjects", len(users)),
		zap.Int("bytes", len(data)),
	)
	return Export{Filename: strings.ToLower(filename), ContentType: format.ContentType(), Data: data}, nil
}
