package reports

import (
	"errors"

	"perfhub/internal/domain/auth"
)

var (
	ErrUnknownReportType = errors.New("unknown report type")
	ErrUnknownFormat     = errors.New("unknown report format")
	ErrNoSubjects        = errors.New("report has no subjects")
)

type Type string

const (
	TypeIndividual   Type = "individual"
	TypeTeam         Type = "team"
	TypeOrganization Type = "organization"
	TypeCalibration  Type = "calibration"
)

func ParseType(value string) (Type, error) {
	switch t := Type(value); t {
	case TypeIndividual, TypeTeam, TypeOrganization, TypeCalibration:
		return t, nil
	default:
		return "", ErrUnknownReportType
	}
}

func (t Type) Title() string {
	switch t {
	case TypeIndividual:
		return "Individual Performance Report"
	case TypeTeam:
		return "Team Performance Report"
	case TypeOrganization:
		return "Organization Performance Report"
	case TypeCalibration:
		return "Calibration Report"
	default:
		return "Performance Report"
	}
}

type Summary struct {
	Employees            int            `json:"employees"`
	TasksTotal           int            `json:"tasksTotal"`
	TasksCompleted       int            `json:"tasksCompleted"`
	CompletionRate       float64        `json:"completionRate"`
	Evaluations          int            `json:"evaluations"`
	EvaluationsCompleted int            `json:"evaluationsCompleted"`
	AverageScore         float64        `json:"averageScore"`
	RatingDistribution   map[string]int `json:"ratingDistribution"`
}

// Calibration thresholds on the latest scored evaluation.
const (
	TopPerformerScore        = 4.0
	MeetsExpectationsScore   = 3.0
	calibrationUnscoredLabel = "unscored"
)

type CalibrationEntry struct {
	User  auth.User `json:"user"`
	Score float64   `json:"score"`
	// Period of the evaluation the score came from.
	Period string `json:"period"`
}

type Calibration struct {
	TopPerformers       []CalibrationEntry `json:"topPerformers"`
	MeetingExpectations []CalibrationEntry `json:"meetingExpectations"`
	NeedsDevelopment    []CalibrationEntry `json:"needsDevelopment"`
	Unscored            []auth.User        `json:"unscored"`
}

// Dataset defines tabular export content.
type Dataset struct {
	Name    string
	Headers []string
	Rows    []map[string]string
}

type Report struct {
	Title    string
	Sections []Dataset
}
