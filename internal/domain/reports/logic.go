package reports

import (
	"fmt"
	"math"
	"sort"

	"perfhub/internal/domain/auth"
	"perfhub/internal/domain/evaluations"
	"perfhub/internal/domain/tasks"
)

func buildSummary(employees int, taskList []tasks.Task, evaluationList []evaluations.Evaluation) Summary {
	summary := Summary{
		Employees:          employees,
		TasksTotal:         len(taskList),
		Evaluations:        len(evaluationList),
		RatingDistribution: map[string]int{},
	}
	for _, task := range taskList {
		if task.Status == tasks.StatusCompleted {
			summary.TasksCompleted++
		}
	}
	if summary.TasksTotal > 0 {
		summary.CompletionRate = float64(summary.TasksCompleted) / float64(summary.TasksTotal)
	}

	var total float64
	scored := 0
	for _, e := range evaluationList {
		if e.Status == evaluations.StatusCompleted {
			summary.EvaluationsCompleted++
		}
		if len(e.Ratings) == 0 {
			continue
		}
		scored++
		total += e.OverallScore
		key := fmt.Sprintf("%d", int(e.OverallScore+0.5))
		summary.RatingDistribution[key]++
	}
	if scored > 0 {
		summary.AverageScore = round2(total / float64(scored))
	}
	return summary
}

// latestScored picks the most recently updated evaluation that has ratings.
func latestScored(list []evaluations.Evaluation) (evaluations.Evaluation, bool) {
	var latest evaluations.Evaluation
	found := false
	for _, e := range list {
		if len(e.Ratings) == 0 {
			continue
		}
		if !found || e.UpdatedAt.After(latest.UpdatedAt) {
			latest = e
			found = true
		}
	}
	return latest, found
}

func bucket(score float64) string {
	switch {
	case score >= TopPerformerScore:
		return "top"
	case score >= MeetsExpectationsScore:
		return "meets"
	default:
		return "development"
	}
}

func buildCalibration(users []auth.User, byEmployee map[string][]evaluations.Evaluation) Calibration {
	out := Calibration{
		TopPerformers:       []CalibrationEntry{},
		MeetingExpectations: []CalibrationEntry{},
		NeedsDevelopment:    []CalibrationEntry{},
		Unscored:            []auth.User{},
	}
	for _, user := range users {
		latest, ok := latestScored(byEmployee[user.ID])
		if !ok {
			out.Unscored = append(out.Unscored, user)
			continue
		}
		entry := CalibrationEntry{User: user, Score: latest.OverallScore, Period: latest.Period}
		switch bucket(latest.OverallScore) {
		case "top":
			out.TopPerformers = append(out.TopPerformers, entry)
		case "meets":
			out.MeetingExpectations = append(out.MeetingExpectations, entry)
		default:
			out.NeedsDevelopment = append(out.NeedsDevelopment, entry)
		}
	}
	for _, group := range [][]CalibrationEntry{out.TopPerformers, out.MeetingExpectations, out.NeedsDevelopment} {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Score > group[j].Score })
	}
	return out
}

func summaryDataset(summary Summary) Dataset {
	rows := []map[string]string{
		{"Metric": "Employees", "Value": fmt.Sprintf("%d", summary.Employees)},
		{"Metric": "Tasks", "Value": fmt.Sprintf("%d", summary.TasksTotal)},
		{"Metric": "Tasks completed", "Value": fmt.Sprintf("%d", summary.TasksCompleted)},
		{"Metric": "Completion rate", "Value": fmt.Sprintf("%.0f%%", summary.CompletionRate*100)},
		{"Metric": "Evaluations", "Value": fmt.Sprintf("%d", summary.Evaluations)},
		{"Metric": "Evaluations completed", "Value": fmt.Sprintf("%d", summary.EvaluationsCompleted)},
		{"Metric": "Average score", "Value": fmt.Sprintf("%.2f", summary.AverageScore)},
	}
	return Dataset{Name: "Summary", Headers: []string{"Metric", "Value"}, Rows: rows}
}

func tasksDataset(names map[string]string, list []tasks.Task) Dataset {
	data := Dataset{Name: "Tasks", Headers: []string{"Employee", "Title", "Type", "Status", "Progress", "Due Date"}}
	for _, task := range list {
		progress, due := "", ""
		if !task.DueDate.IsZero() {
			due = task.DueDate.Format("2006-01-02")
		}
		if parent, ok := task.Parent(); ok {
			progress = fmt.Sprintf("%.0f%%", parent.Progress)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Employee": displayName(names, task.AssignedTo, task.AssignedToName),
			"Title":    task.Title,
			"Type":     string(task.Type),
			"Status":   string(task.Status),
			"Progress": progress,
			"Due Date": due,
		})
	}
	return data
}

func evaluationsDataset(names map[string]string, list []evaluations.Evaluation) Dataset {
	data := Dataset{Name: "Evaluations", Headers: []string{"Employee", "Period", "Category", "Rating", "Comment", "Overall Score", "Status"}}
	for _, e := range list {
		employee := displayName(names, e.EmployeeID, "")
		if len(e.Ratings) == 0 {
			data.Rows = append(data.Rows, map[string]string{
				"Employee":      employee,
				"Period":        e.Period,
				"Overall Score": fmt.Sprintf("%.2f", e.OverallScore),
				"Status":        string(e.Status),
			})
			continue
		}
		for _, rating := range e.Ratings {
			category := rating.CategoryID
			if c, ok := e.Framework.Category(rating.CategoryID); ok {
				category = c.Name
			}
			data.Rows = append(data.Rows, map[string]string{
				"Employee":      employee,
				"Period":        e.Period,
				"Category":      category,
				"Rating":        fmt.Sprintf("%g %s", rating.Value, rating.Label),
				"Comment":       rating.Comment,
				"Overall Score": fmt.Sprintf("%.2f", e.OverallScore),
				"Status":        string(e.Status),
			})
		}
	}
	return data
}

func calibrationDataset(calibration Calibration) Dataset {
	data := Dataset{Name: "Calibration", Headers: []string{"Group", "Employee", "Department", "Score", "Period"}}
	groups := []struct {
		name    string
		entries []CalibrationEntry
	}{
		{"Top performers", calibration.TopPerformers},
		{"Meeting expectations", calibration.MeetingExpectations},
		{"Needs development", calibration.NeedsDevelopment},
	}
	for _, group := range groups {
		for _, entry := range group.entries {
			data.Rows = append(data.Rows, map[string]string{
				"Group":      group.name,
				"Employee":   entry.User.Name,
				"Department": entry.User.Department,
				"Score":      fmt.Sprintf("%.2f", entry.Score),
				"Period":     entry.Period,
			})
		}
	}
	for _, user := range calibration.Unscored {
		data.Rows = append(data.Rows, map[string]string{
			"Group":      calibrationUnscoredLabel,
			"Employee":   user.Name,
			"Department": user.Department,
		})
	}
	return data
}

func displayName(names map[string]string, id, fallback string) string {
	if name := names[id]; name != "" {
		return name
	}
	if fallback != "" {
		return fallback
	}
	return id
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
