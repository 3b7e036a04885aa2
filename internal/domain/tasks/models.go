package tasks

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the task's place in a parent/child tree: Standalone, Parent or Child.
type Kind interface {
	kind() string
}

type Standalone struct{}

// Parent tracks a fan-out. Its counters and Progress are derived from the
// children and only change through a rollup.
type Parent struct {
	TotalSubTasks     int
	CompletedSubTasks int
	Progress          float64
}

type Child struct {
	ParentID string
}

func (Standalone) kind() string { return "standalone" }
func (Parent) kind() string     { return "parent" }
func (Child) kind() string      { return "child" }

type Task struct {
	ID          string
	Type        Type
	Title       string
	Description string
	AssignedTo  string
	// AssignedToName caches the assignee's display name as of creation.
	// Later renames are not propagated.
	AssignedToName string
	AssignedBy     string
	DueDate        time.Time
	Status         Status
	FrameworkID    string
	Kind           Kind
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (t Task) Parent() (Parent, bool) {
	p, ok := t.Kind.(Parent)
	return p, ok
}

// ParentID returns the owning parent's id for child tasks and "" otherwise.
func (t Task) ParentID() string {
	if c, ok := t.Kind.(Child); ok {
		return c.ParentID
	}
	return ""
}

func kindName(k Kind) string {
	if k == nil {
		return Standalone{}.kind()
	}
	return k.kind()
}

// Spec is the input to CreateTask.
type Spec struct {
	Type           Type
	Title          string
	Description    string
	AssignedTo     string
	AssignedToName string
	AssignedBy     string
	DueDate        time.Time
	Status         Status
	FrameworkID    string
	// ParentID makes the new task a child of an existing parent task.
	ParentID string
	// IsParent makes the new task a parent with no children yet.
	IsParent bool
}

// Patch lists the caller-editable fields; nil means unchanged. Assignment and
// rollup fields are not patchable.
type Patch struct {
	Type        *Type
	Title       *string
	Description *string
	DueDate     *time.Time
	Status      *Status
	FrameworkID *string
}

func (p Patch) Empty() bool {
	return p.Type == nil && p.Title == nil && p.Description == nil && p.DueDate == nil && p.Status == nil && p.FrameworkID == nil
}

type taskJSON struct {
	ID                string     `json:"id"`
	Type              Type       `json:"type"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	AssignedTo        string     `json:"assignedTo"`
	AssignedToName    string     `json:"assignedToName"`
	AssignedBy        string     `json:"assignedBy"`
	DueDate           *time.Time `json:"dueDate,omitempty"`
	Status            Status     `json:"status"`
	FrameworkID       string     `json:"frameworkId,omitempty"`
	IsParentTask      bool       `json:"isParentTask,omitempty"`
	ParentTaskID      string     `json:"parentTaskId,omitempty"`
	TotalSubTasks     *int       `json:"totalSubTasks,omitempty"`
	CompletedSubTasks *int       `json:"completedSubTasks,omitempty"`
	Progress          *float64   `json:"progress,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// MarshalJSON flattens Kind into the isParentTask/parentTaskId/... fields clients expect.
func (t Task) MarshalJSON() ([]byte, error) {
	out := taskJSON{
		ID:             t.ID,
		Type:           t.Type,
		Title:          t.Title,
		Description:    t.Description,
		AssignedTo:     t.AssignedTo,
		AssignedToName: t.AssignedToName,
		AssignedBy:     t.AssignedBy,
		Status:         t.Status,
		FrameworkID:    t.FrameworkID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if !t.DueDate.IsZero() {
		due := t.DueDate
		out.DueDate = &due
	}
	switch k := t.Kind.(type) {
	case Parent:
		out.IsParentTask = true
		out.TotalSubTasks = &k.TotalSubTasks
		out.CompletedSubTasks = &k.CompletedSubTasks
		out.Progress = &k.Progress
	case Child:
		out.ParentTaskID = k.ParentID
	}
	return json.Marshal(out)
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var in taskJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.IsParentTask && in.ParentTaskID != "" {
		return fmt.Errorf("%w: task %s is both parent and child", ErrInvalidTaskSpec, in.ID)
	}
	*t = Task{
		ID:             in.ID,
		Type:           in.Type,
		Title:          in.Title,
		Description:    in.Description,
		AssignedTo:     in.AssignedTo,
		AssignedToName: in.AssignedToName,
		AssignedBy:     in.AssignedBy,
		Status:         in.Status,
		FrameworkID:    in.FrameworkID,
		CreatedAt:      in.CreatedAt,
		UpdatedAt:      in.UpdatedAt,
		Kind:           Standalone{},
	}
	if in.DueDate != nil {
		t.DueDate = *in.DueDate
	}
	switch {
	case in.IsParentTask:
		p := Parent{}
		if in.TotalSubTasks != nil {
			p.TotalSubTasks = *in.TotalSubTasks
		}
		if in.CompletedSubTasks != nil {
			p.CompletedSubTasks = *in.CompletedSubTasks
		}
		if in.Progress != nil {
			p.Progress = *in.Progress
		}
		t.Kind = p
	case in.ParentTaskID != "":
		t.Kind = Child{ParentID: in.ParentTaskID}
	}
	return nil
}
