package tasks

// Recompute derives parent's counters, progress and status from children.
//
// Status becomes COMPLETED when every child is complete, IN_PROGRESS when
// some are, and otherwise stays where it was, except that a COMPLETED parent
// whose children are no longer all complete falls back to PENDING.
func Recompute(parent *Task, children []Task) error {
	p, ok := parent.Parent()
	if !ok {
		return ErrNotParentTask
	}

	completed := 0
	for _, child := range children {
		if child.Status == StatusCompleted {
			completed++
		}
	}
	total := len(children)

	p.TotalSubTasks = total
	p.CompletedSubTasks = completed
	p.Progress = 0
	if total > 0 {
		p.Progress = float64(completed) / float64(total) * 100
	}
	parent.Kind = p

	switch {
	case total > 0 && completed == total:
		parent.Status = StatusCompleted
	case completed > 0:
		parent.Status = StatusInProgress
	case parent.Status == StatusCompleted:
		parent.Status = StatusPending
	}
	return nil
}
