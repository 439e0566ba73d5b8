package goalloop

import "fmt"

// TaskLedger holds the current plan and the full plan history. Replanning
// supersedes old entries instead of deleting them, so the complete audit
// trail survives to the terminal session record.
//
// The ledger is not safe for concurrent use; a session advances as one
// logical single-threaded task.
type TaskLedger struct {
	entries []SubtaskSpec
}

// NewTaskLedger creates an empty ledger.
func NewTaskLedger() *TaskLedger {
	return &TaskLedger{}
}

// Restore seeds the ledger from a persisted session's plan entries.
func (l *TaskLedger) Restore(entries []SubtaskSpec) {
	l.entries = cloneSubtasks(entries)
}

// ReplacePlan installs a new plan. Old entries that are still pending or in
// progress are marked superseded; done and failed entries keep their status.
// Incoming subtasks without a status default to pending.
func (l *TaskLedger) ReplacePlan(plan Plan) {
	for i := range l.entries {
		switch l.entries[i].Status {
		case SubtaskPending, SubtaskInProgress:
			l.entries[i].Status = SubtaskSuperseded
		}
	}
	for _, sub := range plan {
		entry := sub
		entry.Params = cloneAnyMap(sub.Params)
		if entry.Status == "" {
			entry.Status = SubtaskPending
		}
		l.entries = append(l.entries, entry)
	}
}

// CurrentPlan returns the active (non-superseded) subtasks in attempt order.
func (l *TaskLedger) CurrentPlan() []SubtaskSpec {
	var out []SubtaskSpec
	for _, sub := range l.entries {
		if sub.Status != SubtaskSuperseded {
			out = append(out, sub)
		}
	}
	return cloneSubtasks(out)
}

// NextPending returns a copy of the first pending subtask, or nil when the
// current plan has none left.
func (l *TaskLedger) NextPending() *SubtaskSpec {
	for _, sub := range l.entries {
		if sub.Status == SubtaskPending {
			out := sub
			out.Params = cloneAnyMap(sub.Params)
			return &out
		}
	}
	return nil
}

// HasPending reports whether the current plan has pending subtasks.
func (l *TaskLedger) HasPending() bool {
	for _, sub := range l.entries {
		if sub.Status == SubtaskPending {
			return true
		}
	}
	return false
}

// Mark sets the status of the subtask with the given id. Replanned entries
// may reuse an id, so the newest matching entry wins; superseded entries are
// frozen and cannot be marked.
func (l *TaskLedger) Mark(id string, status SubtaskStatus) error {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].ID != id {
			continue
		}
		if l.entries[i].Status == SubtaskSuperseded {
			return fmt.Errorf("subtask %q is superseded", id)
		}
		l.entries[i].Status = status
		return nil
	}
	return fmt.Errorf("unknown subtask %q", id)
}

// Entries returns the full audit trail, superseded entries included.
func (l *TaskLedger) Entries() []SubtaskSpec {
	return cloneSubtasks(l.entries)
}
