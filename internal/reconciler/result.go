// Package reconciler syncs desired zones from zone files to provider
// targets: populate the target, plan the difference and, unless dry-run,
// apply it.
package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/octodns/octodns-hetzner/pkg/zone"
)

// ActionType represents the type of reconciliation action.
type ActionType string

const (
	// ActionCreate indicates a record will be/was created.
	ActionCreate ActionType = "create"
	// ActionUpdate indicates a record will be/was updated.
	ActionUpdate ActionType = "update"
	// ActionDelete indicates a record will be/was deleted.
	ActionDelete ActionType = "delete"
)

// ActionStatus represents the outcome of an action.
type ActionStatus string

const (
	// StatusPending indicates the action has not been executed yet.
	StatusPending ActionStatus = "pending"
	// StatusSuccess indicates the action completed successfully.
	StatusSuccess ActionStatus = "success"
	// StatusFailed indicates the action failed or was never reached.
	StatusFailed ActionStatus = "failed"
	// StatusSkipped indicates the action was planned only (dry-run).
	StatusSkipped ActionStatus = "skipped"
)

// Action represents one planned change against one target.
type Action struct {
	Type   ActionType
	Status ActionStatus

	// Provider is the target provider instance name.
	Provider string

	// Zone is the zone FQDN.
	Zone string

	// Change is the rendered plan change.
	Change string

	// Error contains the error message if Status is StatusFailed.
	Error string
}

// String returns a human-readable representation of the action.
func (a Action) String() string {
	if a.Error != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", a.Status, a.Change, a.Provider, a.Error)
	}
	return fmt.Sprintf("[%s] %s (%s)", a.Status, a.Change, a.Provider)
}

// Failure is a zone/target pair that could not be planned or applied.
type Failure struct {
	Zone     string
	Provider string
	Err      error
}

func (f Failure) String() string {
	if f.Provider == "" {
		return fmt.Sprintf("%s: %v", f.Zone, f.Err)
	}
	return fmt.Sprintf("%s -> %s: %v", f.Zone, f.Provider, f.Err)
}

// Result holds the complete result of a sync run.
type Result struct {
	StartTime time.Time
	EndTime   time.Time

	// ZonesSynced counts zone/target pairs that planned (and applied) cleanly.
	ZonesSynced int

	// Actions contains every planned change, in plan order per target.
	Actions []Action

	Failures []Failure

	// DryRun indicates if this was a dry-run (no changes applied).
	DryRun bool
}

// NewResult creates a new Result with the start time set to now.
func NewResult(dryRun bool) *Result {
	return &Result{
		StartTime: time.Now(),
		Actions:   make([]Action, 0),
		DryRun:    dryRun,
	}
}

// Complete marks the result as complete with the end time set to now.
func (r *Result) Complete() {
	r.EndTime = time.Now()
}

// Duration returns the total sync duration.
func (r *Result) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// AddPlan records every change of plan as an action against target.
func (r *Result) AddPlan(target string, plan *zone.Plan) {
	status := StatusPending
	if r.DryRun {
		status = StatusSkipped
	}
	for _, c := range plan.Changes {
		r.Actions = append(r.Actions, Action{
			Type:     actionType(c),
			Status:   status,
			Provider: target,
			Zone:     plan.Desired.Name,
			Change:   c.String(),
		})
	}
}

// resolve marks the pending actions of target in zone: the first applied
// succeeded, the remainder failed with err.
func (r *Result) resolve(zoneName, target string, applied int, err error) {
	for i := range r.Actions {
		a := &r.Actions[i]
		if a.Zone != zoneName || a.Provider != target || a.Status != StatusPending {
			continue
		}
		if applied > 0 {
			a.Status = StatusSuccess
			applied--
			continue
		}
		a.Status = StatusFailed
		if err != nil {
			a.Error = err.Error()
		}
	}
}

// AddFailure records a zone/target pair that failed.
func (r *Result) AddFailure(zoneName, target string, err error) {
	r.Failures = append(r.Failures, Failure{Zone: zoneName, Provider: target, Err: err})
}

func actionType(c zone.Change) ActionType {
	switch c.(type) {
	case zone.Create:
		return ActionCreate
	case zone.Update:
		return ActionUpdate
	default:
		return ActionDelete
	}
}

func (r *Result) count(t ActionType, status ActionStatus) int {
	n := 0
	for _, a := range r.Actions {
		if a.Type == t && a.Status == status {
			n++
		}
	}
	return n
}

// Failed returns all failed actions.
func (r *Result) Failed() []Action {
	var failed []Action
	for _, a := range r.Actions {
		if a.Status == StatusFailed {
			failed = append(failed, a)
		}
	}
	return failed
}

// CreatedCount returns the number of records created.
func (r *Result) CreatedCount() int {
	return r.count(ActionCreate, StatusSuccess)
}

// UpdatedCount returns the number of records updated.
func (r *Result) UpdatedCount() int {
	return r.count(ActionUpdate, StatusSuccess)
}

// DeletedCount returns the number of records deleted.
func (r *Result) DeletedCount() int {
	return r.count(ActionDelete, StatusSuccess)
}

// PlannedCount returns the number of planned changes.
func (r *Result) PlannedCount() int {
	return len(r.Actions)
}

// HasErrors returns true if any action or zone failed.
func (r *Result) HasErrors() bool {
	return len(r.Failed()) > 0 || len(r.Failures) > 0
}

// Summary returns a human-readable summary of the sync.
func (r *Result) Summary() string {
	var sb strings.Builder

	mode := "applied"
	if r.DryRun {
		mode = "dry-run"
	}

	fmt.Fprintf(&sb, "Sync complete (%s) in %s\n", mode, r.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, "  Zones synced: %d\n", r.ZonesSynced)
	fmt.Fprintf(&sb, "  Changes planned: %d\n", r.PlannedCount())
	if !r.DryRun {
		fmt.Fprintf(&sb, "  Records created: %d\n", r.CreatedCount())
		fmt.Fprintf(&sb, "  Records updated: %d\n", r.UpdatedCount())
		fmt.Fprintf(&sb, "  Records deleted: %d\n", r.DeletedCount())
	}

	if r.HasErrors() {
		fmt.Fprintf(&sb, "  Failed: %d\n", len(r.Failed())+len(r.Failures))
		for _, f := range r.Failures {
			fmt.Fprintf(&sb, "    - %s\n", f.String())
		}
		for _, a := range r.Failed() {
			fmt.Fprintf(&sb, "    - %s\n", a.String())
		}
	}

	return sb.String()
}
