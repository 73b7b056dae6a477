package task

import (
	"fmt"
	"strings"
	"time"
)

// State is the reporting state of a step.
type State string

// Step states. Completed, failed and skipped are terminal.
const (
	StateStarted    State = "started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateSkipped    State = "skipped"
)

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateSkipped
}

// TrackableType names the kind of domain entity a step reports on.
type TrackableType string

// Trackable kinds.
const (
	TrackableRepository TrackableType = "repository"
	TrackableCommit     TrackableType = "commit"
)

// Status is one node of the progress step tree. Values are immutable; the
// mutators return updated copies. Once a status is terminal every mutator is
// a no-op.
type Status struct {
	id            string
	state         State
	operation     Operation
	step          string
	message       string
	total         int
	current       int
	errorMessage  string
	parent        *Status
	trackableID   int64
	trackableType TrackableType
	createdAt     time.Time
	updatedAt     time.Time
}

// NewStatus creates a started step for an operation, optionally parented and
// bound to a trackable entity.
func NewStatus(operation Operation, step string, parent *Status, trackableType TrackableType, trackableID int64) Status {
	now := time.Now().UTC()
	return Status{
		id:            statusID(operation, step, trackableType, trackableID),
		state:         StateStarted,
		operation:     operation,
		step:          step,
		parent:        parent,
		trackableType: trackableType,
		trackableID:   trackableID,
		createdAt:     now,
		updatedAt:     now,
	}
}

// ReconstructStatus rebuilds a Status from persistence.
func ReconstructStatus(
	id string,
	state State,
	operation Operation,
	step string,
	message string,
	total, current int,
	errorMessage string,
	trackableType TrackableType,
	trackableID int64,
	createdAt, updatedAt time.Time,
) Status {
	return Status{
		id:            id,
		state:         state,
		operation:     operation,
		step:          step,
		message:       message,
		total:         total,
		current:       current,
		errorMessage:  errorMessage,
		trackableType: trackableType,
		trackableID:   trackableID,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// ID returns the step identity.
func (s Status) ID() string { return s.id }

// State returns the current state.
func (s Status) State() State { return s.state }

// Operation returns the owning operation.
func (s Status) Operation() Operation { return s.operation }

// Step returns the step name within the operation, empty for the root.
func (s Status) Step() string { return s.step }

// Message returns the progress message.
func (s Status) Message() string { return s.message }

// Total returns the progress denominator.
func (s Status) Total() int { return s.total }

// Current returns the progress numerator.
func (s Status) Current() int { return s.current }

// Error returns the failure message, empty unless failed.
func (s Status) Error() string { return s.errorMessage }

// Parent returns the parent step, nil at the root.
func (s Status) Parent() *Status { return s.parent }

// TrackableID returns the bound entity id.
func (s Status) TrackableID() int64 { return s.trackableID }

// TrackableType returns the bound entity kind.
func (s Status) TrackableType() TrackableType { return s.trackableType }

// CreatedAt returns when the step started.
func (s Status) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last mutation time.
func (s Status) UpdatedAt() time.Time { return s.updatedAt }

// CompletionPercent returns progress in [0, 100].
func (s Status) CompletionPercent() float64 {
	if s.total == 0 {
		return 0
	}
	percent := float64(s.current) / float64(s.total) * 100
	return min(max(percent, 0), 100)
}

// SetTotal sets the progress denominator.
func (s Status) SetTotal(total int) Status {
	if s.state.IsTerminal() {
		return s
	}
	s.total = total
	s.updatedAt = time.Now().UTC()
	return s
}

// Advance moves progress to current and marks the step in progress.
func (s Status) Advance(current int, message string) Status {
	if s.state.IsTerminal() {
		return s
	}
	s.state = StateInProgress
	s.current = current
	if message != "" {
		s.message = message
	}
	s.updatedAt = time.Now().UTC()
	return s
}

// Complete marks the step completed and forces current to total.
func (s Status) Complete() Status {
	if s.state.IsTerminal() {
		return s
	}
	s.state = StateCompleted
	s.current = s.total
	s.updatedAt = time.Now().UTC()
	return s
}

// Fail marks the step failed with the error message.
func (s Status) Fail(errorMsg string) Status {
	if s.state.IsTerminal() {
		return s
	}
	s.state = StateFailed
	s.errorMessage = errorMsg
	s.updatedAt = time.Now().UTC()
	return s
}

// Skip marks the step skipped with a reason.
func (s Status) Skip(message string) Status {
	if s.state.IsTerminal() {
		return s
	}
	s.state = StateSkipped
	s.message = message
	s.updatedAt = time.Now().UTC()
	return s
}

// statusID builds "{trackableType}-{id}-{operation}[.{step}]".
func statusID(operation Operation, step string, trackableType TrackableType, trackableID int64) string {
	var parts []string
	if trackableType != "" {
		parts = append(parts, string(trackableType))
	}
	if trackableID != 0 {
		parts = append(parts, fmt.Sprintf("%d", trackableID))
	}
	name := string(operation)
	if step != "" {
		name += "." + step
	}
	parts = append(parts, name)
	return strings.Join(parts, "-")
}
