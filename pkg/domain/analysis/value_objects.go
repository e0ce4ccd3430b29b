package analysis

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// State represents the execution state of an analysis run.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// AllStates returns all valid run states.
func AllStates() []State {
	return []State{StateQueued, StateRunning, StateCompleted, StateFailed}
}

// IsValid checks if the state is valid.
func (s State) IsValid() bool {
	return slices.Contains(AllStates(), s)
}

// String returns the string representation.
func (s State) String() string {
	return string(s)
}

// IsActive returns true while the run still occupies the agent's single
// analysis slot.
func (s State) IsActive() bool {
	return s == StateQueued || s == StateRunning
}

// ParseState parses a string into a State.
func ParseState(str string) (State, error) {
	s := State(strings.ToLower(strings.TrimSpace(str)))
	if !s.IsValid() {
		return "", fmt.Errorf("invalid run state: %s", str)
	}
	return s, nil
}

// TriggerOutcome is the server's answer to a trigger request.
type TriggerOutcome string

const (
	// OutcomeTriggered means a new run was accepted and queued.
	OutcomeTriggered TriggerOutcome = "triggered"
	// OutcomeNoNewSessions means there was nothing to analyze; benign no-op.
	OutcomeNoNewSessions TriggerOutcome = "no_new_sessions"
	// OutcomeAlreadyRunning means a run is already in flight; benign no-op.
	OutcomeAlreadyRunning TriggerOutcome = "already_running"
)

// String returns the string representation.
func (o TriggerOutcome) String() string {
	return string(o)
}

// StartsPolling returns true only for the outcome that opens a poll loop.
// The no-op outcomes refresh status once and stop.
func (o TriggerOutcome) StartsPolling() bool {
	return o == OutcomeTriggered
}

// LastAnalysis summarizes the most recent completed run.
type LastAnalysis struct {
	CompletedAt      time.Time `json:"completed_at"`
	SessionsAnalyzed int       `json:"sessions_analyzed"`
}

// StatusSnapshot is the poll-facing view of an agent's analysis state.
// The backend owns it; clients only mirror it between polls.
type StatusSnapshot struct {
	AgentID                 string        `json:"agent_id"`
	IsRunning               bool          `json:"is_running"`
	TotalUnanalyzedSessions int           `json:"total_unanalyzed_sessions"`
	TotalActiveSessions     int           `json:"total_active_sessions"`
	LastAnalysis            *LastAnalysis `json:"last_analysis,omitempty"`
	CanTrigger              bool          `json:"can_trigger"`
}
