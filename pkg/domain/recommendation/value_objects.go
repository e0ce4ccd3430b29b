package recommendation

import (
	"fmt"
	"slices"
	"strings"
)

// SourceType represents which kind of analysis produced a recommendation.
// Immutable once the recommendation is created.
type SourceType string

const (
	SourceStatic  SourceType = "static"
	SourceDynamic SourceType = "dynamic"
)

// AllSourceTypes returns all valid source types.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceStatic, SourceDynamic}
}

// IsValid checks if the source type is valid.
func (t SourceType) IsValid() bool {
	return slices.Contains(AllSourceTypes(), t)
}

// String returns the string representation.
func (t SourceType) String() string {
	return string(t)
}

// ParseSourceType parses a string into a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	t := SourceType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid source type: %s", s)
	}
	return t, nil
}

// Severity represents the severity level of a recommendation.
// Immutable once the recommendation is created.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// AllSeverities returns all valid severity levels.
func AllSeverities() []Severity {
	return []Severity{
		SeverityCritical,
		SeverityHigh,
		SeverityMedium,
		SeverityLow,
	}
}

// IsValid checks if the severity is valid.
func (s Severity) IsValid() bool {
	return slices.Contains(AllSeverities(), s)
}

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// Rank returns the total-order position of the severity.
// critical < high < medium < low; lower rank sorts first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// IsGateBlocking returns true for severities that can block the production gate.
func (s Severity) IsGateBlocking() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// ParseSeverity parses a string into a Severity.
func ParseSeverity(str string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(str)))
	if !s.IsValid() {
		return "", fmt.Errorf("invalid severity: %s", str)
	}
	return s, nil
}

// Status represents the lifecycle state of a recommendation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFixing    Status = "fixing"
	StatusFixed     Status = "fixed"
	StatusVerified  Status = "verified"
	StatusDismissed Status = "dismissed"
	StatusIgnored   Status = "ignored"
)

// AllStatuses returns all valid statuses.
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusFixing,
		StatusFixed,
		StatusVerified,
		StatusDismissed,
		StatusIgnored,
	}
}

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	return slices.Contains(AllStatuses(), s)
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// ParseStatus parses a string into a Status.
func ParseStatus(str string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(str)))
	if !s.IsValid() {
		return "", fmt.Errorf("invalid status: %s", str)
	}
	return s, nil
}

// IsOpen returns true while work on the recommendation is outstanding.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusFixing
}

// IsResolved returns true for terminal-family states. Derived, never stored.
func (s Status) IsResolved() bool {
	switch s {
	case StatusFixed, StatusVerified, StatusDismissed, StatusIgnored:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a lifecycle transition is valid.
// Fixed is reachable directly from pending to tolerate out-of-band manual fixes.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusFixing || target == StatusFixed ||
			target == StatusDismissed || target == StatusIgnored
	case StatusFixing:
		return target == StatusFixed || target == StatusDismissed || target == StatusIgnored
	case StatusFixed:
		return target == StatusVerified || target == StatusPending
	case StatusVerified, StatusDismissed, StatusIgnored:
		return target == StatusPending
	default:
		return false
	}
}

// DismissType selects the dismissal flavor of a dismiss request.
type DismissType string

const (
	DismissTypeDismissed DismissType = "dismissed"
	DismissTypeIgnored   DismissType = "ignored"
)

// IsValid checks if the dismiss type is valid.
func (t DismissType) IsValid() bool {
	return t == DismissTypeDismissed || t == DismissTypeIgnored
}

// String returns the string representation.
func (t DismissType) String() string {
	return string(t)
}

// Status returns the lifecycle status the dismiss type resolves to.
func (t DismissType) Status() Status {
	if t == DismissTypeIgnored {
		return StatusIgnored
	}
	return StatusDismissed
}

// ParseDismissType parses a string into a DismissType.
func ParseDismissType(s string) (DismissType, error) {
	t := DismissType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid dismiss type: %s", s)
	}
	return t, nil
}
