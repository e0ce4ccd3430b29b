package app

import (
	"context"
	"fmt"
	"time"

	"github.com/agentshield/api/pkg/domain/agentsession"
	"github.com/agentshield/api/pkg/domain/recommendation"
)

// Finding is one security observation the dynamic analyzer produced for a
// session. Findings become dynamic-source recommendations.
type Finding struct {
	Severity    recommendation.Severity
	Category    string
	Title       string
	Description string
}

// SessionAnalyzer inspects one recorded session and returns its findings.
// Implementations must be safe for concurrent use.
type SessionAnalyzer interface {
	Analyze(ctx context.Context, session *agentsession.Session) ([]Finding, error)
}

// RuleAnalyzer is a baseline analyzer running inexpensive structural checks
// over session metadata. Deeper content inspection plugs in behind the same
// interface.
type RuleAnalyzer struct {
	// MaxSessionDuration flags sessions that ran longer than expected.
	MaxSessionDuration time.Duration
}

// NewRuleAnalyzer creates a RuleAnalyzer with default thresholds.
func NewRuleAnalyzer() *RuleAnalyzer {
	return &RuleAnalyzer{
		MaxSessionDuration: 4 * time.Hour,
	}
}

// Analyze runs the structural checks for a single session.
func (a *RuleAnalyzer) Analyze(_ context.Context, session *agentsession.Session) ([]Finding, error) {
	var findings []Finding

	duration := a.sessionDuration(session)
	if duration > a.MaxSessionDuration {
		findings = append(findings, Finding{
			Severity: recommendation.SeverityMedium,
			Category: "rate_abuse",
			Title:    "Agent session exceeded expected duration",
			Description: fmt.Sprintf(
				"Session %s ran for %s, above the %s threshold. Review the session for runaway loops or unbounded tool usage.",
				session.ID().String(), duration.Round(time.Minute), a.MaxSessionDuration,
			),
		})
	}

	return findings, nil
}

func (a *RuleAnalyzer) sessionDuration(session *agentsession.Session) time.Duration {
	end := time.Now().UTC()
	if session.EndedAt() != nil {
		end = *session.EndedAt()
	}
	return end.Sub(session.StartedAt())
}
