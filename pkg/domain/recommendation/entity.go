package recommendation

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentshield/api/pkg/domain/shared"
)

// Recommendation represents a remediation recommendation raised by a static
// or dynamic analysis run against an agent workflow. Source type and severity
// are fixed at creation; only the lifecycle status changes afterwards.
type Recommendation struct {
	id         shared.ID
	workflowID shared.ID

	sourceType      SourceType
	severity        Severity
	category        string
	title           string
	description     string
	status          Status
	sourceFindingID *shared.ID

	fixNotes  string
	fixMethod string

	createdAt time.Time
	updatedAt time.Time
}

// NewRecommendation creates a new Recommendation in the pending state.
func NewRecommendation(
	workflowID shared.ID,
	sourceType SourceType,
	severity Severity,
	category string,
	title string,
) (*Recommendation, error) {
	if workflowID.IsZero() {
		return nil, fmt.Errorf("%w: workflow ID is required", shared.ErrValidation)
	}
	if !sourceType.IsValid() {
		return nil, fmt.Errorf("%w: invalid source type", shared.ErrValidation)
	}
	if !severity.IsValid() {
		return nil, fmt.Errorf("%w: invalid severity", shared.ErrValidation)
	}
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", shared.ErrValidation)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Recommendation{
		id:         shared.NewID(),
		workflowID: workflowID,
		sourceType: sourceType,
		severity:   severity,
		category:   category,
		title:      title,
		status:     StatusPending,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// Reconstitute recreates a Recommendation from persistence.
func Reconstitute(
	id shared.ID,
	workflowID shared.ID,
	sourceType SourceType,
	severity Severity,
	category string,
	title string,
	description string,
	status Status,
	sourceFindingID *shared.ID,
	fixNotes string,
	fixMethod string,
	createdAt, updatedAt time.Time,
) *Recommendation {
	return &Recommendation{
		id:              id,
		workflowID:      workflowID,
		sourceType:      sourceType,
		severity:        severity,
		category:        category,
		title:           title,
		description:     description,
		status:          status,
		sourceFindingID: sourceFindingID,
		fixNotes:        fixNotes,
		fixMethod:       fixMethod,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// ID returns the recommendation ID.
func (r *Recommendation) ID() shared.ID {
	return r.id
}

// WorkflowID returns the owning agent workflow ID.
func (r *Recommendation) WorkflowID() shared.ID {
	return r.workflowID
}

// SourceType returns the analysis source type.
func (r *Recommendation) SourceType() SourceType {
	return r.sourceType
}

// Severity returns the severity level.
func (r *Recommendation) Severity() Severity {
	return r.severity
}

// Category returns the category tag.
func (r *Recommendation) Category() string {
	return r.category
}

// Title returns the title.
func (r *Recommendation) Title() string {
	return r.title
}

// Description returns the description.
func (r *Recommendation) Description() string {
	return r.description
}

// Status returns the current lifecycle status.
func (r *Recommendation) Status() Status {
	return r.status
}

// SourceFindingID returns the back-reference to the originating finding, if any.
func (r *Recommendation) SourceFindingID() *shared.ID {
	return r.sourceFindingID
}

// FixNotes returns the fix notes recorded on completion.
func (r *Recommendation) FixNotes() string {
	return r.fixNotes
}

// FixMethod returns the fix method recorded on completion.
func (r *Recommendation) FixMethod() string {
	return r.fixMethod
}

// CreatedAt returns the creation timestamp.
func (r *Recommendation) CreatedAt() time.Time {
	return r.createdAt
}

// UpdatedAt returns the last update timestamp.
func (r *Recommendation) UpdatedAt() time.Time {
	return r.updatedAt
}

// IsOpen returns true while the recommendation still needs work.
func (r *Recommendation) IsOpen() bool {
	return r.status.IsOpen()
}

// IsResolved returns true once the recommendation reached a resolved state.
func (r *Recommendation) IsResolved() bool {
	return r.status.IsResolved()
}

// IsGateBlocking returns true if this recommendation contributes to a blocked
// production gate: open and critical or high severity.
func (r *Recommendation) IsGateBlocking() bool {
	return r.severity.IsGateBlocking() && r.status.IsOpen()
}

// SetDescription sets the description.
func (r *Recommendation) SetDescription(description string) {
	r.description = description
	r.updatedAt = time.Now().UTC()
}

// SetSourceFinding links the recommendation back to the finding it came from.
func (r *Recommendation) SetSourceFinding(id shared.ID) {
	r.sourceFindingID = &id
	r.updatedAt = time.Now().UTC()
}

// StartFix transitions pending -> fixing.
func (r *Recommendation) StartFix() error {
	return r.transition(StatusFixing)
}

// CompleteFix transitions fixing (or pending) -> fixed, recording how the fix
// was applied.
func (r *Recommendation) CompleteFix(fixNotes, fixMethod string) error {
	if err := r.transition(StatusFixed); err != nil {
		return err
	}
	r.fixNotes = fixNotes
	r.fixMethod = fixMethod
	return nil
}

// Verify transitions fixed -> verified.
func (r *Recommendation) Verify() error {
	return r.transition(StatusVerified)
}

// Dismiss transitions an open recommendation to dismissed or ignored.
// A non-blank reason is required; the caller records it in the audit trail.
func (r *Recommendation) Dismiss(dismissType DismissType, reason string) error {
	if !dismissType.IsValid() {
		return fmt.Errorf("%w: invalid dismiss type", shared.ErrValidation)
	}
	if strings.TrimSpace(reason) == "" {
		return NewReasonRequiredError(dismissType)
	}
	return r.transition(dismissType.Status())
}

// Reopen transitions any resolved state back to pending.
func (r *Recommendation) Reopen() error {
	if !r.status.IsResolved() {
		return NewInvalidTransitionError(r.status, StatusPending)
	}
	return r.transition(StatusPending)
}

// transition applies a status change after checking legality.
// Illegal requests fail and perform no mutation.
func (r *Recommendation) transition(target Status) error {
	if !r.status.CanTransitionTo(target) {
		return NewInvalidTransitionError(r.status, target)
	}
	r.status = target
	r.updatedAt = time.Now().UTC()
	return nil
}
