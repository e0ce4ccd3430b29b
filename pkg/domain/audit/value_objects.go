package audit

import "strings"

// ActionType is the closed set of semantic audit actions. Raw action codes
// from any producer are mapped onto this set at render time.
type ActionType string

const (
	ActionCreate       ActionType = "create"
	ActionFixing       ActionType = "fixing"
	ActionVerified     ActionType = "verified"
	ActionFixed        ActionType = "fixed"
	ActionDismissed    ActionType = "dismissed"
	ActionIgnored      ActionType = "ignored"
	ActionReopened     ActionType = "reopened"
	ActionStatusChange ActionType = "status_change"
)

// String returns the string representation.
func (t ActionType) String() string {
	return string(t)
}

// IsDismissFamily returns true for actions that require a recorded reason.
func (t ActionType) IsDismissFamily() bool {
	return t == ActionDismissed || t == ActionIgnored
}

// classificationRule maps raw action-code substrings to a semantic type.
type classificationRule struct {
	actionType ActionType
	substrings []string
}

// classificationRules is evaluated in order; the first matching rule wins.
// The order is deliberate: "start_fix" must classify as fixing before the
// bare "fix" substring of the fixed rule can claim it, and "verified" must
// win over "fixed" for codes that mention both.
var classificationRules = []classificationRule{
	{ActionCreate, []string{"create"}},
	{ActionFixing, []string{"fixing", "start_fix"}},
	{ActionVerified, []string{"verif"}},
	{ActionFixed, []string{"fixed", "complete_fix", "fix"}},
	{ActionDismissed, []string{"dismiss"}},
	{ActionIgnored, []string{"ignor"}},
	{ActionReopened, []string{"reopen"}},
}

// Classify maps a raw action code onto its semantic ActionType using
// case-insensitive substring matching in fixed priority order.
//
// Classify is pure and total: unrecognized codes fall through to
// ActionStatusChange so entries from newer producers still render.
func Classify(rawAction string) ActionType {
	code := strings.ToLower(strings.TrimSpace(rawAction))
	if code == "" {
		return ActionStatusChange
	}
	for _, rule := range classificationRules {
		for _, sub := range rule.substrings {
			if strings.Contains(code, sub) {
				return rule.actionType
			}
		}
	}
	return ActionStatusChange
}
