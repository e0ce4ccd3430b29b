package recommendation

import (
	"testing"
	"time"

	"github.com/agentshield/api/pkg/domain/shared"
)

func newTestRecommendation(t *testing.T, severity Severity) *Recommendation {
	t.Helper()
	rec, err := NewRecommendation(shared.NewID(), SourceStatic, severity, "prompt_injection", "Harden tool access")
	if err != nil {
		t.Fatalf("NewRecommendation() unexpected error: %v", err)
	}
	return rec
}

func TestNewRecommendation(t *testing.T) {
	t.Run("valid input starts pending", func(t *testing.T) {
		rec := newTestRecommendation(t, SeverityHigh)

		if rec.Status() != StatusPending {
			t.Errorf("Status = %v, want %v", rec.Status(), StatusPending)
		}
		if rec.ID().IsZero() {
			t.Error("ID should be assigned")
		}
		if !rec.IsOpen() {
			t.Error("new recommendation should be open")
		}
	})

	t.Run("rejects invalid source type", func(t *testing.T) {
		_, err := NewRecommendation(shared.NewID(), SourceType("scan"), SeverityHigh, "tool_misuse", "t")
		if err == nil {
			t.Error("NewRecommendation() should fail for unknown source type")
		}
	})

	t.Run("rejects empty title", func(t *testing.T) {
		_, err := NewRecommendation(shared.NewID(), SourceStatic, SeverityHigh, "tool_misuse", "")
		if err == nil {
			t.Error("NewRecommendation() should fail for empty title")
		}
	})
}

func TestRecommendation_StartFix(t *testing.T) {
	t.Run("pending to fixing", func(t *testing.T) {
		rec := newTestRecommendation(t, SeverityCritical)

		if err := rec.StartFix(); err != nil {
			t.Fatalf("StartFix() unexpected error: %v", err)
		}
		if rec.Status() != StatusFixing {
			t.Errorf("Status = %v, want %v", rec.Status(), StatusFixing)
		}
	})

	t.Run("cannot start from fixed", func(t *testing.T) {
		rec := newTestRecommendation(t, SeverityCritical)
		_ = rec.CompleteFix("", "")

		err := rec.StartFix()
		if err == nil {
			t.Error("StartFix() should fail for fixed recommendation")
		}
		if !IsInvalidTransition(err) {
			t.Errorf("error = %v, want invalid transition", err)
		}
		if rec.Status() != StatusFixed {
			t.Errorf("Status = %v, failed transition must not mutate", rec.Status())
		}
	})
}

func TestRecommendation_CompleteFix(t *testing.T) {
	t.Run("fixing to fixed records fix details", func(t *testing.T) {
		rec := newTestRecommendation(t, SeverityHigh)
		_ = rec.StartFix()

		if err := rec.CompleteFix("patched sandbox policy", "manual"); err != nil {
			t.Fatalf("CompleteFix() unexpected error: %v", err)
		}
		if rec.Status() != StatusFixed {
			t.Errorf("Status = %v, want %v", rec.Status(), StatusFixed)
		}
		if rec.FixNotes() != "patched sandbox policy" {
			t.Errorf("FixNotes = %q", rec.FixNotes())
		}
		if rec.FixMethod() != "manual" {
			t.Errorf("FixMethod = %q", rec.FixMethod())
		}
	})

	t.Run("directly from pending", func(t *testing.T) {
		// An operator can fix out of band without ever marking fixing.
		rec := newTestRecommendation(t, SeverityHigh)

		if err := rec.CompleteFix("", ""); err != nil {
			t.Fatalf("CompleteFix() unexpected error: %v", err)
		}
		if rec.Status() != StatusFixed {
			t.Errorf("Status = %v, want %v", rec.Status(), StatusFixed)
		}
	})

	t.Run("cannot complete from verified", func(t *testing.T) {
		rec := newTestRecommendation(t, SeverityHigh)
		_ = rec.CompleteFix("", "")
		_ = rec.Verify()

		if err := rec.CompleteFix("", ""); err == nil {
			t.Error("CompleteFix() should fail for verified recommendation")
		}
	})
}

func TestRecommendation_Verify(t *testing.T) {
	rec := newTestRecommendation(t, SeverityMedium)

	if err := rec.Verify(); err == nil {
		t.Error("Verify() should fail from pending")
	}

	_ = rec.StartFix()
	_ = rec.CompleteFix("", "")

	if err := rec.Verify(); err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if rec.Status() != StatusVerified {
		t.Errorf("Status = %v, want %v", rec.Status(), StatusVerified)
	}
}

func TestRecommendation_Dismiss(t *testing.T) {
	t.Run("dismiss with reason", func(t *testing.T) {
		rec := newTestRecommendation(t, SeverityCritical)

		if err := rec.Dismiss(DismissTypeDismissed, "accepted risk for internal tool"); err != nil {
			t.Fatalf("Dismiss() unexpected error: %v", err)
		}
		if rec.Status() != StatusDismissed {
			t.Errorf("Status = %v, want %v", rec.Status(), StatusDismissed)
		}
		if rec.IsGateBlocking() {
			t.Error("dismissed recommendation must not block the gate")
		}
	})

	t.Run("ignore with reason", func(t *testing.T) {
		rec := newTestRecommendation(t, SeverityHigh)
		_ = rec.StartFix()

		if err := rec.Dismiss(DismissTypeIgnored, "tracked elsewhere"); err != nil {
			t.Fatalf("Dismiss() unexpected error: %v", err)
		}
		if rec.Status() != StatusIgnored {
			t.Errorf("Status = %v, want %v", rec.Status(), StatusIgnored)
		}
	})

	t.Run("blank reason is rejected without mutation", func(t *testing.T) {
		rec := newTestRecommendation(t, SeverityCritical)
		before := rec.UpdatedAt()

		for _, reason := range []string{"", "   ", "\t\n"} {
			err := rec.Dismiss(DismissTypeDismissed, reason)
			if err == nil {
				t.Fatalf("Dismiss(%q) should fail", reason)
			}
			if !IsReasonRequired(err) {
				t.Errorf("Dismiss(%q) error = %v, want reason required", reason, err)
			}
		}

		if rec.Status() != StatusPending {
			t.Errorf("Status = %v, rejected dismissal must not mutate", rec.Status())
		}
		if !rec.UpdatedAt().Equal(before) {
			t.Error("UpdatedAt changed on rejected dismissal")
		}
	})

	t.Run("cannot dismiss resolved recommendation", func(t *testing.T) {
		rec := newTestRecommendation(t, SeverityHigh)
		_ = rec.CompleteFix("", "")

		err := rec.Dismiss(DismissTypeDismissed, "no longer relevant")
		if !IsInvalidTransition(err) {
			t.Errorf("error = %v, want invalid transition", err)
		}
	})
}

func TestRecommendation_Reopen(t *testing.T) {
	t.Run("from every resolved state", func(t *testing.T) {
		prepare := map[string]func(r *Recommendation){
			"fixed":     func(r *Recommendation) { _ = r.CompleteFix("", "") },
			"verified":  func(r *Recommendation) { _ = r.CompleteFix("", ""); _ = r.Verify() },
			"dismissed": func(r *Recommendation) { _ = r.Dismiss(DismissTypeDismissed, "x") },
			"ignored":   func(r *Recommendation) { _ = r.Dismiss(DismissTypeIgnored, "x") },
		}

		for name, setup := range prepare {
			t.Run(name, func(t *testing.T) {
				rec := newTestRecommendation(t, SeverityHigh)
				setup(rec)

				if err := rec.Reopen(); err != nil {
					t.Fatalf("Reopen() unexpected error: %v", err)
				}
				if rec.Status() != StatusPending {
					t.Errorf("Status = %v, want %v", rec.Status(), StatusPending)
				}
			})
		}
	})

	t.Run("cannot reopen open recommendation", func(t *testing.T) {
		rec := newTestRecommendation(t, SeverityHigh)

		if err := rec.Reopen(); err == nil {
			t.Error("Reopen() should fail from pending")
		}

		_ = rec.StartFix()
		if err := rec.Reopen(); err == nil {
			t.Error("Reopen() should fail from fixing")
		}
	})
}

func TestRecommendation_IsGateBlocking(t *testing.T) {
	tests := []struct {
		severity Severity
		resolve  bool
		want     bool
	}{
		{SeverityCritical, false, true},
		{SeverityHigh, false, true},
		{SeverityMedium, false, false},
		{SeverityLow, false, false},
		{SeverityCritical, true, false},
	}

	for _, tt := range tests {
		rec := newTestRecommendation(t, tt.severity)
		if tt.resolve {
			_ = rec.CompleteFix("", "")
		}
		if got := rec.IsGateBlocking(); got != tt.want {
			t.Errorf("IsGateBlocking() severity=%s resolved=%v = %v, want %v",
				tt.severity, tt.resolve, got, tt.want)
		}
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:   {StatusFixing, StatusFixed, StatusDismissed, StatusIgnored},
		StatusFixing:    {StatusFixed, StatusDismissed, StatusIgnored},
		StatusFixed:     {StatusVerified, StatusPending},
		StatusVerified:  {StatusPending},
		StatusDismissed: {StatusPending},
		StatusIgnored:   {StatusPending},
	}

	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestReconstitute(t *testing.T) {
	id := shared.NewID()
	wfID := shared.NewID()
	created := time.Now().UTC().Add(-time.Hour)

	rec := Reconstitute(id, wfID, SourceDynamic, SeverityLow, "rate_abuse", "title", "desc",
		StatusFixing, nil, "", "", created, created)

	if rec.ID() != id || rec.WorkflowID() != wfID {
		t.Error("identity fields not preserved")
	}
	if rec.Status() != StatusFixing {
		t.Errorf("Status = %v, want %v", rec.Status(), StatusFixing)
	}
	if !rec.CreatedAt().Equal(created) {
		t.Error("CreatedAt not preserved")
	}
}
