package analysis

import (
	"testing"

	"github.com/agentshield/api/pkg/domain/shared"
)

func newTestRun(t *testing.T) *Run {
	t.Helper()
	run, err := NewRun(shared.NewID())
	if err != nil {
		t.Fatalf("NewRun() unexpected error: %v", err)
	}
	return run
}

func TestNewRun(t *testing.T) {
	t.Run("starts queued", func(t *testing.T) {
		run := newTestRun(t)
		if run.State() != StateQueued {
			t.Errorf("State = %v, want %v", run.State(), StateQueued)
		}
		if !run.IsRunning() {
			t.Error("queued run should count as running")
		}
		if run.StartedAt() != nil || run.CompletedAt() != nil {
			t.Error("timestamps should be unset before Start")
		}
	})

	t.Run("rejects zero agent ID", func(t *testing.T) {
		if _, err := NewRun(shared.ID{}); err == nil {
			t.Error("NewRun() should fail for zero agent ID")
		}
	})
}

func TestRun_Start(t *testing.T) {
	run := newTestRun(t)

	if err := run.Start(); err != nil {
		t.Fatalf("Start() unexpected error: %v", err)
	}
	if run.State() != StateRunning {
		t.Errorf("State = %v, want %v", run.State(), StateRunning)
	}
	if run.StartedAt() == nil {
		t.Error("StartedAt should be stamped")
	}

	if err := run.Start(); !IsInvalidRunState(err) {
		t.Errorf("second Start() error = %v, want invalid run state", err)
	}
}

func TestRun_Complete(t *testing.T) {
	t.Run("running to completed", func(t *testing.T) {
		run := newTestRun(t)
		_ = run.Start()

		if err := run.Complete(7); err != nil {
			t.Fatalf("Complete() unexpected error: %v", err)
		}
		if run.State() != StateCompleted {
			t.Errorf("State = %v, want %v", run.State(), StateCompleted)
		}
		if run.SessionsAnalyzed() != 7 {
			t.Errorf("SessionsAnalyzed = %d, want 7", run.SessionsAnalyzed())
		}
		if run.CompletedAt() == nil {
			t.Error("CompletedAt should be stamped")
		}
		if run.IsRunning() {
			t.Error("completed run should not count as running")
		}
	})

	t.Run("cannot complete without starting", func(t *testing.T) {
		run := newTestRun(t)
		if err := run.Complete(1); !IsInvalidRunState(err) {
			t.Errorf("Complete() error = %v, want invalid run state", err)
		}
	})
}

func TestRun_Fail(t *testing.T) {
	t.Run("from queued", func(t *testing.T) {
		run := newTestRun(t)
		if err := run.Fail("worker lost"); err != nil {
			t.Fatalf("Fail() unexpected error: %v", err)
		}
		if run.State() != StateFailed {
			t.Errorf("State = %v, want %v", run.State(), StateFailed)
		}
		if run.ErrorMessage() != "worker lost" {
			t.Errorf("ErrorMessage = %q", run.ErrorMessage())
		}
	})

	t.Run("from running", func(t *testing.T) {
		run := newTestRun(t)
		_ = run.Start()
		if err := run.Fail("analyzer panic"); err != nil {
			t.Fatalf("Fail() unexpected error: %v", err)
		}
	})

	t.Run("not from completed", func(t *testing.T) {
		run := newTestRun(t)
		_ = run.Start()
		_ = run.Complete(0)
		if err := run.Fail("late"); !IsInvalidRunState(err) {
			t.Errorf("Fail() error = %v, want invalid run state", err)
		}
	})
}

func TestTriggerOutcome_StartsPolling(t *testing.T) {
	if !OutcomeTriggered.StartsPolling() {
		t.Error("triggered outcome should start polling")
	}
	if OutcomeAlreadyRunning.StartsPolling() {
		t.Error("already_running outcome should not start polling")
	}
	if OutcomeNoNewSessions.StartsPolling() {
		t.Error("no_new_sessions outcome should not start polling")
	}
}

func TestParseState(t *testing.T) {
	for _, s := range AllStates() {
		got, err := ParseState(" " + s.String() + " ")
		if err != nil || got != s {
			t.Errorf("ParseState(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseState("paused"); err == nil {
		t.Error("ParseState should reject unknown state")
	}
}
