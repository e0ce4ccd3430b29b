package agentsession

import (
	"testing"

	"github.com/agentshield/api/pkg/domain/shared"
)

func TestNewSession(t *testing.T) {
	t.Run("starts active and unanalyzed", func(t *testing.T) {
		s, err := NewSession(shared.NewID())
		if err != nil {
			t.Fatalf("NewSession() unexpected error: %v", err)
		}
		if !s.IsActive() {
			t.Error("new session should be active")
		}
		if s.IsAnalyzed() {
			t.Error("new session should be unanalyzed")
		}
		if s.EndedAt() != nil {
			t.Error("EndedAt should be unset")
		}
	})

	t.Run("rejects zero agent ID", func(t *testing.T) {
		if _, err := NewSession(shared.ID{}); err == nil {
			t.Error("NewSession() should fail for zero agent ID")
		}
	})
}

func TestSession_End(t *testing.T) {
	s, err := NewSession(shared.NewID())
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}

	s.End()
	if s.IsActive() {
		t.Error("ended session should not be active")
	}
	if s.EndedAt() == nil {
		t.Fatal("EndedAt should be stamped")
	}

	first := *s.EndedAt()
	s.End()
	if !s.EndedAt().Equal(first) {
		t.Error("ending twice must not move EndedAt")
	}
}

func TestSession_MarkAnalyzed(t *testing.T) {
	s, err := NewSession(shared.NewID())
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}

	s.MarkAnalyzed()
	if !s.IsAnalyzed() {
		t.Error("session should be analyzed")
	}
	if s.AnalyzedAt() == nil {
		t.Error("AnalyzedAt should be stamped")
	}
	if !s.IsActive() {
		t.Error("analysis must not close the session")
	}
}
