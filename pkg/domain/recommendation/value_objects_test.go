package recommendation

import "testing"

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    Severity
		wantErr bool
	}{
		{"critical", SeverityCritical, false},
		{"  HIGH  ", SeverityHigh, false},
		{"Medium", SeverityMedium, false},
		{"low", SeverityLow, false},
		{"urgent", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseSeverity(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSeverity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSeverity(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSeverity_Rank(t *testing.T) {
	order := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("Rank(%s)=%d should sort before Rank(%s)=%d",
				order[i-1], order[i-1].Rank(), order[i], order[i].Rank())
		}
	}
	if Severity("unknown").Rank() <= SeverityLow.Rank() {
		t.Error("unknown severity should rank after low")
	}
}

func TestSeverity_IsGateBlocking(t *testing.T) {
	blocking := map[Severity]bool{
		SeverityCritical: true,
		SeverityHigh:     true,
		SeverityMedium:   false,
		SeverityLow:      false,
	}
	for s, want := range blocking {
		if got := s.IsGateBlocking(); got != want {
			t.Errorf("%s.IsGateBlocking() = %v, want %v", s, got, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses() {
		got, err := ParseStatus("  " + s.String() + " ")
		if err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %v", s, got)
		}
	}
	if _, err := ParseStatus("done"); err == nil {
		t.Error("ParseStatus should reject unknown status")
	}
}

func TestStatus_IsOpenIsResolved(t *testing.T) {
	for _, s := range AllStatuses() {
		if s.IsOpen() == s.IsResolved() {
			t.Errorf("%s: IsOpen and IsResolved must partition the statuses", s)
		}
	}
}

func TestDismissType(t *testing.T) {
	if DismissTypeDismissed.Status() != StatusDismissed {
		t.Error("dismissed type should resolve to dismissed status")
	}
	if DismissTypeIgnored.Status() != StatusIgnored {
		t.Error("ignored type should resolve to ignored status")
	}

	if _, err := ParseDismissType("Ignored"); err != nil {
		t.Errorf("ParseDismissType unexpected error: %v", err)
	}
	if _, err := ParseDismissType("deleted"); err == nil {
		t.Error("ParseDismissType should reject unknown type")
	}
}

func TestParseSourceType(t *testing.T) {
	got, err := ParseSourceType(" Dynamic ")
	if err != nil || got != SourceDynamic {
		t.Errorf("ParseSourceType = %v, %v", got, err)
	}
	if _, err := ParseSourceType("runtime"); err == nil {
		t.Error("ParseSourceType should reject unknown type")
	}
}
