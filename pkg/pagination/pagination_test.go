package pagination

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		perPage     int
		wantPage    int
		wantPerPage int
	}{
		{name: "defaults applied", page: 0, perPage: 0, wantPage: 1, wantPerPage: 20},
		{name: "negative page", page: -5, perPage: 10, wantPage: 1, wantPerPage: 10},
		{name: "per page capped", page: 2, perPage: 500, wantPage: 2, wantPerPage: 100},
		{name: "valid values kept", page: 3, perPage: 25, wantPage: 3, wantPerPage: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.page, tt.perPage)
			if p.Page != tt.wantPage || p.PerPage != tt.wantPerPage {
				t.Errorf("New(%d, %d) = %+v, want page %d per_page %d",
					tt.page, tt.perPage, p, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}

func TestPagination_Offset(t *testing.T) {
	p := New(3, 20)
	if p.Offset() != 40 {
		t.Errorf("Offset() = %d, want 40", p.Offset())
	}
	if p.Limit() != 20 {
		t.Errorf("Limit() = %d, want 20", p.Limit())
	}
}

func TestSortOption_Parse(t *testing.T) {
	allowed := map[string]string{
		"severity":   "severity_rank",
		"created_at": "created_at",
	}

	t.Run("descending prefix", func(t *testing.T) {
		s := NewSortOption(allowed).Parse("-created_at,severity")
		if got := s.SQL(); got != "created_at DESC, severity_rank ASC" {
			t.Errorf("SQL() = %q", got)
		}
	})

	t.Run("explicit ascending prefix", func(t *testing.T) {
		s := NewSortOption(allowed).Parse("+severity")
		if got := s.SQL(); got != "severity_rank ASC" {
			t.Errorf("SQL() = %q", got)
		}
	})

	t.Run("unknown fields are dropped", func(t *testing.T) {
		s := NewSortOption(allowed).Parse("password,-severity")
		if got := s.SQL(); got != "severity_rank DESC" {
			t.Errorf("SQL() = %q", got)
		}
	})

	t.Run("empty string", func(t *testing.T) {
		s := NewSortOption(allowed).Parse("")
		if !s.IsEmpty() {
			t.Error("empty sort string should produce empty option")
		}
		if got := s.SQLWithDefault("created_at DESC"); got != "created_at DESC" {
			t.Errorf("SQLWithDefault() = %q", got)
		}
	})
}

func TestNewResult(t *testing.T) {
	t.Run("rounds total pages up", func(t *testing.T) {
		r := NewResult([]int{1, 2, 3}, 45, New(1, 20))
		if r.TotalPages != 3 {
			t.Errorf("TotalPages = %d, want 3", r.TotalPages)
		}
		if r.Total != 45 {
			t.Errorf("Total = %d, want 45", r.Total)
		}
	})

	t.Run("nil data becomes empty slice", func(t *testing.T) {
		r := NewResult[int](nil, 0, New(1, 20))
		if r.Data == nil {
			t.Error("Data should be an empty slice, not nil")
		}
		if r.TotalPages != 0 {
			t.Errorf("TotalPages = %d, want 0", r.TotalPages)
		}
	})
}
