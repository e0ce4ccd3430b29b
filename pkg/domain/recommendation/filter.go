package recommendation

import (
	"net/url"
	"strconv"
	"strings"
)

// Filter defines the filtering options for recommendation views.
// Filter state round-trips through the dashboard page query string
// (source, status, category, blocking) so filtered views stay shareable.
type Filter struct {
	WorkflowID   *string
	Sources      []SourceType
	Statuses     []Status
	Categories   []string
	BlockingOnly bool
	Search       *string
}

// NewFilter creates an empty filter.
func NewFilter() Filter {
	return Filter{}
}

// WithWorkflowID adds a workflow ID filter.
func (f Filter) WithWorkflowID(id string) Filter {
	f.WorkflowID = &id
	return f
}

// WithSources adds a source type filter.
func (f Filter) WithSources(sources ...SourceType) Filter {
	f.Sources = sources
	return f
}

// WithStatuses adds a status filter.
func (f Filter) WithStatuses(statuses ...Status) Filter {
	f.Statuses = statuses
	return f
}

// WithCategories adds a category filter.
func (f Filter) WithCategories(categories ...string) Filter {
	f.Categories = categories
	return f
}

// WithBlockingOnly restricts the filter to gate-blocking recommendations.
func (f Filter) WithBlockingOnly() Filter {
	f.BlockingOnly = true
	return f
}

// WithSearch adds a search filter over title and description.
func (f Filter) WithSearch(search string) Filter {
	f.Search = &search
	return f
}

// IsEmpty returns true if no filters are set.
func (f Filter) IsEmpty() bool {
	return f.WorkflowID == nil &&
		len(f.Sources) == 0 &&
		len(f.Statuses) == 0 &&
		len(f.Categories) == 0 &&
		!f.BlockingOnly &&
		f.Search == nil
}

// Match reports whether a recommendation satisfies every predicate in the
// filter. Predicates compose with AND; empty predicates match everything.
func (f Filter) Match(r *Recommendation) bool {
	if f.WorkflowID != nil && r.WorkflowID().String() != *f.WorkflowID {
		return false
	}
	if len(f.Sources) > 0 && !containsSource(f.Sources, r.SourceType()) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Status()) {
		return false
	}
	if len(f.Categories) > 0 && !containsFold(f.Categories, r.Category()) {
		return false
	}
	if f.BlockingOnly && !r.IsGateBlocking() {
		return false
	}
	if f.Search != nil && *f.Search != "" {
		needle := strings.ToLower(*f.Search)
		if !strings.Contains(strings.ToLower(r.Title()), needle) &&
			!strings.Contains(strings.ToLower(r.Description()), needle) {
			return false
		}
	}
	return true
}

// Apply returns the subset of recommendations matched by the filter,
// preserving input order.
func (f Filter) Apply(recs []*Recommendation) []*Recommendation {
	if f.IsEmpty() {
		return recs
	}
	out := make([]*Recommendation, 0, len(recs))
	for _, r := range recs {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Query string keys for filter persistence.
const (
	queryKeySource   = "source"
	queryKeyStatus   = "status"
	queryKeyCategory = "category"
	queryKeyBlocking = "blocking"
	queryKeySearch   = "q"
)

// ParseFilterQuery decodes a filter from page query parameters.
// Unknown enum values are dropped rather than failing the whole filter,
// so stale bookmarked links still resolve to a usable view.
func ParseFilterQuery(values url.Values) Filter {
	f := NewFilter()

	for _, raw := range splitMulti(values[queryKeySource]) {
		if src, err := ParseSourceType(raw); err == nil {
			f.Sources = append(f.Sources, src)
		}
	}
	for _, raw := range splitMulti(values[queryKeyStatus]) {
		if st, err := ParseStatus(raw); err == nil {
			f.Statuses = append(f.Statuses, st)
		}
	}
	for _, raw := range splitMulti(values[queryKeyCategory]) {
		if raw != "" {
			f.Categories = append(f.Categories, raw)
		}
	}
	if b, err := strconv.ParseBool(values.Get(queryKeyBlocking)); err == nil && b {
		f.BlockingOnly = true
	}
	if q := strings.TrimSpace(values.Get(queryKeySearch)); q != "" {
		f.Search = &q
	}

	return f
}

// QueryValues encodes the filter back into page query parameters.
// Round-trips with ParseFilterQuery.
func (f Filter) QueryValues() url.Values {
	values := url.Values{}

	for _, src := range f.Sources {
		values.Add(queryKeySource, src.String())
	}
	for _, st := range f.Statuses {
		values.Add(queryKeyStatus, st.String())
	}
	for _, c := range f.Categories {
		values.Add(queryKeyCategory, c)
	}
	if f.BlockingOnly {
		values.Set(queryKeyBlocking, "true")
	}
	if f.Search != nil && *f.Search != "" {
		values.Set(queryKeySearch, *f.Search)
	}

	return values
}

// splitMulti flattens repeated and comma-separated query parameters.
func splitMulti(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func containsSource(list []SourceType, v SourceType) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsStatus(list []Status, v Status) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
