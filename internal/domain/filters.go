package domain

// MaxPageSize caps any requested limit.
const MaxPageSize = 200

// Filters are the list parameters accepted by every collection endpoint.
// They are request scoped and never persisted.
type Filters struct {
	Limit     int
	Offset    int
	SortField string
	SortOrder string // asc | desc
	Search    string
}

type CodeFilters struct {
	Filters
	ShowDeprecated bool
}

// PageLimit resolves the effective page size: the requested limit when
// positive, else def, never above MaxPageSize.
func (f Filters) PageLimit(def int) int {
	limit := def
	if f.Limit > 0 {
		limit = f.Limit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return limit
}
