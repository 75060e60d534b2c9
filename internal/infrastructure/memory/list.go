package memory

import (
	"sort"
	"strings"

	"github.com/baechuer/silverback/internal/domain"
)

// listSpec mirrors filter.Options for in-process slices.
type listSpec[T any] struct {
	defaultLimit int
	// defaultLess is the order used when no whitelisted sort field is given.
	defaultLess func(a, b T) bool
	sortFields  map[string]func(T) string
	search      []func(T) string
}

func applyList[T any](items []T, f domain.Filters, s listSpec[T]) domain.Page[T] {
	if q := strings.ToLower(f.Search); q != "" && len(s.search) > 0 {
		kept := items[:0:0]
		for _, it := range items {
			for _, field := range s.search {
				if strings.Contains(strings.ToLower(field(it)), q) {
					kept = append(kept, it)
					break
				}
			}
		}
		items = kept
	}

	if key, ok := s.sortFields[f.SortField]; ok && f.SortField != "" {
		desc := strings.EqualFold(f.SortOrder, "desc")
		sort.SliceStable(items, func(i, j int) bool {
			if desc {
				return key(items[i]) > key(items[j])
			}
			return key(items[i]) < key(items[j])
		})
	} else if s.defaultLess != nil {
		sort.SliceStable(items, func(i, j int) bool { return s.defaultLess(items[i], items[j]) })
	}

	total := len(items)
	offset := max(f.Offset, 0)
	limit := f.PageLimit(s.defaultLimit)
	if offset >= total {
		return domain.Page[T]{Items: []T{}, TotalCount: 0}
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return domain.Page[T]{Items: out, TotalCount: total}
}
