package http_handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/baechuer/silverback/internal/domain"
)

// filtersFromQuery reads limit, offset, sortField, sortOrder and search.
// Malformed numbers are ignored and the list defaults apply.
func filtersFromQuery(r *http.Request) domain.Filters {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return domain.Filters{
		Limit:     limit,
		Offset:    offset,
		SortField: strings.TrimSpace(q.Get("sortField")),
		SortOrder: strings.ToLower(strings.TrimSpace(q.Get("sortOrder"))),
		Search:    strings.TrimSpace(q.Get("search")),
	}
}
