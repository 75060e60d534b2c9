package domain

import "time"

const (
	CodeTypeLanguages    = "LANGUAGES"
	CodeTypeUserStatuses = "USER_STATUSES"
)

type CodeType struct {
	ID          string
	Code        string
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Code struct {
	ID          string
	CodeTypeID  string
	Code        string
	Name        string
	Description *string
	Deprecated  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Page is one slice of a filtered list plus the total before pagination.
type Page[T any] struct {
	Items      []T
	TotalCount int
}
