package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/silverback/internal/domain"
)

// CodeRepo is the in-process counterpart of the postgres code store.
type CodeRepo struct {
	mu    sync.RWMutex
	types map[string]domain.CodeType // by code
	codes map[string]domain.Code     // by id
	now   func() time.Time
}

func NewCodeRepo() *CodeRepo {
	return &CodeRepo{
		types: make(map[string]domain.CodeType),
		codes: make(map[string]domain.Code),
		now:   time.Now,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var codeTypeList = listSpec[domain.CodeType]{
	defaultLimit: 50,
	defaultLess:  func(a, b domain.CodeType) bool { return a.Code < b.Code },
	sortFields: map[string]func(domain.CodeType) string{
		"code": func(c domain.CodeType) string { return c.Code },
		"name": func(c domain.CodeType) string { return c.Name },
	},
	search: []func(domain.CodeType) string{
		func(c domain.CodeType) string { return c.Code },
		func(c domain.CodeType) string { return c.Name },
	},
}

var codeList = listSpec[domain.Code]{
	defaultLimit: 50,
	defaultLess:  func(a, b domain.Code) bool { return a.Code < b.Code },
	sortFields: map[string]func(domain.Code) string{
		"code": func(c domain.Code) string { return c.Code },
		"name": func(c domain.Code) string { return c.Name },
	},
	search: []func(domain.Code) string{
		func(c domain.Code) string { return c.Code },
		func(c domain.Code) string { return c.Name },
		func(c domain.Code) string { return deref(c.Description) },
	},
}

func (r *CodeRepo) ListCodeTypes(_ context.Context, f domain.Filters) (domain.Page[domain.CodeType], error) {
	r.mu.RLock()
	items := make([]domain.CodeType, 0, len(r.types))
	for _, ct := range r.types {
		items = append(items, ct)
	}
	r.mu.RUnlock()
	return applyList(items, f, codeTypeList), nil
}

func (r *CodeRepo) GetCodeType(_ context.Context, code string) (domain.CodeType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.types[code]
	if !ok {
		return domain.CodeType{}, domain.ErrCodeTypeNotFound(code)
	}
	return ct, nil
}

func (r *CodeRepo) CreateCodeType(_ context.Context, ct domain.CodeType) (domain.CodeType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[ct.Code]; ok {
		return domain.CodeType{}, domain.ErrCodeDuplicate(ct.Code)
	}
	now := r.now()
	ct.CreatedAt, ct.UpdatedAt = now, now
	r.types[ct.Code] = ct
	return ct, nil
}

func (r *CodeRepo) ListCodes(_ context.Context, codeTypeID string, f domain.CodeFilters) (domain.Page[domain.Code], error) {
	r.mu.RLock()
	items := make([]domain.Code, 0)
	for _, c := range r.codes {
		if c.CodeTypeID != codeTypeID || (c.Deprecated && !f.ShowDeprecated) {
			continue
		}
		items = append(items, c)
	}
	r.mu.RUnlock()
	return applyList(items, f.Filters, codeList), nil
}

func (r *CodeRepo) CreateCode(_ context.Context, c domain.Code) (domain.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.codes {
		if other.CodeTypeID == c.CodeTypeID && strings.EqualFold(other.Code, c.Code) {
			return domain.Code{}, domain.ErrCodeDuplicate(c.Code)
		}
	}
	now := r.now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.codes[c.ID] = c
	return c, nil
}

func (r *CodeRepo) SetDeprecated(_ context.Context, codeTypeID, codeID string, deprecated bool) (domain.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[codeID]
	if !ok || c.CodeTypeID != codeTypeID {
		return domain.Code{}, domain.ErrCodeNotFound()
	}
	c.Deprecated = deprecated
	c.UpdatedAt = r.now()
	r.codes[codeID] = c
	return c, nil
}
