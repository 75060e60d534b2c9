package http_handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/silverback/internal/application/codes"
	"github.com/baechuer/silverback/internal/domain"
	"github.com/baechuer/silverback/internal/logger"
	"github.com/baechuer/silverback/internal/transport/http/dto"
	"github.com/baechuer/silverback/internal/transport/http/response"
)

type CodesHandler struct {
	svc *codes.Service
}

func NewCodesHandler(svc *codes.Service) *CodesHandler {
	return &CodesHandler{svc: svc}
}

// ListCodeTypes handles GET /code-types.
func (h *CodesHandler) ListCodeTypes(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ListCodeTypes(r.Context(), filtersFromQuery(r))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.List(w, dto.NewCodeTypeViews(page.Items), page.TotalCount)
}

// CreateCodeType handles POST /code-types.
func (h *CodesHandler) CreateCodeType(w http.ResponseWriter, r *http.Request) {
	var req dto.CodeTypeRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	ct, err := h.svc.CreateCodeType(r.Context(), codes.CodeTypeInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("code_type", ct.Code).
		Msg("code_type_created")

	response.Created(w, dto.NewCodeTypeView(ct))
}

// ListCodes handles GET /codes/{codeType}. Deprecated codes are
// hidden unless showDeprecated=true.
func (h *CodesHandler) ListCodes(w http.ResponseWriter, r *http.Request) {
	showDeprecated, _ := strconv.ParseBool(r.URL.Query().Get("showDeprecated"))
	page, err := h.svc.ListCodes(r.Context(), chi.URLParam(r, "codeType"), domain.CodeFilters{
		Filters:        filtersFromQuery(r),
		ShowDeprecated: showDeprecated,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.List(w, dto.NewCodeViews(page.Items), page.TotalCount)
}

// CreateCode handles POST /codes/{codeType}.
func (h *CodesHandler) CreateCode(w http.ResponseWriter, r *http.Request) {
	var req dto.CodeRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	c, err := h.svc.CreateCode(r.Context(), chi.URLParam(r, "codeType"), codes.CodeInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, dto.NewCodeView(c))
}

// Deprecate handles POST /codes/{codeType}/{codeId}/deprecate.
func (h *CodesHandler) Deprecate(w http.ResponseWriter, r *http.Request) {
	h.setDeprecated(w, r, true)
}

// Undeprecate handles POST /codes/{codeType}/{codeId}/undeprecate.
func (h *CodesHandler) Undeprecate(w http.ResponseWriter, r *http.Request) {
	h.setDeprecated(w, r, false)
}

func (h *CodesHandler) setDeprecated(w http.ResponseWriter, r *http.Request, deprecated bool) {
	c, err := h.svc.SetDeprecated(r.Context(), chi.URLParam(r, "codeType"), chi.URLParam(r, "codeId"), deprecated)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("code_id", c.ID).
		Bool("deprecated", deprecated).
		Msg("code_deprecation_changed")

	response.OK(w, dto.NewCodeView(c))
}
