// accounts.go — обработчики /api/v1/accounts endpoints.
// Согласованный список по представлениям, смена статуса (одиночная и массовая),
// замена профиля.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/clinic-console/internal/api/errors"
	"github.com/bigkaa/clinic-console/internal/api/middleware"
	"github.com/bigkaa/clinic-console/internal/domain/model"
	"github.com/bigkaa/clinic-console/internal/domain/views"
	"github.com/bigkaa/clinic-console/internal/i18n"
	"github.com/bigkaa/clinic-console/internal/service"
)

// accountResponse — учётная запись в ответе API.
type accountResponse struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Phone    string   `json:"phone"`
	Roles    []string `json:"roles"`
	IsActive bool     `json:"is_active"`
}

// accountListResponse — страница учётных записей.
type accountListResponse struct {
	Items       []accountResponse `json:"items"`
	Total       int               `json:"total"`
	Page        int               `json:"page"`
	PageSize    int               `json:"page_size"`
	HasNextPage bool              `json:"has_next_page"`
}

// statusRequest — тело PUT /api/v1/accounts/{id}/status.
type statusRequest struct {
	IsActive *bool `json:"is_active"`
}

// bulkStatusRequest — тело POST /api/v1/accounts/status.
type bulkStatusRequest struct {
	IDs      []string `json:"ids"`
	IsActive *bool    `json:"is_active"`
}

// mutationResponse — результат изменения учётных записей.
type mutationResponse struct {
	Updated  int    `json:"updated"`
	IsActive *bool  `json:"is_active,omitempty"`
	Message  string `json:"message"`
}

// ListAccounts — GET /api/v1/accounts.
// Параметры: view, role, keyword, page, page_size, sort (asc|desc).
// Доступ определяется представлением: accounts — admin, patients — admin/staff/doctor.
func (h *APIHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	viewName := strings.TrimSpace(params.Get("view"))
	view, ok := views.Lookup(viewName)
	if !ok {
		apierrors.ValidationError(w, h.bundle.Tf(ctx, i18n.MsgInvalidView, viewName))
		return
	}
	if !view.AllowedFor(middleware.EffectiveRoleFromContext(ctx)) {
		apierrors.Forbidden(w, h.bundle.T(ctx, i18n.MsgForbidden))
		return
	}

	page, err := queryInt(r, "page", 1, 1)
	if err != nil {
		h.invalidParam(w, r, "page")
		return
	}
	pageSize, err := queryInt(r, "page_size", 0, 1)
	if err != nil {
		h.invalidParam(w, r, "page_size")
		return
	}
	sort := strings.ToLower(strings.TrimSpace(params.Get("sort")))
	if sort != "" && sort != string(model.SortAsc) && sort != string(model.SortDesc) {
		h.invalidParam(w, r, "sort")
		return
	}

	limits := h.accounts.Limits()
	q := view.Apply(model.Query{
		Role:     params.Get("role"),
		Keyword:  params.Get("keyword"),
		Page:     page,
		PageSize: pageSize,
		Sort:     model.ParseSortDirection(sort),
	}).Normalize(limits.Default, limits.Max)

	result, err := h.accounts.ListAccounts(ctx, q, view.Exclude)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения списка учётных записей")
		return
	}

	items := make([]accountResponse, len(result.Items))
	for i := range result.Items {
		items[i] = mapAccount(&result.Items[i])
	}

	writeJSON(w, http.StatusOK, accountListResponse{
		Items:       items,
		Total:       result.Total,
		Page:        q.Page,
		PageSize:    q.PageSize,
		HasNextPage: result.HasNextPage,
	})
}

// UpdateAccountStatus — PUT /api/v1/accounts/{id}/status.
// Доступ: admin.
func (h *APIHandler) UpdateAccountStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, h.bundle.T(ctx, i18n.MsgInvalidBody))
		return
	}
	if req.IsActive == nil {
		h.invalidParam(w, r, "is_active")
		return
	}

	if err := h.accounts.UpdateStatus(ctx, actorOf(r), id, *req.IsActive); err != nil {
		h.writeServiceError(w, r, err, "Ошибка изменения статуса учётной записи")
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{
		Updated:  1,
		IsActive: req.IsActive,
		Message:  h.bundle.T(ctx, i18n.MsgStatusUpdated),
	})
}

// UpdateAccountsStatus — POST /api/v1/accounts/status.
// Массовая смена статуса одним запросом к clinic API. Пустой набор id — 400.
// Доступ: admin.
func (h *APIHandler) UpdateAccountsStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req bulkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, h.bundle.T(ctx, i18n.MsgInvalidBody))
		return
	}
	if req.IsActive == nil {
		h.invalidParam(w, r, "is_active")
		return
	}

	ids := service.UniqueIDs(req.IDs)
	if err := h.accounts.UpdateStatusBulk(ctx, actorOf(r), ids, *req.IsActive); err != nil {
		h.writeServiceError(w, r, err, "Ошибка массовой смены статуса")
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{
		Updated:  len(ids),
		IsActive: req.IsActive,
		Message:  h.bundle.Tf(ctx, i18n.MsgBulkStatusUpdated, len(ids)),
	})
}

// UpdateAccount — PUT /api/v1/accounts/{id}.
// Полная замена email, имени и телефона. Поле roles запрещено.
// Доступ: admin.
func (h *APIHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		apierrors.ValidationError(w, h.bundle.T(ctx, i18n.MsgInvalidBody))
		return
	}
	if _, ok := fields["roles"]; ok {
		apierrors.ValidationError(w, h.bundle.T(ctx, i18n.MsgRolesImmutable))
		return
	}

	var p model.Profile
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"email", &p.Email},
		{"full_name", &p.FullName},
		{"phone", &p.Phone},
	} {
		raw, ok := fields[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			h.invalidParam(w, r, f.name)
			return
		}
	}

	if err := h.accounts.UpdateAccount(ctx, actorOf(r), id, p); err != nil {
		h.writeServiceError(w, r, err, "Ошибка обновления учётной записи")
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{
		Updated: 1,
		Message: h.bundle.T(ctx, i18n.MsgProfileUpdated),
	})
}

// ListRoles — GET /api/v1/roles.
// Имена ролей clinic API (через кэш).
// Доступ: admin, staff, doctor.
func (h *APIHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.accounts.ListRoles(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения ролей")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"items": roles})
}

// --- Маппинг ---

func mapAccount(a *model.Account) accountResponse {
	roles := a.Roles
	if roles == nil {
		roles = []string{}
	}
	return accountResponse{
		ID:       a.ID,
		Email:    a.Email,
		FullName: a.FullName,
		Phone:    a.Phone,
		Roles:    roles,
		IsActive: a.IsActive,
	}
}

// actorOf возвращает имя вызывающего для журнала аудита.
func actorOf(r *http.Request) string {
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		return claims.Actor()
	}
	return ""
}
