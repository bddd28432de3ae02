// audit.go — обработчик /api/v1/audit: журнал изменений учётных записей.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/clinic-console/internal/domain/model"
)

// auditEntryResponse — запись журнала в ответе API.
type auditEntryResponse struct {
	ID         string         `json:"id"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	AccountIDs []string       `json:"account_ids"`
	Payload    map[string]any `json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
}

// auditListResponse — страница журнала.
type auditListResponse struct {
	Items   []auditEntryResponse `json:"items"`
	Total   int                  `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
	HasMore bool                 `json:"has_more"`
}

// ListAudit — GET /api/v1/audit.
// Новые записи первыми. Доступ: admin.
func (h *APIHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 100, 1)
	if err != nil {
		h.invalidParam(w, r, "limit")
		return
	}
	offset, err := queryInt(r, "offset", 0, 0)
	if err != nil {
		h.invalidParam(w, r, "offset")
		return
	}
	limit, offset = paginationDefaults(limit, offset)

	entries, total, err := h.accounts.ListAudit(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения журнала аудита")
		return
	}

	items := make([]auditEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = mapAuditEntry(e)
	}

	writeJSON(w, http.StatusOK, auditListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

func mapAuditEntry(e *model.AuditEntry) auditEntryResponse {
	ids := e.AccountIDs
	if ids == nil {
		ids = []string{}
	}
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return auditEntryResponse{
		ID:         e.ID,
		Actor:      e.Actor,
		Action:     e.Action,
		AccountIDs: ids,
		Payload:    payload,
		CreatedAt:  e.CreatedAt,
	}
}
