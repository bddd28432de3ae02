// Пакет handlers — HTTP-обработчики clinic-console.
// handler.go — основной обработчик API: объединяет доменные обработчики
// и переводит ошибки сервисного слоя в HTTP-ответы.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/bigkaa/clinic-console/internal/api/errors"
	"github.com/bigkaa/clinic-console/internal/clinicapi"
	"github.com/bigkaa/clinic-console/internal/i18n"
	"github.com/bigkaa/clinic-console/internal/service"
)

// APIHandler — основной обработчик API clinic-console.
type APIHandler struct {
	health   *HealthHandler
	accounts *service.AccountService
	bundle   *i18n.Bundle
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	accounts *service.AccountService,
	bundle *i18n.Bundle,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		accounts: accounts,
		bundle:   bundle,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError переводит ошибку сервиса или clinic API в ответ.
// Известные ошибки валидации — 400 с локализованным текстом,
// недоступность clinic API (сеть, 5xx) — 502, 404 и 409 upstream — как есть, прочие 4xx — 400.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	ctx := r.Context()

	if key, ok := service.MessageKey(err); ok {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, h.bundle.T(ctx, key))
			return
		}
		apierrors.ValidationError(w, h.bundle.T(ctx, key))
		return
	}
	if errors.Is(err, service.ErrValidation) {
		apierrors.ValidationError(w, err.Error())
		return
	}

	var apiErr *clinicapi.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 0 || apiErr.StatusCode >= http.StatusInternalServerError:
			h.logger.Warn(logMsg,
				slog.Int("upstream_status", apiErr.StatusCode),
				slog.String("error", err.Error()),
			)
			apierrors.UpstreamUnavailable(w, h.bundle.Tf(ctx, i18n.MsgUpstreamUnavail, apiErr.Message))
		case apiErr.StatusCode == http.StatusNotFound:
			msg := apiErr.Message
			if msg == "" {
				msg = h.bundle.T(ctx, i18n.MsgNotFound)
			}
			apierrors.NotFound(w, msg)
		case apiErr.StatusCode == http.StatusConflict:
			apierrors.Conflict(w, apiErr.Message)
		default:
			apierrors.ValidationError(w, apiErr.Message)
		}
		return
	}

	h.logger.Error(logMsg, slog.String("error", err.Error()))
	apierrors.InternalError(w, h.bundle.T(ctx, i18n.MsgInternal))
}

// invalidParam — 400 для некорректного query-параметра.
func (h *APIHandler) invalidParam(w http.ResponseWriter, r *http.Request, name string) {
	apierrors.ValidationError(w, h.bundle.Tf(r.Context(), i18n.MsgInvalidParam, name))
}

// queryInt читает положительный целый query-параметр.
// Отсутствующий параметр — def, нечисловой или меньше lowest — ошибка.
func queryInt(r *http.Request, name string, def, lowest int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < lowest {
		return 0, strconv.ErrRange
	}
	return v, nil
}

// paginationDefaults нормализует параметры пагинации журнала аудита.
// Возвращает корректные limit и offset.
func paginationDefaults(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
