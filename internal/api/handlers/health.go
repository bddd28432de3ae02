// health.go — обработчики health endpoints clinic-console.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (clinic API, identity provider, PostgreSQL)
// /metrics — Prometheus метрики
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/clinic-console/internal/clinicapi"
	"github.com/bigkaa/clinic-console/internal/config"
)

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// serviceName — имя сервиса в ответах health endpoints.
const serviceName = "clinic-console"

// ReadinessChecker — интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady() (status string, message string)
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	clinicChecker ReadinessChecker
	idpChecker    ReadinessChecker
	pgChecker     ReadinessChecker
	promHandler   http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// clinicChecker и idpChecker обязательны для готовности: nil даёт "fail".
// pgChecker обслуживает только журнал аудита: его отказ понижает статус до "degraded".
func NewHealthHandler(clinicChecker, idpChecker, pgChecker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		clinicChecker: clinicChecker,
		idpChecker:    idpChecker,
		pgChecker:     pgChecker,
		promHandler:   promhttp.Handler(),
	}
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthLiveResponse — ответ liveness probe.
type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

// healthReadyResponse — ответ readiness probe.
type healthReadyResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
	Checks    struct {
		ClinicAPI        healthCheckResult `json:"clinic_api"`
		IdentityProvider healthCheckResult `json:"identity_provider"`
		PostgreSQL       healthCheckResult `json:"postgresql"`
	} `json:"checks"`
}

// HealthLive — liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthLiveResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	})
}

// HealthReady — readiness probe.
// Возвращает 200 (ok/degraded) или 503 (fail).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}

	resp.Checks.ClinicAPI = check(h.clinicChecker)
	resp.Checks.IdentityProvider = check(h.idpChecker)
	resp.Checks.PostgreSQL = check(h.pgChecker)

	pgStatus := resp.Checks.PostgreSQL.Status
	if pgStatus == statusFail {
		pgStatus = statusDegraded
	}
	resp.Status = overallStatus(resp.Checks.ClinicAPI.Status, resp.Checks.IdentityProvider.Status, pgStatus)

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == statusFail {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

func check(c ReadinessChecker) healthCheckResult {
	if c == nil {
		return healthCheckResult{Status: statusFail, Message: "не инициализирован"}
	}
	status, msg := c.CheckReady()
	return healthCheckResult{Status: status, Message: msg}
}

// overallStatus определяет итоговый статус из статусов зависимостей.
// Если хотя бы одна зависимость fail — итог fail.
// Если хотя бы одна degraded — итог degraded.
// Иначе — ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == statusFail {
			return statusFail
		}
		if s == statusDegraded {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return statusDegraded
	}
	return statusOK
}

// --- ReadinessChecker для clinic API ---

// ClinicPinger — проверка доступности clinic API.
// Реализуется *clinicapi.Client.
type ClinicPinger interface {
	CheckReady(ctx context.Context) error
}

// ClinicReadinessChecker — проверка готовности clinic API.
type ClinicReadinessChecker struct {
	client  ClinicPinger
	timeout time.Duration
}

// NewClinicReadinessChecker создаёт проверку готовности clinic API.
func NewClinicReadinessChecker(client ClinicPinger, timeout time.Duration) *ClinicReadinessChecker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ClinicReadinessChecker{client: client, timeout: timeout}
}

// CheckReady запрашивает clinic API. Сетевая ошибка и 5xx — fail,
// прочие ответы (например, 401 при истёкших учётных данных) — degraded.
func (c *ClinicReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	err := c.client.CheckReady(ctx)
	if err == nil {
		return statusOK, "clinic API доступен"
	}
	var apiErr *clinicapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 && apiErr.StatusCode < http.StatusInternalServerError {
		return statusDegraded, err.Error()
	}
	return statusFail, err.Error()
}
