// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// clinic-console мониторит две зависимости:
//   - PostgreSQL (журнал аудита) — SQL checker через существующий pgxpool (pool mode, non-critical)
//   - clinic API — HTTP checker (critical)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для clinic API
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"     // PostgreSQL checker (pool mode)
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках
	Group string
	// DB — *sql.DB из pgxpool (stdlib.OpenDBFromPool); nil — PostgreSQL не мониторится
	DB *sql.DB
	// PGConnURL — URL PostgreSQL для лейблов метрик
	PGConnURL string
	// ClinicURL — базовый URL clinic API
	ClinicURL string
	// ClinicHealthPath — путь health endpoint clinic API
	ClinicHealthPath string
	// CheckInterval — интервал проверки
	CheckInterval time.Duration
	// TLSSkipVerify — не проверять сертификат clinic API
	TLSSkipVerify bool
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(cfg DephealthConfig, logger *slog.Logger, registerer prometheus.Registerer) (*DephealthService, error) {
	return newDephealthService(cfg, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(cfg DephealthConfig, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.HTTP("clinic-api",
			dephealth.FromURL(cfg.ClinicURL),
			dephealth.WithHTTPHealthPath(ClinicHealthPath(cfg.ClinicHealthPath)),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
			dephealth.WithHTTPTLSSkipVerify(cfg.TLSSkipVerify),
		),
	}
	if cfg.DB != nil {
		// Журнал аудита пишется best-effort, поэтому PostgreSQL не критичен.
		opts = append(opts, dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)),
			dephealth.FromURL(cfg.PGConnURL),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(false),
		))
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// ClinicHealthPath нормализует путь health endpoint: пусто → /health, ведущий слэш обязателен.
func ClinicHealthPath(p string) string {
	if p == "" {
		return "/health"
	}
	if p[0] != '/' {
		return "/" + p
	}
	return p
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
