// Точка входа clinic-console — BFF консоли учётных записей клиники.
// Загружает конфигурацию, применяет миграции журнала аудита, подключается к PostgreSQL,
// создаёт клиент clinic API (client credentials), сервисный слой и API handlers,
// запускает topologymetrics и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/clinic-console/internal/api/handlers"
	"github.com/bigkaa/clinic-console/internal/api/middleware"
	"github.com/bigkaa/clinic-console/internal/clinicapi"
	"github.com/bigkaa/clinic-console/internal/config"
	"github.com/bigkaa/clinic-console/internal/database"
	"github.com/bigkaa/clinic-console/internal/i18n"
	"github.com/bigkaa/clinic-console/internal/repository"
	"github.com/bigkaa/clinic-console/internal/server"
	"github.com/bigkaa/clinic-console/internal/service"
)

// jwksRefreshInterval — период фонового обновления JWKS.
const jwksRefreshInterval = 15 * time.Minute

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("clinic-console запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("clinic_api", cfg.ClinicAPIURL),
	)

	if cfg.ClinicTLSSkipVerify {
		logger.Warn("Проверка TLS-сертификата clinic API отключена (CC_CLINIC_TLS_SKIP_VERIFY=true)")
	}

	// 3. Локализованные сообщения
	bundle, err := i18n.Load(logger)
	if err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Подключение к PostgreSQL (pgxpool)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 6. Клиент clinic API с токеном client credentials
	httpClient := newHTTPClient(cfg.ClinicTimeout, cfg.ClinicTLSSkipVerify)
	tokens := clinicapi.NewClientCredentials(
		cfg.ClinicTokenURL,
		cfg.ClinicClientID,
		cfg.ClinicClientSecret,
		httpClient,
		logger,
	)
	clinicClient := clinicapi.New(cfg.ClinicAPIURL, tokens, httpClient, logger)
	logger.Info("Клиент clinic API создан",
		slog.String("url", cfg.ClinicAPIURL),
		slog.String("token_url", cfg.ClinicTokenURL),
	)

	// 7. Repository + сервис учётных записей
	auditRepo := repository.NewAuditRepository(pool)
	rolesCache := service.NewRolesCache(cfg.RolesCacheSize, cfg.RolesCacheTTL)
	accountSvc := service.NewAccountService(
		clinicClient,
		auditRepo,
		rolesCache,
		clinicClient.BaseURL(),
		service.PageLimits{Default: cfg.PageSizeDefault, Max: cfg.PageSizeMax},
		logger,
	)

	// 8. Readiness checkers (clinic API + identity provider + PostgreSQL)
	healthHandler := handlers.NewHealthHandler(
		handlers.NewClinicReadinessChecker(clinicClient, 3*time.Second),
		middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, 3*time.Second, cfg.ClinicTLSSkipVerify),
		database.NewReadinessChecker(pool),
	)
	apiHandler := handlers.NewAPIHandler(healthHandler, accountSvc, bundle, logger)

	// 9. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTIssuer,
		newHTTPClient(cfg.ClinicTimeout, cfg.ClinicTLSSkipVerify),
		jwksRefreshInterval,
		bundle,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 10. topologymetrics — мониторинг зависимостей (clinic API + PostgreSQL)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:        "clinic-console",
		Group:            cfg.DephealthGroup,
		DB:               pgDB,
		PGConnURL:        cfg.DatabaseURL(),
		ClinicURL:        cfg.ClinicAPIURL,
		ClinicHealthPath: cfg.ClinicHealthPath,
		CheckInterval:    cfg.DephealthCheckInterval,
		TLSSkipVerify:    cfg.ClinicTLSSkipVerify,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth, bundle)
	runErr := srv.Run(ctx)

	// 12. Остановка фоновых задач
	if dephealthSvc != nil {
		for dep, ok := range dephealthSvc.Health() {
			logger.Info("Состояние зависимости при остановке",
				slog.String("dependency", dep),
				slog.Bool("healthy", ok),
			)
		}
		dephealthSvc.Stop()
	}

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
	logger.Info("clinic-console остановлен")
}

// newHTTPClient создаёт HTTP-клиент с таймаутом и, при необходимости, без проверки TLS.
func newHTTPClient(timeout time.Duration, tlsSkipVerify bool) *http.Client {
	client := &http.Client{Timeout: timeout}
	if tlsSkipVerify {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // явно включается конфигурацией
		}
	}
	return client
}
