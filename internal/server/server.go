// Пакет server — HTTP-сервер clinic-console с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/clinic-console/internal/api/handlers"
	"github.com/bigkaa/clinic-console/internal/api/middleware"
	"github.com/bigkaa/clinic-console/internal/config"
	"github.com/bigkaa/clinic-console/internal/domain/rbac"
	"github.com/bigkaa/clinic-console/internal/i18n"
)

// Server — HTTP-сервер clinic-console.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware (может быть nil: тогда все /api/v1 маршруты отвечают 401).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler *handlers.APIHandler,
	jwtAuth *middleware.JWTAuth,
	bundle *i18n.Bundle,
) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewRouter(logger, handler, jwtAuth, bundle),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер: глобальные middleware, health/metrics без JWT,
// /api/v1 с проверкой ролей на каждом маршруте.
func NewRouter(
	logger *slog.Logger,
	handler *handlers.APIHandler,
	jwtAuth *middleware.JWTAuth,
	bundle *i18n.Bundle,
) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(i18n.Middleware())

	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	if jwtAuth != nil {
		router.Use(jwtAuthWithExclusions(jwtAuth, "/health/", "/metrics"))
	}

	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	admin := middleware.RequireRole(bundle, rbac.RoleAdmin)
	console := middleware.RequireRole(bundle, rbac.StaffRoles...)

	router.Route("/api/v1", func(r chi.Router) {
		// Доступ к представлению проверяется в обработчике.
		r.With(console).Get("/accounts", handler.ListAccounts)
		r.With(admin).Post("/accounts/status", handler.UpdateAccountsStatus)
		r.With(admin).Put("/accounts/{id}", handler.UpdateAccount)
		r.With(admin).Put("/accounts/{id}/status", handler.UpdateAccountStatus)
		r.With(console).Get("/roles", handler.ListRoles)
		r.With(admin).Get("/audit", handler.ListAudit)
	})

	return router
}

// jwtAuthWithExclusions оборачивает JWTAuth.Middleware(), пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без JWT.
func jwtAuthWithExclusions(jwtAuth *middleware.JWTAuth, excludePrefixes ...string) func(http.Handler) http.Handler {
	jwtMiddleware := jwtAuth.Middleware()

	return func(next http.Handler) http.Handler {
		authenticated := jwtMiddleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			authenticated.ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM)
// или отмены ctx. Затем выполняется graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("Контекст сервера отменён")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
