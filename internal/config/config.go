// Пакет config — загрузка и валидация конфигурации clinic-console
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации clinic-console.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 1024-65535)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL (журнал аудита) ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Clinic API ---

	// Базовый URL clinic API (без trailing slash)
	ClinicAPIURL string
	// Client ID для client credentials
	ClinicClientID string
	// Client Secret для client credentials
	ClinicClientSecret string
	// Token endpoint (авто-вычисляется из AuthURL, если не задан)
	ClinicTokenURL string
	// Путь health endpoint clinic API для мониторинга
	ClinicHealthPath string
	// Таймаут HTTP-запросов к clinic API
	ClinicTimeout time.Duration
	// Не проверять TLS-сертификат clinic API
	ClinicTLSSkipVerify bool

	// --- Identity provider ---

	// URL identity provider (по умолчанию совпадает с ClinicAPIURL)
	AuthURL string
	// Имя realm
	AuthRealm string
	// Issuer JWT (авто-вычисляется из AuthURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из AuthURL, если не задан)
	JWTJWKSURL string

	// --- Список учётных записей ---

	// Размер страницы по умолчанию
	PageSizeDefault int
	// Максимальный размер страницы
	PageSizeMax int
	// Размер кэша ролей
	RolesCacheSize int
	// Время жизни записи кэша ролей
	RolesCacheTTL time.Duration

	// --- Мониторинг ---

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Группа сервиса в метриках topologymetrics
	DephealthGroup string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CC_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("CC_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("CC_PORT: %w", err)
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("CC_PORT: значение %d вне допустимого диапазона 1024-65535", cfg.Port)
	}

	// CC_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CC_LOG_LEVEL: %w", err)
	}

	// CC_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("CC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("CC_DB_HOST"); err != nil {
		return nil, err
	}

	// CC_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("CC_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CC_DB_PORT: %w", err)
	}

	if cfg.DBName, err = getEnvRequired("CC_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("CC_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("CC_DB_PASSWORD"); err != nil {
		return nil, err
	}

	// CC_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("CC_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("CC_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Clinic API ---

	if cfg.ClinicAPIURL, err = getEnvRequired("CC_CLINIC_API_URL"); err != nil {
		return nil, err
	}
	cfg.ClinicAPIURL = strings.TrimRight(cfg.ClinicAPIURL, "/")

	if cfg.ClinicClientID, err = getEnvRequired("CC_CLINIC_CLIENT_ID"); err != nil {
		return nil, err
	}
	if cfg.ClinicClientSecret, err = getEnvRequired("CC_CLINIC_CLIENT_SECRET"); err != nil {
		return nil, err
	}

	// CC_CLINIC_HEALTH_PATH — health endpoint clinic API (по умолчанию /health)
	cfg.ClinicHealthPath = getEnvDefault("CC_CLINIC_HEALTH_PATH", "/health")

	// CC_CLINIC_TIMEOUT — таймаут запросов к clinic API (по умолчанию 10s)
	cfg.ClinicTimeout, err = getEnvDuration("CC_CLINIC_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CC_CLINIC_TIMEOUT: %w", err)
	}

	// CC_CLINIC_TLS_SKIP_VERIFY — не проверять сертификат (по умолчанию false)
	cfg.ClinicTLSSkipVerify, err = getEnvBool("CC_CLINIC_TLS_SKIP_VERIFY", false)
	if err != nil {
		return nil, fmt.Errorf("CC_CLINIC_TLS_SKIP_VERIFY: %w", err)
	}

	// --- Identity provider ---

	// CC_AUTH_URL — по умолчанию совпадает с clinic API
	cfg.AuthURL = strings.TrimRight(getEnvDefault("CC_AUTH_URL", cfg.ClinicAPIURL), "/")

	// CC_AUTH_REALM — realm (по умолчанию clinic)
	cfg.AuthRealm = getEnvDefault("CC_AUTH_REALM", "clinic")

	realmURL := fmt.Sprintf("%s/realms/%s", cfg.AuthURL, cfg.AuthRealm)

	// CC_CLINIC_TOKEN_URL — авто-вычисляется, если не задан
	cfg.ClinicTokenURL = getEnvDefault("CC_CLINIC_TOKEN_URL", realmURL+"/protocol/openid-connect/token")

	// CC_JWT_ISSUER — авто-вычисляется, если не задан
	cfg.JWTIssuer = getEnvDefault("CC_JWT_ISSUER", realmURL)

	// CC_JWT_JWKS_URL — авто-вычисляется, если не задан
	cfg.JWTJWKSURL = getEnvDefault("CC_JWT_JWKS_URL", realmURL+"/protocol/openid-connect/certs")

	// --- Список учётных записей ---

	// CC_PAGE_SIZE_DEFAULT — размер страницы по умолчанию (10)
	cfg.PageSizeDefault, err = getEnvInt("CC_PAGE_SIZE_DEFAULT", 10)
	if err != nil {
		return nil, fmt.Errorf("CC_PAGE_SIZE_DEFAULT: %w", err)
	}
	if cfg.PageSizeDefault < 1 || cfg.PageSizeDefault > 1000 {
		return nil, fmt.Errorf("CC_PAGE_SIZE_DEFAULT: значение %d вне допустимого диапазона 1-1000", cfg.PageSizeDefault)
	}

	// CC_PAGE_SIZE_MAX — максимальный размер страницы (100)
	cfg.PageSizeMax, err = getEnvInt("CC_PAGE_SIZE_MAX", 100)
	if err != nil {
		return nil, fmt.Errorf("CC_PAGE_SIZE_MAX: %w", err)
	}
	if cfg.PageSizeMax < cfg.PageSizeDefault || cfg.PageSizeMax > 1000 {
		return nil, fmt.Errorf("CC_PAGE_SIZE_MAX: значение %d вне допустимого диапазона %d-1000", cfg.PageSizeMax, cfg.PageSizeDefault)
	}

	// CC_ROLES_CACHE_SIZE — размер кэша ролей (16)
	cfg.RolesCacheSize, err = getEnvInt("CC_ROLES_CACHE_SIZE", 16)
	if err != nil {
		return nil, fmt.Errorf("CC_ROLES_CACHE_SIZE: %w", err)
	}
	if cfg.RolesCacheSize < 1 {
		return nil, fmt.Errorf("CC_ROLES_CACHE_SIZE: значение %d должно быть положительным", cfg.RolesCacheSize)
	}

	// CC_ROLES_CACHE_TTL — время жизни кэша ролей (5m)
	cfg.RolesCacheTTL, err = getEnvDuration("CC_ROLES_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CC_ROLES_CACHE_TTL: %w", err)
	}

	// --- Мониторинг ---

	// CC_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("CC_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CC_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// CC_DEPHEALTH_GROUP — группа сервиса (по умолчанию clinic)
	cfg.DephealthGroup = getEnvDefault("CC_DEPHEALTH_GROUP", "clinic")

	// --- Graceful shutdown ---

	// CC_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("CC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает логическое значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
