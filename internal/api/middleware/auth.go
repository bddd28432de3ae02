// auth.go — JWT middleware для аутентификации и авторизации clinic-console.
// Валидирует подпись через JWKS identity provider, извлекает роли клиники
// из realm_access.roles и вычисляет эффективную роль вызывающего.
package middleware

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/clinic-console/internal/api/errors"
	"github.com/bigkaa/clinic-console/internal/domain/rbac"
	"github.com/bigkaa/clinic-console/internal/i18n"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyClaims — извлечённые claims в контексте запроса.
	ContextKeyClaims contextKey = "jwt_claims"
)

// DefaultJWTLeeway — допустимое отклонение часов при проверке exp/nbf.
const DefaultJWTLeeway = 30 * time.Second

// AuthClaims — извлечённые и обработанные claims JWT.
type AuthClaims struct {
	// Subject — sub из JWT.
	Subject string
	// PreferredUsername — preferred_username из JWT.
	PreferredUsername string
	// Email — email из JWT.
	Email string
	// Roles — роли из realm_access.roles.
	Roles []string
	// EffectiveRole — максимальная роль клиники (Admin > Staff > Doctor), "" если нет.
	EffectiveRole string
}

// HasAnyRole проверяет, совпадает ли эффективная роль с одной из указанных.
func (c *AuthClaims) HasAnyRole(roles ...string) bool {
	return c.EffectiveRole != "" && slices.Contains(roles, c.EffectiveRole)
}

// Actor — имя вызывающего для журнала аудита.
func (c *AuthClaims) Actor() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	return c.Subject
}

// tokenClaims — raw claims JWT для парсинга.
type tokenClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string       `json:"preferred_username"`
	Email             string       `json:"email"`
	RealmAccess       *realmAccess `json:"realm_access,omitempty"`
}

// realmAccess — вложенная структура realm_access.
type realmAccess struct {
	Roles []string `json:"roles"`
}

// JWTAuth — middleware для JWT-аутентификации через JWKS.
type JWTAuth struct {
	jwks   keyfunc.Keyfunc
	bundle *i18n.Bundle
	logger *slog.Logger
	issuer string
	leeway time.Duration
}

// NewJWTAuth создаёт JWT middleware с JWKS identity provider.
// JWKS обновляется в фоне с интервалом refreshInterval.
func NewJWTAuth(
	jwksURL string,
	issuer string,
	httpClient *http.Client,
	refreshInterval time.Duration,
	bundle *i18n.Bundle,
	logger *slog.Logger,
) (*JWTAuth, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// NoErrorReturnFirstHTTPReq — стартуем даже если identity provider ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &JWTAuth{
		jwks:   k,
		bundle: bundle,
		logger: logger.With(slog.String("component", "jwt_auth")),
		issuer: issuer,
		leeway: DefaultJWTLeeway,
	}, nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware с предоставленной keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, issuer string, bundle *i18n.Bundle, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:   kf,
		bundle: bundle,
		logger: logger.With(slog.String("component", "jwt_auth")),
		issuer: issuer,
	}
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// Извлекает Bearer token, валидирует подпись (RS256), вычисляет эффективную роль
// и помещает AuthClaims в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			unauthorized := j.bundle.T(r.Context(), i18n.MsgUnauthorized)

			tokenString, ok := bearerToken(r)
			if !ok {
				apierrors.Unauthorized(w, unauthorized)
				return
			}

			raw := &tokenClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.leeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, raw, j.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil || !token.Valid {
				j.logger.Debug("JWT валидация не пройдена",
					slog.Any("error", err),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, unauthorized)
				return
			}

			subject, err := raw.GetSubject()
			if err != nil || subject == "" {
				apierrors.Unauthorized(w, unauthorized)
				return
			}

			claims := &AuthClaims{
				Subject:           subject,
				PreferredUsername: raw.PreferredUsername,
				Email:             raw.Email,
			}
			if raw.RealmAccess != nil {
				claims.Roles = raw.RealmAccess.Roles
			}
			claims.EffectiveRole = rbac.HighestRole(claims.Roles)

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken извлекает токен из заголовка Authorization: Bearer <token>.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// --- RBAC middleware ---

// RequireRole возвращает middleware, требующий одну из указанных ролей клиники.
// Должен использоваться ПОСЛЕ JWTAuth.Middleware().
func RequireRole(bundle *i18n.Bundle, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				apierrors.Unauthorized(w, bundle.T(r.Context(), i18n.MsgUnauthorized))
				return
			}
			if !claims.HasAnyRole(roles...) {
				apierrors.Forbidden(w, bundle.T(r.Context(), i18n.MsgForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --- Context helpers ---

// ClaimsFromContext извлекает AuthClaims из контекста запроса.
// Возвращает nil, если claims не найдены.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}

// WithClaims помещает AuthClaims в контекст.
func WithClaims(ctx context.Context, claims *AuthClaims) context.Context {
	return context.WithValue(ctx, ContextKeyClaims, claims)
}

// EffectiveRoleFromContext извлекает эффективную роль из контекста запроса.
func EffectiveRoleFromContext(ctx context.Context) string {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return ""
	}
	return claims.EffectiveRole
}

// --- ReadinessChecker для identity provider ---

// JWKSReadinessChecker — проверка доступности identity provider через JWKS.
type JWKSReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewJWKSReadinessChecker создаёт checker доступности JWKS endpoint.
func NewJWKSReadinessChecker(jwksURL string, timeout time.Duration, tlsSkipVerify bool) *JWKSReadinessChecker {
	client := &http.Client{Timeout: timeout}
	if tlsSkipVerify {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // явно включается конфигурацией
		}
	}
	return &JWKSReadinessChecker{jwksURL: jwksURL, client: client}
}

const statusFail = "fail"

// CheckReady проверяет доступность JWKS endpoint.
func (k *JWKSReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return statusFail, fmt.Sprintf("JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return "degraded", fmt.Sprintf("JWKS: невалидный JSON: %v", err)
	}
	if len(jwksResp.Keys) == 0 {
		return "degraded", "JWKS: нет ключей"
	}

	return "ok", fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
