// Пакет i18n — локализация пользовательских сообщений clinic-console.
// Поддерживаемые языки: English (en), Русский (ru), Tiếng Việt (vi).
// Язык определяется middleware: query "lang" → Accept-Language → default "en".
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/text/language"
)

// DefaultLang — язык по умолчанию и язык fallback-каталога.
const DefaultLang = "en"

var (
	// SupportedLanguages — список поддерживаемых тегов языков.
	SupportedLanguages = []language.Tag{
		language.English,
		language.Russian,
		language.Vietnamese,
	}

	// matcher — языковой matcher для Accept-Language.
	matcher = language.NewMatcher(SupportedLanguages)
)

// Ключи сообщений.
const (
	MsgSelectAtLeastOne  = "accounts.select_at_least_one"
	MsgStatusUpdated     = "accounts.status_updated"
	MsgBulkStatusUpdated = "accounts.bulk_status_updated"
	MsgProfileUpdated    = "accounts.profile_updated"
	MsgLoadFailed        = "accounts.load_failed"
	MsgUpdateFailed      = "accounts.update_failed"
	MsgEmailRequired     = "validation.email_required"
	MsgEmailInvalid      = "validation.email_invalid"
	MsgFullNameRequired  = "validation.full_name_required"
	MsgRolesImmutable    = "validation.roles_immutable"
	MsgInvalidView       = "validation.invalid_view"
	MsgInvalidBody       = "validation.invalid_body"
	MsgInvalidParam      = "validation.invalid_param"
	MsgUpstreamUnavail   = "errors.upstream_unavailable"
	MsgNotFound          = "errors.not_found"
	MsgUnauthorized      = "errors.unauthorized"
	MsgForbidden         = "errors.forbidden"
	MsgInternal          = "errors.internal"
	MsgLoggedOut         = "session.logged_out"
	MsgTableID           = "table.id"
	MsgTableName         = "table.name"
	MsgTableEmail        = "table.email"
	MsgTablePhone        = "table.phone"
	MsgTableRoles        = "table.roles"
	MsgTableStatus       = "table.status"
	MsgStatusActive      = "status.active"
	MsgStatusInactive    = "status.inactive"
	MsgTableSummary      = "table.summary"
	MsgTableSummaryNext  = "table.summary_next"
)

type contextKey string

const contextKeyLang contextKey = "i18n_lang"

// Bundle — хранилище переводов для всех языков.
// Загружается один раз при старте приложения.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]map[string]string // lang → key → translation
	logger   *slog.Logger
}

// NewBundle создаёт пустой Bundle.
func NewBundle(logger *slog.Logger) *Bundle {
	return &Bundle{
		catalogs: make(map[string]map[string]string),
		logger:   logger,
	}
}

// Load создаёт Bundle с каталогами из встроенной файловой системы.
func Load(logger *slog.Logger) (*Bundle, error) {
	b := NewBundle(logger)
	if err := LoadFromEmbedFS(b, logger); err != nil {
		return nil, err
	}
	return b, nil
}

// LoadMessages загружает JSON-каталог переводов для указанного языка.
// JSON формат: {"key": "translation", ...} (плоский).
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: ошибка парсинга каталога %s: %w", lang, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalogs[lang] = messages

	if b.logger != nil {
		b.logger.Debug("i18n каталог загружен",
			slog.String("lang", lang),
			slog.Int("keys", len(messages)),
		)
	}
	return nil
}

// Translate возвращает перевод по ключу для указанного языка.
// Fallback — английский, затем сам ключ.
func (b *Bundle) Translate(lang, key string) string {
	if b == nil {
		return key
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if catalog, ok := b.catalogs[lang]; ok {
		if msg, ok := catalog[key]; ok {
			return msg
		}
	}
	if lang != DefaultLang {
		if catalog, ok := b.catalogs[DefaultLang]; ok {
			if msg, ok := catalog[key]; ok {
				return msg
			}
		}
	}
	return key
}

// Translatef возвращает перевод с подстановкой аргументов.
func (b *Bundle) Translatef(lang, key string, args ...any) string {
	template := b.Translate(lang, key)
	if len(args) == 0 {
		return template
	}
	return formatFunc(template, args...)
}

// T возвращает перевод на языке из контекста.
func (b *Bundle) T(ctx context.Context, key string) string {
	return b.Translate(LangFromContext(ctx), key)
}

// Tf возвращает перевод на языке из контекста с аргументами.
func (b *Bundle) Tf(ctx context.Context, key string, args ...any) string {
	return b.Translatef(LangFromContext(ctx), key, args...)
}

// Loaded возвращает загруженные языки.
func (b *Bundle) Loaded() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.catalogs))
	for lang := range b.catalogs {
		out = append(out, lang)
	}
	return out
}

// Формат-строки загружаются из JSON во время выполнения, printf-анализатор их не проверяет.
//
//nolint:govet // обход go vet printf-анализатора
var formatFunc = fmt.Sprintf

// WithLang помещает язык в контекст.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKeyLang, lang)
}

// LangFromContext извлекает язык из контекста. Default: "en".
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(contextKeyLang).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

// MatchLanguage определяет лучший поддерживаемый язык для Accept-Language
// (или одиночного тега вроде "vi", "ru-RU").
func MatchLanguage(acceptLanguage string) string {
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	base, _ := tag.Base()

	switch base.String() {
	case "ru":
		return "ru"
	case "vi":
		return "vi"
	default:
		return DefaultLang
	}
}
