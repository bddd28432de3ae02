// middleware.go — HTTP middleware для определения языка клиента.
// Приоритет: query-параметр "lang" → заголовок Accept-Language → default "en".
package i18n

import (
	"net/http"
	"slices"
)

// LangQueryParam — имя query-параметра для явного выбора языка.
const LangQueryParam = "lang"

// Middleware определяет язык и помещает его в контекст запроса.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := detectLanguage(r)
			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), lang)))
		})
	}
}

func detectLanguage(r *http.Request) string {
	if lang := r.URL.Query().Get(LangQueryParam); slices.Contains(Languages, lang) {
		return lang
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return MatchLanguage(accept)
	}
	return DefaultLang
}
