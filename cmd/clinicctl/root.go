// root.go — корневая команда clinicctl: глобальные флаги, логирование,
// сборка клиента clinic API и представления учётных записей.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/user"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigkaa/clinic-console/internal/clinicapi"
	"github.com/bigkaa/clinic-console/internal/console"
	"github.com/bigkaa/clinic-console/internal/domain/model"
	"github.com/bigkaa/clinic-console/internal/domain/views"
	"github.com/bigkaa/clinic-console/internal/i18n"
	"github.com/bigkaa/clinic-console/internal/service"
)

// Форматы вывода.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// Размеры страницы CLI совпадают с умолчаниями BFF.
const (
	cliPageSizeDefault = 10
	cliPageSizeMax     = 100
)

// options — глобальные флаги и общие зависимости команд.
type options struct {
	apiURL      string
	token       string
	lang        string
	output      string
	timeout     time.Duration
	sessionPath string
	verbose     bool

	logger *slog.Logger
	bundle *i18n.Bundle
}

// newRootCmd собирает дерево команд. out и errOut — потоки вывода (для тестов).
func newRootCmd(out, errOut io.Writer) *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "clinicctl",
		Short: "Консоль учётных записей клиники",
		Long: `clinicctl — консоль оператора учётных записей клиники.

Список учётных записей собирается так же, как в BFF: записи, скрытые представлением,
отбрасываются на клиенте, а недостающие дозапрашиваются со следующих страниц.

Токен берётся из --token / CC_TOKEN или из файла сеанса (clinicctl login).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(errOut)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&o.apiURL, "api-url", os.Getenv("CC_CLINIC_API_URL"), "базовый URL clinic API (CC_CLINIC_API_URL)")
	pf.StringVar(&o.token, "token", os.Getenv("CC_TOKEN"), "bearer-токен (CC_TOKEN)")
	pf.StringVar(&o.lang, "lang", "", "язык сообщений: en, ru, vi (по умолчанию из LANG)")
	pf.StringVarP(&o.output, "output", "o", outputTable, "формат вывода: table, json, yaml")
	pf.DurationVar(&o.timeout, "timeout", 30*time.Second, "таймаут операции")
	pf.StringVar(&o.sessionPath, "session-file", envOr("CC_SESSION_FILE", defaultSessionPath()), "файл сеанса (CC_SESSION_FILE)")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "подробное логирование")

	root.AddCommand(
		newAccountsCmd(o),
		newRolesCmd(o),
		newLoginCmd(o),
		newLogoutCmd(o),
	)

	return root
}

// setup настраивает логирование, язык, каталоги сообщений и проверяет флаги.
func (o *options) setup(errOut io.Writer) error {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	switch o.output {
	case outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("неизвестный формат вывода %q (table, json, yaml)", o.output)
	}
	if o.timeout <= 0 {
		return errors.New("--timeout должен быть положительным")
	}

	if o.lang == "" {
		o.lang = langFromEnv()
	} else {
		o.lang = i18n.MatchLanguage(o.lang)
	}

	bundle, err := i18n.Load(o.logger)
	if err != nil {
		return fmt.Errorf("загрузка переводов: %w", err)
	}
	o.bundle = bundle
	return nil
}

// connect загружает сеанс и создаёт клиент clinic API.
func (o *options) connect() (*clinicapi.Client, error) {
	stored, err := loadSession(o.sessionPath)
	if err != nil {
		return nil, err
	}

	apiURL := o.apiURL
	if apiURL == "" {
		apiURL = stored.APIURL
	}
	if apiURL == "" {
		return nil, errors.New("не задан URL clinic API (--api-url или CC_CLINIC_API_URL)")
	}

	token := o.token
	if token == "" {
		token = stored.Token
	}
	return clinicapi.New(apiURL, clinicapi.NewSession(token), &http.Client{Timeout: o.timeout}, o.logger), nil
}

// newService создаёт сервис учётных записей без журнала аудита и кэша ролей.
func (o *options) newService() (*service.AccountService, error) {
	client, err := o.connect()
	if err != nil {
		return nil, err
	}
	return service.NewAccountService(client, nil, nil, client.BaseURL(),
		service.PageLimits{Default: cliPageSizeDefault, Max: cliPageSizeMax}, o.logger), nil
}

// newView создаёт представление учётных записей и журнал его сообщений.
func (o *options) newView(view views.View, q model.Query) (*console.AccountsView, *messageTrace, error) {
	svc, err := o.newService()
	if err != nil {
		return nil, nil, err
	}
	trace := &messageTrace{}
	v := console.NewAccountsView(svc, console.Config{
		Query:      view.Apply(q),
		Exclude:    view.Exclude,
		MessageTTL: -1,
		Lang:       o.lang,
		Actor:      operatorName(),
		Bundle:     o.bundle,
		OnChange:   trace.record,
	}, o.logger)
	return v, trace, nil
}

// context возвращает контекст команды с таймаутом --timeout.
func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func (o *options) t(key string) string {
	return o.bundle.Translate(o.lang, key)
}

func (o *options) tf(key string, args ...any) string {
	return o.bundle.Translatef(o.lang, key, args...)
}

// messageTrace запоминает последние сообщения представления.
type messageTrace struct {
	mu      sync.Mutex
	success string
	failure string
}

func (m *messageTrace) record(s console.State) {
	if s.Message == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch s.Message.Kind {
	case console.MessageSuccess:
		m.success = s.Message.Text
	case console.MessageError:
		m.failure = s.Message.Text
	}
}

// result возвращает сообщение об успехе и ошибку, если успеха не было.
// warning — ошибка, случившаяся после успеха (например, при перезагрузке страницы).
func (m *messageTrace) result() (success, warning string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.success == "" {
		if m.failure == "" {
			return "", "", errors.New("операция не выполнена")
		}
		return "", "", errors.New(m.failure)
	}
	return m.success, m.failure, nil
}

// langFromEnv определяет язык по CC_LANG, затем LANG (ru_RU.UTF-8 → ru).
func langFromEnv() string {
	for _, key := range []string{"CC_LANG", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		v, _, _ = strings.Cut(v, ".")
		return i18n.MatchLanguage(strings.ReplaceAll(v, "_", "-"))
	}
	return i18n.DefaultLang
}

// operatorName — имя оператора для журнала аудита.
func operatorName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "clinicctl:" + u.Username
	}
	return "clinicctl"
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
