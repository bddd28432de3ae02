// Пакет console — состояние представления списка учётных записей.
// view.go — AccountsView: запрос, страница, выбор, сообщения и операции над ними.
//
// Каждая загрузка получает возрастающий номер поколения; результат применяется
// только если его поколение последнее. Результаты вытесненных загрузок отбрасываются.
package console

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bigkaa/clinic-console/internal/accounts"
	"github.com/bigkaa/clinic-console/internal/clinicapi"
	"github.com/bigkaa/clinic-console/internal/domain/model"
	"github.com/bigkaa/clinic-console/internal/i18n"
	"github.com/bigkaa/clinic-console/internal/service"
)

// DefaultMessageTTL — время показа сообщения об успехе по умолчанию.
const DefaultMessageTTL = 3 * time.Second

// ErrStale — результат загрузки вытеснен более новой загрузкой и не применён.
var ErrStale = errors.New("результат загрузки устарел")

// Service — операции над учётными записями, нужные представлению.
// Реализуется *service.AccountService.
type Service interface {
	ListAccounts(ctx context.Context, q model.Query, exclude model.Exclusion) (model.Page, error)
	UpdateStatus(ctx context.Context, actor, id string, isActive bool) error
	UpdateStatusBulk(ctx context.Context, actor string, ids []string, isActive bool) error
	UpdateAccount(ctx context.Context, actor, id string, p model.Profile) error
}

// MessageKind — тип сообщения.
type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

// Message — сообщение для пользователя.
type Message struct {
	Kind MessageKind
	Text string
}

// State — снимок состояния представления.
type State struct {
	Query       model.Query
	Items       []model.Account
	Total       int
	HasNextPage bool
	Loading     bool
	// Selected — выбранные идентификаторы, отсортированы
	Selected []string
	// Message — текущее сообщение, nil если нет
	Message *Message
	// Generation — номер последней запущенной загрузки
	Generation uint64
}

// Config — параметры AccountsView.
type Config struct {
	// Query — начальный запрос
	Query model.Query
	// Exclude — предикат исключения представления
	Exclude model.Exclusion
	// DebounceDelay — задержка поиска по ключевому слову
	DebounceDelay time.Duration
	// MessageTTL — время показа сообщения об успехе (0 — по умолчанию, < 0 — не скрывать)
	MessageTTL time.Duration
	// Lang — язык сообщений
	Lang string
	// Actor — имя оператора для журнала аудита
	Actor string
	// Bundle — каталоги сообщений (nil — выводятся ключи)
	Bundle *i18n.Bundle
	// OnChange вызывается после каждого изменения состояния (вне блокировки)
	OnChange func(State)
}

// AccountsView — состояние консоли учётных записей.
// Безопасен для конкурентного использования.
type AccountsView struct {
	svc       Service
	cfg       Config
	debouncer *Debouncer
	logger    *slog.Logger

	mu       sync.Mutex
	query    model.Query
	items    []model.Account
	total    int
	hasNext  bool
	loading  bool
	selected map[string]struct{}
	message  *Message
	gen      uint64
	msgSeq   uint64
	msgTimer *time.Timer
	closed   bool
}

// NewAccountsView создаёт представление. Загрузка не выполняется до первого FetchAccounts.
func NewAccountsView(svc Service, cfg Config, logger *slog.Logger) *AccountsView {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	if cfg.MessageTTL == 0 {
		cfg.MessageTTL = DefaultMessageTTL
	}
	if cfg.Exclude == nil {
		cfg.Exclude = model.ExcludeNone()
	}
	if cfg.Lang == "" {
		cfg.Lang = i18n.DefaultLang
	}

	q := cfg.Query
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Sort == "" {
		q.Sort = model.SortAsc
	}

	return &AccountsView{
		svc:       svc,
		cfg:       cfg,
		debouncer: NewDebouncer(cfg.DebounceDelay),
		logger:    logger.With(slog.String("component", "accounts_view")),
		query:     q,
		selected:  make(map[string]struct{}),
	}
}

// State возвращает глубокую копию текущего состояния.
func (v *AccountsView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *AccountsView) snapshotLocked() State {
	items := make([]model.Account, len(v.items))
	for i, a := range v.items {
		items[i] = cloneAccount(a)
	}

	selected := make([]string, 0, len(v.selected))
	for id := range v.selected {
		selected = append(selected, id)
	}
	slices.Sort(selected)

	var msg *Message
	if v.message != nil {
		m := *v.message
		msg = &m
	}

	return State{
		Query:       v.query,
		Items:       items,
		Total:       v.total,
		HasNextPage: v.hasNext,
		Loading:     v.loading,
		Selected:    selected,
		Message:     msg,
		Generation:  v.gen,
	}
}

func cloneAccount(a model.Account) model.Account {
	a.Roles = slices.Clone(a.Roles)
	if a.Raw != nil {
		raw := make(map[string]any, len(a.Raw))
		for k, val := range a.Raw {
			raw[k] = val
		}
		a.Raw = raw
	}
	return a
}

// notify вызывает OnChange со снимком состояния. Вызывается без блокировки.
func (v *AccountsView) notify() {
	if v.cfg.OnChange == nil {
		return
	}
	v.cfg.OnChange(v.State())
}

// FetchAccounts загружает страницу по текущему запросу.
// Ошибка загрузки превращается в сообщение об ошибке и пустую таблицу и возвращается.
// Если за время загрузки была запущена более новая, результат отбрасывается и возвращается ErrStale.
func (v *AccountsView) FetchAccounts(ctx context.Context) error {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	q := v.query
	v.loading = true
	v.mu.Unlock()
	v.notify()

	page, err := v.svc.ListAccounts(ctx, q, v.cfg.Exclude)

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		v.logger.Debug("Результат загрузки отброшен",
			slog.Uint64("generation", gen),
		)
		return ErrStale
	}
	v.loading = false
	if err != nil {
		v.items = nil
		v.total = 0
		v.hasNext = false
		v.setMessageLocked(MessageError, v.tf(i18n.MsgLoadFailed, v.errorText(err)))
		v.mu.Unlock()
		v.logger.Warn("Ошибка загрузки учётных записей",
			slog.String("error", err.Error()),
		)
		v.notify()
		return err
	}
	// Направление могло смениться через ToggleSort во время загрузки.
	if v.query.Sort != q.Sort {
		accounts.Sort(page.Items, v.query.Sort)
	}
	v.items = page.Items
	v.total = page.Total
	v.hasNext = page.HasNextPage
	v.mu.Unlock()
	v.notify()
	return nil
}

// SetQuery заменяет запрос целиком и перезагружает страницу.
func (v *AccountsView) SetQuery(ctx context.Context, q model.Query) error {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Sort == "" {
		q.Sort = model.SortAsc
	}
	return v.update(ctx, func(cur *model.Query) { *cur = q })
}

// SetPage переходит на страницу page.
func (v *AccountsView) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	return v.update(ctx, func(q *model.Query) { q.Page = page })
}

// SetRole меняет фильтр по роли и возвращается на первую страницу.
func (v *AccountsView) SetRole(ctx context.Context, role string) error {
	return v.update(ctx, func(q *model.Query) {
		q.Role = role
		q.Page = 1
	})
}

// SetPageSize меняет размер страницы и возвращается на первую страницу.
func (v *AccountsView) SetPageSize(ctx context.Context, size int) error {
	return v.update(ctx, func(q *model.Query) {
		q.PageSize = size
		q.Page = 1
	})
}

// update применяет изменение запроса, отменяет отложенный поиск и загружает страницу.
func (v *AccountsView) update(ctx context.Context, fn func(*model.Query)) error {
	v.debouncer.Cancel()
	v.mu.Lock()
	fn(&v.query)
	v.clearErrorLocked()
	v.mu.Unlock()
	return v.FetchAccounts(ctx)
}

// SetKeyword меняет ключевое слово. Загрузка откладывается на DebounceDelay:
// серия вызовов внутри окна даёт одну загрузку с последним значением.
func (v *AccountsView) SetKeyword(ctx context.Context, keyword string) {
	v.mu.Lock()
	v.query.Keyword = keyword
	v.query.Page = 1
	v.clearErrorLocked()
	v.mu.Unlock()
	v.notify()

	v.debouncer.Debounce(func() {
		v.mu.Lock()
		closed := v.closed
		v.mu.Unlock()
		if closed {
			return
		}
		_ = v.FetchAccounts(ctx)
	})
}

// ToggleSort меняет направление сортировки и пересортировывает текущую страницу без запроса.
func (v *AccountsView) ToggleSort() {
	v.mu.Lock()
	v.query.Sort = v.query.Sort.Toggle()
	accounts.Sort(v.items, v.query.Sort)
	v.clearErrorLocked()
	v.mu.Unlock()
	v.notify()
}

// ToggleSelect добавляет идентификатор в выбор или убирает из него.
func (v *AccountsView) ToggleSelect(id string) {
	v.mu.Lock()
	if _, ok := v.selected[id]; ok {
		delete(v.selected, id)
	} else {
		v.selected[id] = struct{}{}
	}
	v.mu.Unlock()
	v.notify()
}

// SelectAllOnPage добавляет в выбор все записи items.
func (v *AccountsView) SelectAllOnPage(items []model.Account) {
	v.mu.Lock()
	for _, a := range items {
		v.selected[a.ID] = struct{}{}
	}
	v.mu.Unlock()
	v.notify()
}

// ClearSelection очищает выбор.
func (v *AccountsView) ClearSelection() {
	v.mu.Lock()
	clear(v.selected)
	v.mu.Unlock()
	v.notify()
}

// Selected возвращает выбранные идентификаторы в отсортированном порядке.
func (v *AccountsView) Selected() []string {
	return v.State().Selected
}

// IsSelected проверяет, выбран ли идентификатор.
func (v *AccountsView) IsSelected(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.selected[id]
	return ok
}

// UpdateStatus меняет статус одной записи. Результат отражается в сообщении;
// при успехе страница перезагружается.
func (v *AccountsView) UpdateStatus(ctx context.Context, id string, isActive bool) {
	v.beginAction()
	if err := v.svc.UpdateStatus(ctx, v.cfg.Actor, id, isActive); err != nil {
		v.fail(err)
		return
	}
	v.succeed(v.t(i18n.MsgStatusUpdated))
	_ = v.FetchAccounts(ctx)
}

// UpdateStatusBulk меняет статус набора записей. Пустой набор даёт сообщение
// без обращения к сервису. При успехе выбор очищается и страница перезагружается.
func (v *AccountsView) UpdateStatusBulk(ctx context.Context, ids []string, isActive bool) {
	v.beginAction()
	ids = service.UniqueIDs(ids)
	if len(ids) == 0 {
		v.fail(service.ErrEmptySelection)
		return
	}
	if err := v.svc.UpdateStatusBulk(ctx, v.cfg.Actor, ids, isActive); err != nil {
		v.fail(err)
		return
	}

	v.mu.Lock()
	clear(v.selected)
	v.mu.Unlock()
	v.succeed(v.tf(i18n.MsgBulkStatusUpdated, len(ids)))
	_ = v.FetchAccounts(ctx)
}

// UpdateAccount заменяет профиль записи. Ошибка возвращается вызывающему,
// чтобы форма редактирования могла остаться открытой.
func (v *AccountsView) UpdateAccount(ctx context.Context, id string, p model.Profile) error {
	v.beginAction()
	if err := v.svc.UpdateAccount(ctx, v.cfg.Actor, id, p); err != nil {
		v.fail(err)
		return err
	}
	v.succeed(v.t(i18n.MsgProfileUpdated))
	_ = v.FetchAccounts(ctx)
	return nil
}

// Close отменяет отложенный поиск и таймер сообщения.
func (v *AccountsView) Close() {
	v.debouncer.Cancel()
	v.mu.Lock()
	v.closed = true
	if v.msgTimer != nil {
		v.msgTimer.Stop()
		v.msgTimer = nil
	}
	v.mu.Unlock()
}

func (v *AccountsView) beginAction() {
	v.mu.Lock()
	v.clearErrorLocked()
	v.mu.Unlock()
}

func (v *AccountsView) fail(err error) {
	text := v.errorText(err)
	if _, ok := service.MessageKey(err); !ok {
		text = v.tf(i18n.MsgUpdateFailed, text)
	}
	v.mu.Lock()
	v.setMessageLocked(MessageError, text)
	v.mu.Unlock()
	v.notify()
}

func (v *AccountsView) succeed(text string) {
	v.mu.Lock()
	v.setMessageLocked(MessageSuccess, text)
	v.mu.Unlock()
	v.notify()
}

// setMessageLocked устанавливает сообщение. Сообщение об успехе скрывается через MessageTTL,
// если за это время не появилось другое сообщение.
func (v *AccountsView) setMessageLocked(kind MessageKind, text string) {
	v.msgSeq++
	v.message = &Message{Kind: kind, Text: text}
	if v.msgTimer != nil {
		v.msgTimer.Stop()
		v.msgTimer = nil
	}
	if kind != MessageSuccess || v.cfg.MessageTTL < 0 || v.closed {
		return
	}

	seq := v.msgSeq
	v.msgTimer = time.AfterFunc(v.cfg.MessageTTL, func() {
		v.mu.Lock()
		if v.msgSeq != seq {
			v.mu.Unlock()
			return
		}
		v.message = nil
		v.msgTimer = nil
		v.mu.Unlock()
		v.notify()
	})
}

// clearErrorLocked убирает сообщение об ошибке: ошибки живут до следующего действия.
func (v *AccountsView) clearErrorLocked() {
	if v.message != nil && v.message.Kind == MessageError {
		v.msgSeq++
		v.message = nil
	}
}

// errorText — локализованный текст известной ошибки или сообщение clinic API.
func (v *AccountsView) errorText(err error) string {
	if key, ok := service.MessageKey(err); ok {
		return v.t(key)
	}
	return clinicapi.MessageOf(err)
}

func (v *AccountsView) t(key string) string {
	return v.cfg.Bundle.Translate(v.cfg.Lang, key)
}

func (v *AccountsView) tf(key string, args ...any) string {
	return v.cfg.Bundle.Translatef(v.cfg.Lang, key, args...)
}

// Проверка соответствия интерфейсу.
var _ Service = (*service.AccountService)(nil)
