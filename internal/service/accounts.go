// Пакет service — бизнес-логика clinic-console.
// accounts.go — сервис учётных записей: согласованный список, мутации, роли, журнал аудита.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/bigkaa/clinic-console/internal/accounts"
	"github.com/bigkaa/clinic-console/internal/clinicapi"
	"github.com/bigkaa/clinic-console/internal/domain/model"
)

// AccountBackend — операции Remote Account Source, используемые сервисом.
// Реализуется *clinicapi.Client.
type AccountBackend interface {
	AccountSource
	UpdateStatus(ctx context.Context, id string, isActive bool) error
	UpdateStatusBulk(ctx context.Context, ids []string, isActive bool) error
	UpdateAccount(ctx context.Context, id string, p model.Profile) error
	ListRoles(ctx context.Context) ([]string, error)
}

// AuditStore — хранилище журнала аудита.
// Реализуется repository.AuditRepository.
type AuditStore interface {
	Insert(ctx context.Context, e *model.AuditEntry) error
	List(ctx context.Context, limit, offset int) ([]*model.AuditEntry, error)
	Count(ctx context.Context) (int, error)
}

// PageLimits — ограничения размера страницы.
type PageLimits struct {
	Default int
	Max     int
}

// AccountService — сервис учётных записей.
type AccountService struct {
	backend  AccountBackend
	fetcher  *Fetcher
	audit    AuditStore
	roles    *RolesCache
	rolesKey string
	limits   PageLimits
	logger   *slog.Logger
}

// NewAccountService создаёт сервис.
// audit и roles могут быть nil: журнал не ведётся, роли не кэшируются.
// rolesKey — ключ кэша ролей (обычно базовый URL clinic API).
func NewAccountService(
	backend AccountBackend,
	audit AuditStore,
	roles *RolesCache,
	rolesKey string,
	limits PageLimits,
	logger *slog.Logger,
) *AccountService {
	if limits.Default < 1 {
		limits.Default = 10
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &AccountService{
		backend:  backend,
		fetcher:  NewFetcher(backend, logger),
		audit:    audit,
		roles:    roles,
		rolesKey: rolesKey,
		limits:   limits,
		logger:   logger.With(slog.String("component", "account_service")),
	}
}

// Limits возвращает ограничения размера страницы.
func (s *AccountService) Limits() PageLimits {
	return s.limits
}

// ListAccounts возвращает согласованную страницу, упорядоченную по имени.
func (s *AccountService) ListAccounts(ctx context.Context, q model.Query, exclude model.Exclusion) (model.Page, error) {
	q = q.Normalize(s.limits.Default, s.limits.Max)

	page, err := s.fetcher.Fetch(ctx, q, exclude)
	if err != nil {
		return model.Page{}, err
	}
	accounts.Sort(page.Items, q.Sort)
	return page, nil
}

// UpdateStatus меняет статус одной учётной записи.
func (s *AccountService) UpdateStatus(ctx context.Context, actor, id string, isActive bool) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: пустой идентификатор учётной записи", ErrValidation)
	}

	if err := s.backend.UpdateStatus(ctx, id, isActive); err != nil {
		return err
	}

	s.logger.Info("Статус учётной записи изменён",
		slog.String("actor", actor),
		slog.String("account_id", id),
		slog.Bool("is_active", isActive),
	)
	s.record(ctx, actor, model.AuditActionStatus, []string{id}, map[string]any{"is_active": isActive})
	return nil
}

// UpdateStatusBulk меняет статус набора учётных записей одним запросом.
// Пустой набор (после удаления дубликатов и пустых id) — ErrEmptySelection без обращения к сети.
func (s *AccountService) UpdateStatusBulk(ctx context.Context, actor string, ids []string, isActive bool) error {
	ids = UniqueIDs(ids)
	if len(ids) == 0 {
		return ErrEmptySelection
	}

	if err := s.backend.UpdateStatusBulk(ctx, ids, isActive); err != nil {
		return err
	}

	s.logger.Info("Статус учётных записей изменён",
		slog.String("actor", actor),
		slog.Int("count", len(ids)),
		slog.Bool("is_active", isActive),
	)
	s.record(ctx, actor, model.AuditActionBulkStatus, ids, map[string]any{"is_active": isActive})
	return nil
}

// UpdateAccount заменяет профиль учётной записи.
func (s *AccountService) UpdateAccount(ctx context.Context, actor, id string, p model.Profile) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: пустой идентификатор учётной записи", ErrValidation)
	}
	p, err := ValidateProfile(p)
	if err != nil {
		return err
	}

	if err := s.backend.UpdateAccount(ctx, id, p); err != nil {
		return err
	}

	s.logger.Info("Профиль учётной записи обновлён",
		slog.String("actor", actor),
		slog.String("account_id", id),
	)
	s.record(ctx, actor, model.AuditActionProfile, []string{id}, map[string]any{
		"email":     p.Email,
		"full_name": p.FullName,
		"phone":     p.Phone,
	})
	return nil
}

// ListRoles возвращает имена ролей, при наличии кэша — через кэш.
func (s *AccountService) ListRoles(ctx context.Context) ([]string, error) {
	if s.roles != nil {
		if roles, ok := s.roles.Get(s.rolesKey); ok {
			return roles, nil
		}
	}

	roles, err := s.backend.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []string{}
	}

	if s.roles != nil {
		s.roles.Set(s.rolesKey, roles)
	}
	return roles, nil
}

// ListAudit возвращает записи журнала аудита (новые первыми) и их общее количество.
func (s *AccountService) ListAudit(ctx context.Context, limit, offset int) ([]*model.AuditEntry, int, error) {
	if s.audit == nil {
		return []*model.AuditEntry{}, 0, nil
	}

	entries, err := s.audit.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение журнала аудита: %w", err)
	}
	total, err := s.audit.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт записей журнала аудита: %w", err)
	}
	if entries == nil {
		entries = []*model.AuditEntry{}
	}
	return entries, total, nil
}

// record пишет запись аудита. Ошибка записи логируется и не возвращается.
func (s *AccountService) record(ctx context.Context, actor, action string, ids []string, payload map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &model.AuditEntry{
		ID:         uuid.New().String(),
		Actor:      actor,
		Action:     action,
		AccountIDs: ids,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Warn("Ошибка записи журнала аудита",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

// UniqueIDs убирает пустые и повторяющиеся идентификаторы, сохраняя порядок.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ValidateProfile нормализует и проверяет профиль: email и имя обязательны.
func ValidateProfile(p model.Profile) (model.Profile, error) {
	p.Email = strings.TrimSpace(p.Email)
	p.FullName = strings.TrimSpace(p.FullName)
	p.Phone = strings.TrimSpace(p.Phone)

	switch {
	case p.Email == "":
		return p, ErrEmailRequired
	case !validEmail(p.Email):
		return p, ErrEmailInvalid
	case p.FullName == "":
		return p, ErrFullNameRequired
	}
	return p, nil
}

// validEmail проверяет формат адреса типом OpenAPI (format: email).
func validEmail(email string) bool {
	quoted, err := json.Marshal(email)
	if err != nil {
		return false
	}
	var typed openapi_types.Email
	return json.Unmarshal(quoted, &typed) == nil
}

// Проверка соответствия интерфейсу.
var _ AccountBackend = (*clinicapi.Client)(nil)
