package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/clinic-console/internal/domain/model"
)

// AuditRepository — журнал изменений учётных записей (таблица account_audit).
type AuditRepository interface {
	// Insert добавляет запись. ID и CreatedAt задаются вызывающим.
	Insert(ctx context.Context, e *model.AuditEntry) error
	// List возвращает записи, новые первыми (с пагинацией).
	List(ctx context.Context, limit, offset int) ([]*model.AuditEntry, error)
	// Count возвращает количество записей.
	Count(ctx context.Context) (int, error)
}

// auditRepo — реализация AuditRepository.
type auditRepo struct {
	db DBTX
}

// NewAuditRepository создаёт репозиторий журнала аудита.
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepo{db: db}
}

const auditColumns = `id, actor, action, account_ids, payload, created_at`

func (r *auditRepo) Insert(ctx context.Context, e *model.AuditEntry) error {
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	ids := e.AccountIDs
	if ids == nil {
		ids = []string{}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO account_audit (id, actor, action, account_ids, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Actor, e.Action, ids, payload, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка записи журнала аудита: %w", err)
	}
	return nil
}

func (r *auditRepo) List(ctx context.Context, limit, offset int) ([]*model.AuditEntry, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM account_audit ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		auditColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала аудита: %w", err)
	}
	defer rows.Close()

	var result []*model.AuditEntry
	for rows.Next() {
		e := &model.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.AccountIDs, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи аудита: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *auditRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM account_audit`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей аудита: %w", err)
	}
	return count, nil
}
