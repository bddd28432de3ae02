package model

import "time"

// Действия, фиксируемые в журнале аудита.
const (
	AuditActionStatus     = "status"
	AuditActionBulkStatus = "bulk_status"
	AuditActionProfile    = "profile"
)

// AuditEntry — запись журнала изменений учётных записей.
// Хранится в таблице account_audit.
type AuditEntry struct {
	// ID — UUID записи
	ID string
	// Actor — кто выполнил изменение (preferred_username или имя оператора CLI)
	Actor string
	// Action — тип изменения (status, bulk_status, profile)
	Action string
	// AccountIDs — затронутые учётные записи
	AccountIDs []string
	// Payload — параметры изменения (is_active или новый профиль)
	Payload map[string]any
	// CreatedAt — время записи
	CreatedAt time.Time
}
