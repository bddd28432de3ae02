package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/bigkaa/clinic-console/internal/clinicapi"
	"github.com/bigkaa/clinic-console/internal/domain/model"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeBackend — in-memory Remote Account Source.
// Фильтрует по role/keyword, total считается до клиентского исключения.
type fakeBackend struct {
	mu       sync.Mutex
	accounts []model.Account
	roles    []string

	listCalls  []clinicapi.ListParams
	rolesCalls int
	bulkCalls  [][]string
	failList   error
	failMutate error
}

func (f *fakeBackend) ListAccounts(_ context.Context, p clinicapi.ListParams) (*clinicapi.AccountList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls = append(f.listCalls, p)
	if f.failList != nil {
		return nil, f.failList
	}

	var matched []model.Account
	for _, a := range f.accounts {
		if p.Role != "" && !a.HasRole(p.Role) {
			continue
		}
		if p.Keyword != "" && !strings.Contains(a.Email, p.Keyword) && !strings.Contains(a.FullName, p.Keyword) {
			continue
		}
		matched = append(matched, a)
	}

	start := min((p.Page-1)*p.PageSize, len(matched))
	end := min(start+p.PageSize, len(matched))
	return &clinicapi.AccountList{
		Items: slices.Clone(matched[start:end]),
		Total: len(matched),
	}, nil
}

func (f *fakeBackend) UpdateStatus(_ context.Context, id string, isActive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMutate != nil {
		return f.failMutate
	}
	for i := range f.accounts {
		if f.accounts[i].ID == id {
			f.accounts[i].IsActive = isActive
		}
	}
	return nil
}

func (f *fakeBackend) UpdateStatusBulk(_ context.Context, ids []string, isActive bool) error {
	f.mu.Lock()
	f.bulkCalls = append(f.bulkCalls, ids)
	fail := f.failMutate
	f.mu.Unlock()
	if fail != nil {
		return fail
	}
	for _, id := range ids {
		f.UpdateStatus(context.Background(), id, isActive)
	}
	return nil
}

func (f *fakeBackend) UpdateAccount(_ context.Context, id string, p model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMutate != nil {
		return f.failMutate
	}
	for i := range f.accounts {
		if f.accounts[i].ID == id {
			f.accounts[i].Email = p.Email
			f.accounts[i].FullName = p.FullName
			f.accounts[i].Phone = p.Phone
			f.accounts[i].SortKey = model.SortKey{}
		}
	}
	return nil
}

func (f *fakeBackend) ListRoles(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rolesCalls++
	return slices.Clone(f.roles), nil
}

func (f *fakeBackend) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

// fakeAudit — in-memory AuditStore.
type fakeAudit struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
	fail    error
}

func (a *fakeAudit) Insert(_ context.Context, e *model.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail != nil {
		return a.fail
	}
	a.entries = append(a.entries, e)
	return nil
}

func (a *fakeAudit) List(_ context.Context, limit, offset int) ([]*model.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	start := min(offset, len(a.entries))
	end := min(start+limit, len(a.entries))
	return slices.Clone(a.entries[start:end]), nil
}

func (a *fakeAudit) Count(context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries), nil
}

// account создаёт учётную запись с ролями.
func account(id, name, email string, roles ...string) model.Account {
	return model.Account{ID: id, FullName: name, Email: email, Roles: roles, IsActive: true}
}

// seed создаёт n учётных записей с указанной ролью и префиксом id.
func seed(prefix, role string, n int) []model.Account {
	out := make([]model.Account, 0, n)
	for i := range n {
		id := fmt.Sprintf("%s-%03d", prefix, i)
		out = append(out, account(id, role+" "+id, id+"@example.com", role))
	}
	return out
}
