package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bigkaa/clinic-console/internal/clinicapi"
	"github.com/bigkaa/clinic-console/internal/domain/model"
)

// sourceFunc — AccountSource из функции.
type sourceFunc func(ctx context.Context, p clinicapi.ListParams) (*clinicapi.AccountList, error)

func (f sourceFunc) ListAccounts(ctx context.Context, p clinicapi.ListParams) (*clinicapi.AccountList, error) {
	return f(ctx, p)
}

func TestInflatedSize(t *testing.T) {
	tests := map[int]int{1: 2, 2: 3, 3: 5, 4: 6, 7: 11, 10: 15, 20: 30, 25: 38}
	for in, want := range tests {
		if got := InflatedSize(in); got != want {
			t.Errorf("InflatedSize(%d) = %d, ожидалось %d", in, got, want)
		}
	}
}

func TestEstimateTotal(t *testing.T) {
	tests := []struct {
		name                         string
		remote, survivors, examined int
		want                         int
	}{
		{"нет просмотренных — доля 0.7", 100, 0, 0, 70},
		{"треть выжила", 150, 10, 30, 50},
		{"округление вниз", 7, 1, 3, 2},
		{"все выжили", 57, 15, 15, 57},
		{"пустой источник", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTotal(tt.remote, tt.survivors, tt.examined); got != tt.want {
				t.Errorf("EstimateTotal = %d, ожидалось %d", got, tt.want)
			}
		})
	}
}

// TestFetch_PatientsFirst — 100 Patient перед 50 Staff: после 4 запросов страница пуста.
func TestFetch_PatientsFirst(t *testing.T) {
	backend := &fakeBackend{accounts: append(seed("p", "Patient", 100), seed("s", "Staff", 50)...)}
	f := NewFetcher(backend, testLogger())

	page, err := f.Fetch(context.Background(), model.Query{Page: 1, PageSize: 10}, model.ExcludeRoles("Patient"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if n := backend.requests(); n != 1+MaxBackfills {
		t.Errorf("ожидалось %d запросов, получено %d", 1+MaxBackfills, n)
	}
	if len(page.Items) != 0 {
		t.Errorf("ожидалась пустая страница, получено %d записей", len(page.Items))
	}
	if page.HasNextPage {
		t.Error("HasNextPage должен быть false для неполной страницы")
	}
	for i, call := range backend.listCalls {
		if call.PageSize != 15 || call.Page != i+1 {
			t.Errorf("запрос %d: page=%d pageSize=%d", i, call.Page, call.PageSize)
		}
	}
}

// TestFetch_StaffFirst — 50 Staff перед 100 Patient: достаточно одного запроса.
func TestFetch_StaffFirst(t *testing.T) {
	backend := &fakeBackend{accounts: append(seed("s", "Staff", 50), seed("p", "Patient", 100)...)}
	f := NewFetcher(backend, testLogger())

	page, err := f.Fetch(context.Background(), model.Query{Page: 1, PageSize: 10}, model.ExcludeRoles("Patient"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if n := backend.requests(); n != 1 {
		t.Errorf("ожидался 1 запрос, получено %d", n)
	}
	if len(page.Items) != 10 {
		t.Fatalf("ожидалось 10 записей, получено %d", len(page.Items))
	}
	for _, a := range page.Items {
		if !a.HasRole("Staff") {
			t.Errorf("запись %s без роли Staff", a.ID)
		}
	}
	if !page.HasNextPage {
		t.Error("ожидался HasNextPage=true")
	}
}

// TestFetch_Interleaved — Patient, Patient, Staff по кругу: страница добирается вторым запросом,
// total пересчитывается по доле выживших.
func TestFetch_Interleaved(t *testing.T) {
	var all []model.Account
	for i := range 50 {
		all = append(all,
			account(fmt.Sprintf("p%d-a", i), "P", "pa@x"+fmt.Sprint(i), "Patient"),
			account(fmt.Sprintf("p%d-b", i), "P", "pb@x"+fmt.Sprint(i), "Patient"),
			account(fmt.Sprintf("s%d", i), "S", "s@x"+fmt.Sprint(i), "Staff"),
		)
	}
	backend := &fakeBackend{accounts: all}
	f := NewFetcher(backend, testLogger())

	page, err := f.Fetch(context.Background(), model.Query{Page: 1, PageSize: 10}, model.ExcludeRoles("Patient"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if n := backend.requests(); n != 2 {
		t.Errorf("ожидалось 2 запроса, получено %d", n)
	}
	if len(page.Items) != 10 {
		t.Errorf("ожидалось 10 записей, получено %d", len(page.Items))
	}
	if page.Total != 50 {
		t.Errorf("ожидался Total=50, получен %d", page.Total)
	}
	if !page.HasNextPage {
		t.Error("ожидался HasNextPage=true")
	}
}

// TestFetch_Properties — для разных размеров и номеров страниц:
// не больше pageSize записей, ни одна не исключена, не больше 4 запросов.
func TestFetch_Properties(t *testing.T) {
	var all []model.Account
	for i := range 200 {
		role := "Staff"
		switch {
		case i%5 == 0, i%7 == 0:
			role = "Patient"
		case i%11 == 0:
			role = "Doctor"
		}
		all = append(all, account(fmt.Sprintf("a%03d", i), "N", "e", role))
	}
	exclude := model.AnyOf(model.ExcludeRoles("Patient"), model.ExcludeRoles("Doctor"))

	for _, size := range []int{1, 3, 10, 25, 50} {
		for _, p := range []int{1, 2, 5, 20} {
			backend := &fakeBackend{accounts: all}
			f := NewFetcher(backend, testLogger())

			page, err := f.Fetch(context.Background(), model.Query{Page: p, PageSize: size}, exclude)
			if err != nil {
				t.Fatalf("Fetch(page=%d, size=%d): %v", p, size, err)
			}
			if len(page.Items) > size {
				t.Errorf("page=%d size=%d: %d записей больше размера страницы", p, size, len(page.Items))
			}
			for _, a := range page.Items {
				if exclude(a) {
					t.Errorf("page=%d size=%d: исключённая запись %s на странице", p, size, a.ID)
				}
			}
			if n := backend.requests(); n > 1+MaxBackfills {
				t.Errorf("page=%d size=%d: %d запросов", p, size, n)
			}
		}
	}
}

// TestFetch_EmptyPageStops — пустая страница прекращает дозаполнение,
// даже если total обещает больше записей.
func TestFetch_EmptyPageStops(t *testing.T) {
	calls := 0
	src := sourceFunc(func(_ context.Context, p clinicapi.ListParams) (*clinicapi.AccountList, error) {
		calls++
		if p.Page == 1 {
			return &clinicapi.AccountList{
				Items: []model.Account{account("1", "A", "a", "Staff"), account("2", "B", "b", "Patient")},
				Total: 1000,
			}, nil
		}
		return &clinicapi.AccountList{Total: 1000}, nil
	})

	page, err := NewFetcher(src, testLogger()).Fetch(context.Background(),
		model.Query{Page: 1, PageSize: 10}, model.ExcludeRoles("Patient"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 2 {
		t.Errorf("ожидалось 2 запроса, получено %d", calls)
	}
	if len(page.Items) != 1 {
		t.Errorf("ожидалась 1 запись, получено %d", len(page.Items))
	}
	if page.Total != 500 {
		t.Errorf("ожидался Total=500, получен %d", page.Total)
	}
}

// TestFetch_TotalReached — дозаполнение не идёт дальше remote total.
func TestFetch_TotalReached(t *testing.T) {
	backend := &fakeBackend{accounts: append(seed("s", "Staff", 4), seed("p", "Patient", 8)...)}
	f := NewFetcher(backend, testLogger())

	page, err := f.Fetch(context.Background(), model.Query{Page: 1, PageSize: 10}, model.ExcludeRoles("Patient"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n := backend.requests(); n != 1 {
		t.Errorf("ожидался 1 запрос, получено %d", n)
	}
	if len(page.Items) != 4 || page.Total != 4 {
		t.Errorf("ожидалось 4 записи и Total=4, получено %d/%d", len(page.Items), page.Total)
	}
	if page.HasNextPage {
		t.Error("HasNextPage должен быть false")
	}
}

func TestFetch_Errors(t *testing.T) {
	boom := errors.New("connection refused")

	t.Run("первый запрос", func(t *testing.T) {
		backend := &fakeBackend{failList: boom}
		_, err := NewFetcher(backend, testLogger()).Fetch(context.Background(), model.Query{Page: 1, PageSize: 10}, nil)
		if !errors.Is(err, boom) {
			t.Errorf("ожидалась исходная ошибка, получена %v", err)
		}
		if n := backend.requests(); n != 1 {
			t.Errorf("повторов быть не должно, запросов: %d", n)
		}
	})

	t.Run("дозапрос", func(t *testing.T) {
		src := sourceFunc(func(_ context.Context, p clinicapi.ListParams) (*clinicapi.AccountList, error) {
			if p.Page > 1 {
				return nil, boom
			}
			return &clinicapi.AccountList{Items: []model.Account{account("1", "A", "a", "Patient")}, Total: 100}, nil
		})
		_, err := NewFetcher(src, testLogger()).Fetch(context.Background(),
			model.Query{Page: 1, PageSize: 10}, model.ExcludeRoles("Patient"))
		if !errors.Is(err, boom) {
			t.Errorf("ожидалась исходная ошибка, получена %v", err)
		}
	})
}

// TestFetch_PassesFilters — role и keyword передаются источнику без изменений.
func TestFetch_PassesFilters(t *testing.T) {
	backend := &fakeBackend{accounts: seed("p", "Patient", 3)}
	f := NewFetcher(backend, testLogger())

	_, err := f.Fetch(context.Background(), model.Query{Role: "Patient", Keyword: "p-001", Page: 3, PageSize: 4}, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	call := backend.listCalls[0]
	if call.Role != "Patient" || call.Keyword != "p-001" || call.Page != 3 || call.PageSize != 6 {
		t.Errorf("неожиданные параметры: %+v", call)
	}
}
