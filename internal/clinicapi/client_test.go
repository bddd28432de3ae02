package clinicapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bigkaa/clinic-console/internal/domain/model"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockAPI создаёт mock HTTP-сервер clinic API.
func setupMockAPI(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// TestClient_ListAccounts проверяет параметры запроса и нормализацию ответа.
func TestClient_ListAccounts(t *testing.T) {
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/accounts" || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tkn" {
			t.Errorf("ожидался Authorization=Bearer tkn, получен %q", got)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("pageSize") != "15" {
			t.Errorf("ожидались page=2 pageSize=15, получены %s %s", q.Get("page"), q.Get("pageSize"))
		}
		if q.Get("role") != "Patient" {
			t.Errorf("ожидался role=Patient, получен %q", q.Get("role"))
		}
		if q.Has("keyword") {
			t.Error("пустой keyword не должен передаваться")
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"items":[{"Id":1,"FullName":"Trần Thị Anh","IsActive":true,"Roles":["Patient"]}],"total":57}}`)
	})

	client := New(server.URL+"/", StaticToken("tkn"), nil, testLogger())
	list, err := client.ListAccounts(context.Background(), ListParams{Role: "Patient", Page: 2, PageSize: 15})
	if err != nil {
		t.Fatalf("Ошибка ListAccounts: %v", err)
	}

	if list.Total != 57 {
		t.Errorf("ожидался Total=57, получен %d", list.Total)
	}
	if len(list.Items) != 1 {
		t.Fatalf("ожидалась 1 запись, получено %d", len(list.Items))
	}
	acc := list.Items[0]
	if acc.ID != "1" || acc.FullName != "Trần Thị Anh" || !acc.IsActive {
		t.Errorf("неожиданная запись: %+v", acc)
	}
	if acc.SortKey.Given != "anh" || acc.SortKey.Full != "tran thi anh" {
		t.Errorf("ожидался SortKey={anh tran thi anh}, получен %+v", acc.SortKey)
	}
}

// TestClient_ListAccounts_UnknownShape — неизвестная форма ответа даёт пустой список без ошибки.
func TestClient_ListAccounts_UnknownShape(t *testing.T) {
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"ok"}`)
	})

	client := New(server.URL, nil, nil, testLogger())
	list, err := client.ListAccounts(context.Background(), ListParams{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(list.Items) != 0 || list.Total != 0 {
		t.Errorf("ожидался пустой список, получено %d/%d", len(list.Items), list.Total)
	}
}

// TestClient_ErrorMessage проверяет извлечение сообщения сервера.
func TestClient_ErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message", http.StatusBadRequest, `{"message":"Email đã tồn tại"}`, "Email đã tồn tại"},
		{"Message", http.StatusConflict, `{"Message":"conflict"}`, "conflict"},
		{"вложенный error", http.StatusForbidden, `{"error":{"code":"FORBIDDEN","message":"нет доступа"}}`, "нет доступа"},
		{"title", http.StatusUnprocessableEntity, `{"title":"One or more validation errors occurred."}`, "One or more validation errors occurred."},
		{"не JSON", http.StatusInternalServerError, `oops`, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			client := New(server.URL, nil, nil, testLogger())

			err := client.UpdateStatus(context.Background(), "a1", true)
			if err == nil {
				t.Fatal("ожидалась ошибка")
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("ожидался *APIError, получен %T", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("ожидался статус %d, получен %d", tt.status, apiErr.StatusCode)
			}
			if MessageOf(err) != tt.wantMsg {
				t.Errorf("ожидалось сообщение %q, получено %q", tt.wantMsg, MessageOf(err))
			}
			if !IsStatus(err, tt.status) {
				t.Error("IsStatus вернул false")
			}
		})
	}
}

// TestClient_NetworkError — сетевая ошибка превращается в APIError со StatusCode=0.
func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(url, nil, nil, testLogger())
	_, err := client.ListRoles(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ожидался *APIError, получен %v", err)
	}
	if apiErr.StatusCode != 0 {
		t.Errorf("ожидался StatusCode=0, получен %d", apiErr.StatusCode)
	}
}

func TestClient_Mutations(t *testing.T) {
	type call struct {
		method string
		path   string
		body   map[string]any
	}
	var (
		mu    sync.Mutex
		calls []call
	)

	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.Path, body})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	client := New(server.URL, nil, nil, testLogger())
	ctx := context.Background()

	if err := client.UpdateStatus(ctx, "a1", false); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := client.UpdateStatusBulk(ctx, []string{"a1", "a2"}, true); err != nil {
		t.Fatalf("UpdateStatusBulk: %v", err)
	}
	if err := client.UpdateAccount(ctx, "a2", model.Profile{Email: "x@y.vn", FullName: "X", Phone: "1"}); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 3 {
		t.Fatalf("ожидалось 3 запроса, получено %d", len(calls))
	}

	if calls[0].method != http.MethodPut || calls[0].path != "/api/accounts/a1/status" {
		t.Errorf("UpdateStatus: %s %s", calls[0].method, calls[0].path)
	}
	if calls[0].body["isActive"] != false {
		t.Errorf("UpdateStatus: isActive=%v", calls[0].body["isActive"])
	}

	if calls[1].path != "/api/accounts/status" {
		t.Errorf("UpdateStatusBulk: путь %s", calls[1].path)
	}
	ids, _ := calls[1].body["ids"].([]any)
	if len(ids) != 2 || calls[1].body["isActive"] != true {
		t.Errorf("UpdateStatusBulk: тело %v", calls[1].body)
	}

	if calls[2].path != "/api/accounts/a2" {
		t.Errorf("UpdateAccount: путь %s", calls[2].path)
	}
	if _, ok := calls[2].body["roles"]; ok {
		t.Error("UpdateAccount не должен передавать roles")
	}
	if calls[2].body["fullName"] != "X" || calls[2].body["email"] != "x@y.vn" {
		t.Errorf("UpdateAccount: тело %v", calls[2].body)
	}
}

func TestClient_ListRoles(t *testing.T) {
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/roles" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `[{"name":"Admin"},{"name":"Doctor"},{"roleName":"Patient"}]`)
	})

	client := New(server.URL, nil, nil, testLogger())
	roles, err := client.ListRoles(context.Background())
	if err != nil {
		t.Fatalf("Ошибка ListRoles: %v", err)
	}
	want := []string{"Admin", "Doctor", "Patient"}
	if !slices.Equal(roles, want) {
		t.Errorf("ожидались роли %v, получены %v", want, roles)
	}
}

// TestSession — Clear убирает Authorization из последующих запросов.
func TestSession(t *testing.T) {
	var lastAuth atomic.Value
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		lastAuth.Store(r.Header.Get("Authorization"))
		fmt.Fprint(w, `[]`)
	})

	session := NewSession("abc")
	client := New(server.URL, session, nil, testLogger())
	ctx := context.Background()

	client.ListRoles(ctx)
	if got := lastAuth.Load().(string); got != "Bearer abc" {
		t.Errorf("ожидался Bearer abc, получен %q", got)
	}

	session.Clear()
	client.ListRoles(ctx)
	if got := lastAuth.Load().(string); got != "" {
		t.Errorf("после Clear Authorization должен отсутствовать, получен %q", got)
	}
}

// TestClientCredentials_Cache — токен запрашивается один раз и кэшируется.
func TestClientCredentials_Cache(t *testing.T) {
	var requests atomic.Int32
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("grant_type") != "client_credentials" || r.PostForm.Get("client_id") != "console" {
			t.Errorf("неожиданная форма: %v", r.PostForm)
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "cc-token", "expires_in": 300})
	})

	cc := NewClientCredentials(server.URL+"/token", "console", "secret", nil, testLogger())
	ctx := context.Background()

	for range 3 {
		token, err := cc.Token(ctx)
		if err != nil {
			t.Fatalf("Ошибка Token: %v", err)
		}
		if token != "cc-token" {
			t.Errorf("ожидался cc-token, получен %s", token)
		}
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("ожидался 1 запрос токена, получено %d", n)
	}
}

// TestClientCredentials_ShortLived — токен с коротким сроком обновляется при каждом вызове.
func TestClientCredentials_ShortLived(t *testing.T) {
	var requests atomic.Int32
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "short", "expires_in": 10})
	})

	cc := NewClientCredentials(server.URL, "c", "s", nil, testLogger())
	cc.Token(context.Background())
	cc.Token(context.Background())

	if n := requests.Load(); n != 2 {
		t.Errorf("ожидалось 2 запроса токена, получено %d", n)
	}
}

func TestClientCredentials_Error(t *testing.T) {
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid_client"}`)
	})

	cc := NewClientCredentials(server.URL, "c", "bad", nil, testLogger())
	client := New("http://127.0.0.1:1", cc, nil, testLogger())

	_, err := client.ListRoles(context.Background())
	if err == nil {
		t.Fatal("ожидалась ошибка получения токена")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 0 {
		t.Errorf("ожидался APIError со StatusCode=0, получен %v", err)
	}
}
