package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"
)

// mockClinic — clinic API в памяти с записью запросов.
type mockClinic struct {
	mu        sync.Mutex
	server    *httptest.Server
	requests  []string
	auth      []string
	bodies    []map[string]any
	failLists bool
}

const accountsJSON = `{"items":[
	{"id":"1","email":"an@clinic.vn","fullName":"Nguyễn Văn An","roles":["Admin"],"isActive":true},
	{"id":"2","email":"binh@clinic.vn","fullName":"Trần Thị Bình","roles":["Doctor"],"isActive":true},
	{"id":"3","email":"cuong@clinic.vn","fullName":"Lê Văn Cường","roles":["Patient"],"isActive":true},
	{"id":"4","email":"dung@clinic.vn","fullName":"Phạm Dũng","roles":["Staff"],"isActive":false}
],"total":4}`

func newMockClinic(t *testing.T) *mockClinic {
	t.Helper()
	m := &mockClinic{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.Method+" "+r.URL.Path)
		m.auth = append(m.auth, r.Header.Get("Authorization"))
		if r.Body != nil {
			var body map[string]any
			if data, _ := io.ReadAll(r.Body); len(data) > 0 {
				_ = json.Unmarshal(data, &body)
				m.bodies = append(m.bodies, body)
			}
		}
		failLists := m.failLists
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/accounts":
			if failLists {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"message":"database offline"}`)
				return
			}
			if r.URL.Query().Get("page") != "1" {
				_, _ = io.WriteString(w, `{"items":[],"total":4}`)
				return
			}
			_, _ = io.WriteString(w, accountsJSON)
		case r.Method == http.MethodGet && r.URL.Path == "/api/roles":
			_, _ = io.WriteString(w, `["Admin","Doctor","Patient","Staff"]`)
		case r.Method == http.MethodPut:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockClinic) count(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

// run выполняет clinicctl с изолированным файлом сеанса.
func run(t *testing.T, sessionPath string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("CC_CLINIC_API_URL", "")
	t.Setenv("CC_TOKEN", "")
	t.Setenv("CC_LANG", "")
	t.Setenv("LANG", "C")

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--session-file", sessionPath}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestAccountsList_Table(t *testing.T) {
	m := newMockClinic(t)
	session := filepath.Join(t.TempDir(), "session.yaml")

	out, _, err := run(t, session, "--api-url", m.server.URL, "--token", "tkn", "accounts", "list")
	if err != nil {
		t.Fatalf("accounts list: %v", err)
	}

	for _, want := range []string{"NAME", "STATUS", "Nguyễn Văn An", "Phạm Dũng", "inactive", "Total: 3, page 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("вывод не содержит %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Lê Văn Cường") {
		t.Errorf("пациент не должен выводиться в представлении accounts:\n%s", out)
	}
	if strings.Index(out, "Trần Thị Bình") > strings.Index(out, "Phạm Dũng") {
		t.Errorf("ожидалась сортировка по личному имени (Bình перед Dũng):\n%s", out)
	}
	if m.auth[0] != "Bearer tkn" {
		t.Errorf("Authorization = %q", m.auth[0])
	}
}

func TestAccountsList_JSONAndYAML(t *testing.T) {
	m := newMockClinic(t)
	session := filepath.Join(t.TempDir(), "session.yaml")

	out, _, err := run(t, session, "--api-url", m.server.URL, "-o", "json", "accounts", "list", "--view", "patients")
	if err != nil {
		t.Fatalf("accounts list -o json: %v", err)
	}
	var page pageOutput
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("невалидный JSON: %v\n%s", err, out)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "3" {
		t.Errorf("items = %+v, ожидался только пациент 3", page.Items)
	}

	out, _, err = run(t, session, "--api-url", m.server.URL, "-o", "yaml", "accounts", "list", "--desc")
	if err != nil {
		t.Fatalf("accounts list -o yaml: %v", err)
	}
	page = pageOutput{}
	if err := yaml.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("невалидный YAML: %v\n%s", err, out)
	}
	if len(page.Items) != 3 || page.Items[0].FullName != "Phạm Dũng" {
		t.Errorf("items = %+v, ожидалась сортировка по убыванию", page.Items)
	}
	if page.PageSize != 10 || page.Page != 1 {
		t.Errorf("page/page_size = %d/%d", page.Page, page.PageSize)
	}
}

func TestAccountsList_Errors(t *testing.T) {
	m := newMockClinic(t)
	m.failLists = true
	session := filepath.Join(t.TempDir(), "session.yaml")

	_, _, err := run(t, session, "--api-url", m.server.URL, "accounts", "list")
	if err == nil || err.Error() != "Failed to load accounts: database offline" {
		t.Errorf("ошибка = %v", err)
	}

	_, _, err = run(t, session, "--api-url", m.server.URL, "--lang", "ru", "accounts", "list", "--view", "doctors")
	if err == nil || !strings.Contains(err.Error(), "doctors") {
		t.Errorf("ошибка представления = %v", err)
	}

	if _, _, err := run(t, session, "accounts", "list"); err == nil {
		t.Error("без --api-url ожидалась ошибка")
	}
	if _, _, err := run(t, session, "--api-url", m.server.URL, "-o", "xml", "accounts", "list"); err == nil {
		t.Error("для -o xml ожидалась ошибка")
	}
}

func TestSetStatus(t *testing.T) {
	m := newMockClinic(t)
	session := filepath.Join(t.TempDir(), "session.yaml")

	out, _, err := run(t, session, "--api-url", m.server.URL, "accounts", "set-status", "4", "--active")
	if err != nil {
		t.Fatalf("set-status: %v", err)
	}
	if strings.TrimSpace(out) != "Account status updated" {
		t.Errorf("вывод = %q", out)
	}
	if m.count("PUT /api/accounts/4/status") != 1 {
		t.Errorf("запросы = %v", m.requests)
	}
	if got := m.bodies[0]["isActive"]; got != true {
		t.Errorf("isActive = %v", got)
	}
}

func TestBulkStatus(t *testing.T) {
	m := newMockClinic(t)
	session := filepath.Join(t.TempDir(), "session.yaml")

	out, _, err := run(t, session, "--api-url", m.server.URL, "-o", "json", "accounts", "bulk-status", "--active=false", "1", "2", "1")
	if err != nil {
		t.Fatalf("bulk-status: %v", err)
	}
	var res mutationOutput
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("невалидный JSON: %v", err)
	}
	if res.Updated != 2 || res.Message != "Status updated for 2 accounts" {
		t.Errorf("результат = %+v", res)
	}
	if m.count("PUT /api/accounts/status") != 1 {
		t.Errorf("запросы = %v", m.requests)
	}
	ids, _ := m.bodies[0]["ids"].([]any)
	if len(ids) != 2 {
		t.Errorf("ids = %v, ожидались 2 уникальных", m.bodies[0]["ids"])
	}
}

func TestBulkStatus_EmptySelection(t *testing.T) {
	m := newMockClinic(t)
	session := filepath.Join(t.TempDir(), "session.yaml")

	_, _, err := run(t, session, "--api-url", m.server.URL, "--lang", "vi", "accounts", "bulk-status", "--active")
	if err == nil || err.Error() != "Vui lòng chọn ít nhất một tài khoản" {
		t.Errorf("ошибка = %v", err)
	}
	if m.count("PUT") != 0 {
		t.Errorf("clinic API не должен вызываться: %v", m.requests)
	}
}

func TestUpdate(t *testing.T) {
	m := newMockClinic(t)
	session := filepath.Join(t.TempDir(), "session.yaml")

	_, _, err := run(t, session, "--api-url", m.server.URL, "accounts", "update", "2", "--email", "invalid", "--full-name", "Trần Thị Bình")
	if err == nil || err.Error() != "Email is not valid" {
		t.Errorf("ошибка = %v", err)
	}
	if m.count("PUT") != 0 {
		t.Errorf("некорректный профиль не должен отправляться: %v", m.requests)
	}

	out, _, err := run(t, session, "--api-url", m.server.URL, "accounts", "update", "2",
		"--email", "binh.tran@clinic.vn", "--full-name", "Trần Thị Bình", "--phone", "0901234567")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if strings.TrimSpace(out) != "Account updated" {
		t.Errorf("вывод = %q", out)
	}
	if got := m.bodies[0]["fullName"]; got != "Trần Thị Bình" {
		t.Errorf("fullName = %v", got)
	}
	if _, ok := m.bodies[0]["roles"]; ok {
		t.Error("роли не должны отправляться")
	}
}

func TestRoles(t *testing.T) {
	m := newMockClinic(t)
	session := filepath.Join(t.TempDir(), "session.yaml")

	out, _, err := run(t, session, "--api-url", m.server.URL, "roles")
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	if got := strings.Fields(out); len(got) != 4 || got[0] != "Admin" {
		t.Errorf("роли = %v", got)
	}
}

func TestLoginLogout(t *testing.T) {
	m := newMockClinic(t)
	session := filepath.Join(t.TempDir(), "nested", "session.yaml")

	if _, _, err := run(t, session, "--api-url", m.server.URL+"/", "login", "stored-token"); err != nil {
		t.Fatalf("login: %v", err)
	}
	info, err := os.Stat(session)
	if err != nil {
		t.Fatalf("файл сеанса не создан: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("права файла сеанса = %v", info.Mode().Perm())
	}

	// URL и токен берутся из файла сеанса.
	if _, _, err := run(t, session, "roles"); err != nil {
		t.Fatalf("roles после login: %v", err)
	}
	if got := m.auth[len(m.auth)-1]; got != "Bearer stored-token" {
		t.Errorf("Authorization = %q", got)
	}

	out, _, err := run(t, session, "--lang", "ru", "logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("logout должен вывести сообщение")
	}
	if _, err := os.Stat(session); !os.IsNotExist(err) {
		t.Errorf("файл сеанса должен быть удалён: %v", err)
	}
	if _, _, err := run(t, session, "logout"); err != nil {
		t.Errorf("повторный logout: %v", err)
	}
}
