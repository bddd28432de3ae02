// Пакет clinicapi — HTTP-клиент к REST API клиники (Remote Account Source).
// Операции: ListAccounts, UpdateStatus, UpdateStatusBulk, UpdateAccount, ListRoles, CheckReady.
// Ответ списка разбирается через accounts.DecodeList: форма конверта не приводит к ошибке.
package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/clinic-console/internal/accounts"
	"github.com/bigkaa/clinic-console/internal/domain/model"
)

// maxErrorBody — сколько байт тела ошибки читается для извлечения сообщения.
const maxErrorBody = 64 << 10

// ListParams — параметры запроса списка учётных записей.
type ListParams struct {
	Role     string
	Keyword  string
	Page     int
	PageSize int
}

// AccountList — страница учётных записей в каноническом виде.
type AccountList struct {
	Items []model.Account
	Total int
}

// APIError — ошибка транспорта или не-2xx ответ clinic API.
// StatusCode = 0 для сетевых ошибок.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("clinic API недоступен: %s", e.Message)
	}
	return fmt.Sprintf("clinic API вернул статус %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// MessageOf возвращает текст ошибки для пользователя.
// Для APIError — сообщение сервера, иначе — err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// IsStatus проверяет, что err — APIError с указанным статусом.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client — HTTP-клиент к clinic API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент.
// tokens — источник токена (nil — запросы без авторизации).
// httpClient — HTTP-клиент (nil — клиент с таймаутом 30s).
func New(baseURL string, tokens TokenSource, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "clinic_client")),
	}
}

// BaseURL возвращает базовый URL clinic API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- HTTP helpers ---

// do выполняет запрос с авторизацией и возвращает тело успешного ответа.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("сериализация тела запроса: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, &APIError{Message: err.Error(), Err: err}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, resp.StatusCode),
		}
		c.logger.Debug("clinic API вернул ошибку",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("message", apiErr.Message),
		)
		return nil, apiErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}
	return data, nil
}

// errorMessage извлекает сообщение из JSON-тела ошибки:
// message / Message / error / title, иначе — текст HTTP-статуса.
func errorMessage(body []byte, status int) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, k := range []string{"message", "Message", "error", "title"} {
			switch v := payload[k].(type) {
			case string:
				if v != "" {
					return v
				}
			case map[string]any:
				// {"error":{"code":..,"message":..}}
				if m, ok := v["message"].(string); ok && m != "" {
					return m
				}
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "HTTP " + strconv.Itoa(status)
}

// --- Accounts API ---

// ListAccounts запрашивает страницу учётных записей.
// GET /api/accounts?role=&keyword=&page=&pageSize= (пустые role/keyword не передаются).
func (c *Client) ListAccounts(ctx context.Context, p ListParams) (*AccountList, error) {
	q := url.Values{}
	if p.Role != "" {
		q.Set("role", p.Role)
	}
	if p.Keyword != "" {
		q.Set("keyword", p.Keyword)
	}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("pageSize", strconv.Itoa(p.PageSize))

	body, err := c.do(ctx, http.MethodGet, "/api/accounts?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	raws, total := accounts.DecodeList(body)
	return &AccountList{
		Items: accounts.NormalizeAll(raws),
		Total: total,
	}, nil
}

// UpdateStatus меняет статус активности одной учётной записи.
// PUT /api/accounts/{id}/status
func (c *Client) UpdateStatus(ctx context.Context, id string, isActive bool) error {
	path := "/api/accounts/" + url.PathEscape(id) + "/status"
	_, err := c.do(ctx, http.MethodPut, path, map[string]any{"isActive": isActive})
	return err
}

// UpdateStatusBulk меняет статус набора учётных записей одним запросом.
// PUT /api/accounts/status
func (c *Client) UpdateStatusBulk(ctx context.Context, ids []string, isActive bool) error {
	_, err := c.do(ctx, http.MethodPut, "/api/accounts/status", map[string]any{
		"ids":      ids,
		"isActive": isActive,
	})
	return err
}

// UpdateAccount заменяет профиль учётной записи. Роли не передаются.
// PUT /api/accounts/{id}
func (c *Client) UpdateAccount(ctx context.Context, id string, p model.Profile) error {
	_, err := c.do(ctx, http.MethodPut, "/api/accounts/"+url.PathEscape(id), map[string]any{
		"email":    p.Email,
		"fullName": p.FullName,
		"phone":    p.Phone,
	})
	return err
}

// --- Roles API ---

// ListRoles возвращает имена ролей.
// GET /api/roles
func (c *Client) ListRoles(ctx context.Context) ([]string, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/roles", nil)
	if err != nil {
		return nil, err
	}
	return accounts.DecodeRoles(body), nil
}

// CheckReady проверяет доступность clinic API (GET /api/roles без разбора ответа).
func (c *Client) CheckReady(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/roles", nil)
	return err
}
