// token.go — источники токена доступа к clinic API.
// Клиент не читает глобальное состояние авторизации: TokenSource передаётся явно.
package clinicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TokenSource возвращает bearer-токен для запроса.
// Пустая строка — запрос отправляется без Authorization.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken — неизменяемый токен.
type StaticToken string

// Token возвращает токен.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// Session — токен сеанса оператора в памяти.
// Загружается при старте (Set) и сбрасывается при выходе (Clear).
type Session struct {
	mu    sync.RWMutex
	token string
}

// NewSession создаёт сеанс с начальным токеном.
func NewSession(token string) *Session {
	return &Session{token: token}
}

// Set устанавливает токен.
func (s *Session) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Clear сбрасывает токен.
func (s *Session) Clear() {
	s.Set("")
}

// Token возвращает текущий токен.
func (s *Session) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

// tokenResponse — ответ token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// ClientCredentials — OAuth2 Client Credentials flow с кэшированием токена.
// Токен обновляется за 30 секунд до истечения.
type ClientCredentials struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClientCredentials создаёт источник токена для service account.
func NewClientCredentials(tokenURL, clientID, clientSecret string, httpClient *http.Client, logger *slog.Logger) *ClientCredentials {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ClientCredentials{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", "clinic_token")),
	}
}

// Token возвращает актуальный access token, обновляя при необходимости.
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Add(30*time.Second).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	token, err := c.requestToken(ctx)
	if err != nil {
		return "", err
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	c.logger.Debug("Токен clinic API обновлён",
		slog.Time("expires_at", c.tokenExpiry),
	)

	return c.accessToken, nil
}

func (c *ClientCredentials) requestToken(ctx context.Context) (*tokenResponse, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("создание запроса токена: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос токена: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token endpoint вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("декодирование токена: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint вернул пустой access_token")
	}

	return &token, nil
}
