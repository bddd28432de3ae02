// session.go — файл сеанса оператора и команды login/logout.
// Токен загружается при старте команды и удаляется при выходе.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bigkaa/clinic-console/internal/i18n"
)

// sessionFile — содержимое файла сеанса.
type sessionFile struct {
	Token   string    `yaml:"token"`
	APIURL  string    `yaml:"api_url,omitempty"`
	SavedAt time.Time `yaml:"saved_at,omitempty"`
}

// defaultSessionPath — ~/.config/clinicctl/session.yaml (или аналог ОС).
func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "clinicctl", "session.yaml")
}

// loadSession читает файл сеанса. Отсутствующий файл — пустой сеанс.
func loadSession(path string) (*sessionFile, error) {
	s := &sessionFile{}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("чтение файла сеанса: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("разбор файла сеанса %s: %w", path, err)
	}
	return s, nil
}

// saveSession записывает файл сеанса с правами 0600.
func saveSession(path string, s *sessionFile) error {
	if path == "" {
		return errors.New("не задан путь файла сеанса (--session-file)")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("создание каталога сеанса: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("запись файла сеанса: %w", err)
	}
	return nil
}

// removeSession удаляет файл сеанса. Отсутствующий файл — не ошибка.
func removeSession(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("удаление файла сеанса: %w", err)
	}
	return nil
}

func newLoginCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login [TOKEN]",
		Short: "Сохранить токен и URL clinic API в файл сеанса",
		Long: `Сохраняет токен (аргумент, --token или CC_TOKEN) и --api-url в файл сеанса.
Последующие команды используют их, если флаги не заданы.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := o.token
			if len(args) == 1 {
				token = args[0]
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("не задан токен")
			}

			if err := saveSession(o.sessionPath, &sessionFile{
				Token:   token,
				APIURL:  strings.TrimRight(o.apiURL, "/"),
				SavedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
			return o.encode(cmd.OutOrStdout(), map[string]string{"session_file": o.sessionPath}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, o.sessionPath)
				return err
			})
		},
	}
}

func newLogoutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Сбросить сеанс оператора",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := removeSession(o.sessionPath); err != nil {
				return err
			}
			msg := o.t(i18n.MsgLoggedOut)
			return o.encode(cmd.OutOrStdout(), map[string]string{"message": msg}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, msg)
				return err
			})
		},
	}
}
