// messages.go — соответствие ошибок сервиса ключам локализованных сообщений.
package service

import (
	"errors"

	"github.com/bigkaa/clinic-console/internal/i18n"
)

var messageKeys = []struct {
	err error
	key string
}{
	{ErrEmptySelection, i18n.MsgSelectAtLeastOne},
	{ErrRolesImmutable, i18n.MsgRolesImmutable},
	{ErrEmailRequired, i18n.MsgEmailRequired},
	{ErrEmailInvalid, i18n.MsgEmailInvalid},
	{ErrFullNameRequired, i18n.MsgFullNameRequired},
	{ErrNotFound, i18n.MsgNotFound},
}

// MessageKey возвращает ключ i18n для известной ошибки сервиса.
func MessageKey(err error) (string, bool) {
	for _, m := range messageKeys {
		if errors.Is(err, m.err) {
			return m.key, true
		}
	}
	return "", false
}
