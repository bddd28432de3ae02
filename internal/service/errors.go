// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrEmptySelection — массовое действие без выбранных учётных записей.
	ErrEmptySelection = fmt.Errorf("%w: не выбрано ни одной учётной записи", ErrValidation)
	// ErrRolesImmutable — попытка изменить роли через обновление профиля.
	ErrRolesImmutable = fmt.Errorf("%w: роли учётной записи не изменяются", ErrValidation)

	// Ошибки профиля.
	ErrEmailRequired    = fmt.Errorf("%w: email обязателен", ErrValidation)
	ErrEmailInvalid     = fmt.Errorf("%w: некорректный email", ErrValidation)
	ErrFullNameRequired = fmt.Errorf("%w: имя обязательно", ErrValidation)
)
