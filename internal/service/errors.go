package service

import (
	"errors"
	"fmt"
	repo "taskManager/internal/repository"
)

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeDuplicate    = "DUPLICATE"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
)

type Resource string

const (
	ResourceUser     Resource = "пользователь"
	ResourceCategory Resource = "категория"
	ResourceTask     Resource = "задача"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{Key: key, Payload: payload}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}
	return busErr
}

// NewNotFound используется и для чужих записей, чтобы не раскрывать их существование.
func NewNotFound(resource Resource, id int64) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %d не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewDuplicate(field, value string) *BusinessError {
	return &BusinessError{
		Code:    CodeDuplicate,
		Message: fmt.Sprintf("значение '%s' поля '%s' уже занято", value, field),
		Details: map[string]any{
			"field": field,
		},
	}
}

func NewConflict(message string, err error) *BusinessError {
	return &BusinessError{
		Code:    CodeConflict,
		Message: message,
		Details: map[string]any{},
		Err:     err,
	}
}

func NewUnauthorized(message string) *BusinessError {
	return &BusinessError{
		Code:    CodeUnauthorized,
		Message: message,
		Details: map[string]any{},
	}
}

// IsCode проверяет код BusinessError в цепочке ошибок.
func IsCode(err error, code string) bool {
	var busErr *BusinessError
	return errors.As(err, &busErr) && busErr.Code == code
}

func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, repo.ErrConflict)
}
