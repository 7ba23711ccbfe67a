package repository

import "errors"

// Ошибки хранилища. Реализации оборачивают их через %w,
// вызывающий код проверяет errors.Is.
var (
	ErrNotFound = errors.New("запись не найдена")
	ErrConflict = errors.New("конфликт с существующими данными")
	ErrStorage  = errors.New("ошибка хранилища")
)
