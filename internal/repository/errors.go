package repository

import "errors"

var (
	ErrNotFound = errors.New("задача не найдена")
	// ErrOrderConflict - порядковый номер уже занят другой задачей того же дня
	ErrOrderConflict = errors.New("конфликт порядкового номера задачи")
)
