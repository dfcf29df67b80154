package service

import (
	"context"

	"taskFocus/internal/models/task"

	"github.com/google/uuid"
)

// TaskRepository - хранилище задач. Save возвращает repository.ErrOrderConflict,
// если пара (день, порядковый номер) уже занята.
type TaskRepository interface {
	HealthCheck(context.Context) error
	Save(context.Context, *task.Task) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	FindAll(context.Context) ([]*task.Task, error)
	FindByDay(context.Context, task.Day) ([]*task.Task, error)
	CountByDay(context.Context, task.Day) (int, error)
	DeleteAll(context.Context) error
}

// Metrics - счётчики сервиса; реализация в internal/metrics
type Metrics interface {
	TaskCreated()
	ValidationFailed(field string)
	OrderConflict()
}

type noopMetrics struct{}

func (noopMetrics) TaskCreated()            {}
func (noopMetrics) ValidationFailed(string) {}
func (noopMetrics) OrderConflict()          {}
