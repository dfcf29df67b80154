package handlers

import (
	"context"
	"time"

	"taskFocus/internal/models/task"

	"github.com/google/uuid"
)

type Service interface {
	HealthCheck(context.Context) error
	CreateTask(ctx context.Context, date time.Time, name string, estimatedTime int, estimatedStartTime task.NullTime) (uuid.UUID, error)
	GetTaskByID(context.Context, uuid.UUID) (*task.Task, error)
	ListTasksByDay(context.Context, task.Day) ([]*task.Task, error)
	ListTasks(context.Context) ([]*task.Task, error)
}
