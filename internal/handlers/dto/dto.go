package dto

import (
	"time"

	"taskFocus/internal/models/task"

	"github.com/google/uuid"
)

// CreateTaskRequest - отсутствующие date и name приходят как nil,
// сервис сам решает, что это ошибка
type CreateTaskRequest struct {
	Date               *time.Time `json:"date"`
	Name               *string    `json:"name"`
	EstimatedTime      int        `json:"estimated_time"`
	EstimatedStartTime *time.Time `json:"estimated_start_time"`
}

func (r CreateTaskRequest) DateValue() time.Time {
	if r.Date == nil {
		return time.Time{}
	}
	return *r.Date
}

func (r CreateTaskRequest) NameValue() string {
	if r.Name == nil {
		return ""
	}
	return *r.Name
}

func (r CreateTaskRequest) EstimatedStart() task.NullTime {
	return task.NullTimeFromPtr(r.EstimatedStartTime)
}

type CreateTaskResponse struct {
	ID uuid.UUID `json:"id"`
}

type TaskResponse struct {
	ID                 uuid.UUID     `json:"id"`
	Date               time.Time     `json:"date"`
	Day                task.Day      `json:"day"`
	OrderOfDate        int           `json:"order_of_date"`
	Name               string        `json:"name"`
	EstimatedTime      int           `json:"estimated_time"`
	EstimatedStartTime task.NullTime `json:"estimated_start_time"`
	StartTime          task.NullTime `json:"start_time"`
	EndTime            task.NullTime `json:"end_time"`
	CreatedAt          time.Time     `json:"created_at"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:                 t.ID,
		Date:               t.Date,
		Day:                t.Day,
		OrderOfDate:        t.OrderOfDate,
		Name:               t.Name,
		EstimatedTime:      t.EstimatedTime,
		EstimatedStartTime: t.EstimatedStartTime,
		StartTime:          t.StartTime,
		EndTime:            t.EndTime,
		CreatedAt:          t.CreatedAt,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}
