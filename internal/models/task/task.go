package task

import (
	"time"

	"github.com/google/uuid"
)

// Task - одна запланированная единица работы на конкретный день
type Task struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Date               time.Time `json:"date" db:"date"`
	Day                Day       `json:"day" db:"day"`
	OrderOfDate        int       `json:"order_of_date" db:"order_of_date"`
	Name               string    `json:"name" db:"name"`
	EstimatedTime      int       `json:"estimated_time" db:"estimated_time"`
	EstimatedStartTime NullTime  `json:"estimated_start_time" db:"estimated_start_time"`
	StartTime          NullTime  `json:"start_time" db:"start_time"`
	EndTime            NullTime  `json:"end_time" db:"end_time"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// Clone возвращает независимую копию задачи
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
