package service

import "time"

type RepoType string

const (
	DBType       RepoType = "postgres"
	SQLiteType   RepoType = "sqlite"
	InMemoryType RepoType = "inmemory"
)

const (
	defaultOrderRetries  = 5
	defaultRetryInterval = 10 * time.Millisecond
)

// Option настраивает TaskService при создании
type Option func(*TaskService)

// WithLocation задаёт часовой пояс, в котором сравниваются календарные дни
func WithLocation(loc *time.Location) Option {
	return func(s *TaskService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithOrderRetries ограничивает число повторов при конфликте порядкового номера
func WithOrderRetries(retries uint64, interval time.Duration) Option {
	return func(s *TaskService) {
		s.orderRetries = retries
		if interval > 0 {
			s.retryInterval = interval
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *TaskService) {
		if m != nil {
			s.metrics = m
		}
	}
}
