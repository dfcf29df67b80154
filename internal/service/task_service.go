package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskFocus/internal/logger"
	"taskFocus/internal/models/task"
	repo "taskFocus/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

// textLayout - формат дат в сообщениях об ошибках, например "Wed Dec 23 00:00:00 JST 2015"
const textLayout = "Mon Jan 02 15:04:05 MST 2006"

type TaskService struct {
	repo          TaskRepository
	RepoType      RepoType
	loc           *time.Location
	orderRetries  uint64
	retryInterval time.Duration
	metrics       Metrics
}

func NewTaskService(repo TaskRepository, repoType RepoType, opts ...Option) TaskService {
	s := TaskService{
		repo:          repo,
		RepoType:      repoType,
		loc:           time.Local,
		orderRetries:  defaultOrderRetries,
		retryInterval: defaultRetryInterval,
		metrics:       noopMetrics{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Location - часовой пояс, в котором задачи группируются по дням
func (s *TaskService) Location() *time.Location {
	return s.loc
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

// CreateTask проверяет входные данные, назначает задаче место в конце своего дня
// и сохраняет её. Нулевой date считается незаданным. При ошибке валидации
// хранилище не вызывается.
func (s *TaskService) CreateTask(ctx context.Context, date time.Time, name string, estimatedTime int, estimatedStartTime task.NullTime) (uuid.UUID, error) {
	newTask, err := s.buildTask(date, name, estimatedTime, estimatedStartTime)
	if err != nil {
		var busErr *BusinessError
		if errors.As(err, &busErr) {
			field, _ := busErr.Details["field"].(string)
			s.metrics.ValidationFailed(field)
			logger.Warn("Service: Ошибка валидации задачи",
				zap.String("field", field),
				zap.String("message", busErr.Message))
		}
		return uuid.Nil, err
	}

	start := time.Now()
	attempt := 0
	save := func() error {
		attempt++
		count, err := s.repo.CountByDay(ctx, newTask.Day)
		if err != nil {
			return backoff.Permanent(err)
		}
		newTask.OrderOfDate = count

		err = s.repo.Save(ctx, newTask)
		if errors.Is(err, repo.ErrOrderConflict) {
			s.metrics.OrderConflict()
			logger.Warn("Service: Конфликт порядкового номера, повтор",
				zap.String("day", newTask.Day.String()),
				zap.Int("order_of_date", count),
				zap.Int("attempt", attempt))
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(save, s.retryPolicy(ctx)); err != nil {
		logger.Error("Service: Не удалось сохранить задачу", err,
			zap.String("day", newTask.Day.String()),
			zap.Int("attempts", attempt))
		return uuid.Nil, err
	}

	s.metrics.TaskCreated()
	logger.Info("Service: Задача создана",
		zap.String("task_id", newTask.ID.String()),
		zap.String("day", newTask.Day.String()),
		zap.Int("order_of_date", newTask.OrderOfDate),
		zap.Duration("ms", time.Since(start)))

	return newTask.ID, nil
}

// buildTask проверяет поля строго по порядку: date, name, estimatedTime, estimatedStartTime
func (s *TaskService) buildTask(date time.Time, name string, estimatedTime int, estimatedStartTime task.NullTime) (*task.Task, error) {
	if date.IsZero() {
		return nil, NewInvalidArgument("date", "date is null.")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewInvalidArgument("name", "name is blank.")
	}

	if estimatedTime < 0 {
		return nil, NewInvalidArgument("estimatedTime",
			fmt.Sprintf("estimatedTime < 0. estimatedTime=%d", estimatedTime))
	}

	if est, ok := estimatedStartTime.Get(); ok && !task.SameDay(date, est, s.loc) {
		return nil, NewInvalidArgument("estimatedStartTime",
			fmt.Sprintf("date and estimatedStartTime are different day. date=%s, estimatedStartTime=%s",
				date.In(s.loc).Format(textLayout), est.In(s.loc).Format(textLayout)))
	}

	return &task.Task{
		ID:                 uuid.New(),
		Date:               date,
		Day:                task.DayOf(date, s.loc),
		Name:               name,
		EstimatedTime:      estimatedTime,
		EstimatedStartTime: estimatedStartTime,
	}, nil
}

func (s *TaskService) retryPolicy(ctx context.Context) backoff.BackOffContext {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryInterval
	policy.MaxInterval = 20 * s.retryInterval
	return backoff.WithContext(backoff.WithMaxRetries(policy, s.orderRetries), ctx)
}

func (s *TaskService) GetTaskByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
			return nil, NewNotFound(s.RepoType, id.String(), err)
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return found, nil
}

// ListTasksByDay возвращает задачи дня в порядке OrderOfDate
func (s *TaskService) ListTasksByDay(ctx context.Context, day task.Day) ([]*task.Task, error) {
	tasks, err := s.repo.FindByDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("получение задач за %s: %w", day, err)
	}
	return tasks, nil
}

func (s *TaskService) ListTasks(ctx context.Context) ([]*task.Task, error) {
	tasks, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return tasks, nil
}
