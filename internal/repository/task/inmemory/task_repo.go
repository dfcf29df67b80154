package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskFocus/internal/logger"
	"taskFocus/internal/models/task"
	repo "taskFocus/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type dayOrder struct {
	day   task.Day
	order int
}

type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	taken   map[dayOrder]uuid.UUID
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		taken:   make(map[dayOrder]uuid.UUID),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

// Save хранит копию задачи; пара (день, номер) проверяется под той же блокировкой
func (s *TaskStorage) Save(ctx context.Context, taskToSave *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	key := dayOrder{day: taskToSave.Day, order: taskToSave.OrderOfDate}
	if owner, ok := s.taken[key]; ok && owner != taskToSave.ID {
		logger.Warn("Repository: Порядковый номер занят",
			zap.String("day", key.day.String()),
			zap.Int("order_of_date", key.order))
		return repo.ErrOrderConflict
	}

	if _, exists := s.storage[taskToSave.ID]; !exists {
		s.ids = append(s.ids, taskToSave.ID)
	}

	taskToSave.CreatedAt = time.Now()
	s.storage[taskToSave.ID] = taskToSave.Clone()
	s.taken[key] = taskToSave.ID
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

// FindAll возвращает задачи в порядке добавления
func (s *TaskStorage) FindAll(ctx context.Context) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*task.Task, 0, len(s.ids))
	for _, id := range s.ids {
		res = append(res, s.storage[id].Clone())
	}
	return res, nil
}

func (s *TaskStorage) FindByDay(ctx context.Context, day task.Day) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.storage[id]
		if t.Day == day {
			res = append(res, t.Clone())
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].OrderOfDate < res[j].OrderOfDate
	})
	return res, nil
}

func (s *TaskStorage) CountByDay(ctx context.Context, day task.Day) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	count := 0
	for _, t := range s.storage {
		if t.Day == day {
			count++
		}
	}
	return count, nil
}

// DeleteAll нужен только для подготовки тестов
func (s *TaskStorage) DeleteAll(ctx context.Context) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.storage = make(map[uuid.UUID]*task.Task)
	s.taken = make(map[dayOrder]uuid.UUID)
	s.ids = []uuid.UUID{}
	return nil
}
