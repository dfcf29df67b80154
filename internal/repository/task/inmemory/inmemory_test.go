package inmemory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"taskFocus/internal/models/task"
	"taskFocus/internal/repository"
	"taskFocus/internal/repository/task/inmemory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = task.NewDay(2015, time.December, 23)

func newTask(d task.Day, order int, name string) *task.Task {
	return &task.Task{
		ID:          uuid.New(),
		Date:        d.Time(),
		Day:         d,
		OrderOfDate: order,
		Name:        name,
	}
}

// TestTaskStorage_New тестирует создание хранилища
func TestTaskStorage_New(t *testing.T) {
	storage := inmemory.NewTaskStorage()
	assert.NotNil(t, storage)
	assert.NoError(t, storage.HealthCheck(context.Background()))
}

// TestTaskStorage_Save тестирует сохранение задачи
func TestTaskStorage_Save(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToSave := newTask(day, 0, "Test Task")
	taskToSave.EstimatedStartTime = task.SomeTime(time.Date(2015, 12, 23, 14, 27, 0, 0, time.UTC))

	err := storage.Save(ctx, taskToSave)
	require.NoError(t, err)
	assert.False(t, taskToSave.CreatedAt.IsZero())

	retrieved, err := storage.GetByID(ctx, taskToSave.ID)
	require.NoError(t, err)
	assert.Equal(t, taskToSave, retrieved)
}

// TestTaskStorage_StoresCopies проверяет, что изменения снаружи не попадают в хранилище
func TestTaskStorage_StoresCopies(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToSave := newTask(day, 0, "Original")
	require.NoError(t, storage.Save(ctx, taskToSave))
	taskToSave.Name = "Changed after save"

	retrieved, err := storage.GetByID(ctx, taskToSave.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", retrieved.Name)

	retrieved.Name = "Changed after read"
	again, err := storage.GetByID(ctx, taskToSave.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Name)
}

func TestTaskStorage_GetByID_NotFound(t *testing.T) {
	storage := inmemory.NewTaskStorage()

	_, err := storage.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestTaskStorage_OrderConflict проверяет уникальность пары (день, номер)
func TestTaskStorage_OrderConflict(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	require.NoError(t, storage.Save(ctx, newTask(day, 0, "first")))

	err := storage.Save(ctx, newTask(day, 0, "second"))
	assert.ErrorIs(t, err, repository.ErrOrderConflict)

	// тот же номер в другой день допустим
	assert.NoError(t, storage.Save(ctx, newTask(day.Next(), 0, "other day")))

	all, err := storage.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTaskStorage_FindByDayAndCount(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	// сохраняем не по порядку, ответ всё равно отсортирован
	require.NoError(t, storage.Save(ctx, newTask(day, 1, "second")))
	require.NoError(t, storage.Save(ctx, newTask(day, 0, "first")))
	require.NoError(t, storage.Save(ctx, newTask(day, 2, "third")))
	require.NoError(t, storage.Save(ctx, newTask(day.Next(), 0, "tomorrow")))

	tasks, err := storage.FindByDay(ctx, day)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "first", tasks[0].Name)
	assert.Equal(t, "second", tasks[1].Name)
	assert.Equal(t, "third", tasks[2].Name)

	count, err := storage.CountByDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = storage.CountByDay(ctx, day.Next().Next())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	empty, err := storage.FindByDay(ctx, day.Next().Next())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTaskStorage_FindAllKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	for i := 0; i < 5; i++ {
		require.NoError(t, storage.Save(ctx, newTask(task.NewDay(2015, time.December, 20+i), 0, fmt.Sprintf("task %d", i))))
	}

	all, err := storage.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, got := range all {
		assert.Equal(t, fmt.Sprintf("task %d", i), got.Name)
	}
}

func TestTaskStorage_DeleteAll(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	require.NoError(t, storage.Save(ctx, newTask(day, 0, "first")))
	require.NoError(t, storage.DeleteAll(ctx))

	all, err := storage.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// после очистки номер 0 снова свободен
	assert.NoError(t, storage.Save(ctx, newTask(day, 0, "again")))
}

// TestTaskStorage_ConcurrentSave - из параллельных попыток занять один номер проходит ровно одна
func TestTaskStorage_ConcurrentSave(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, conflicts := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := storage.Save(ctx, newTask(day, 0, fmt.Sprintf("task %d", i)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, repository.ErrOrderConflict) {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}
