package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"taskFocus/internal/models/task"
	"taskFocus/internal/repository"
	"taskFocus/internal/repository/task/sqlite"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jst = time.FixedZone("JST", 9*3600)
	day = task.NewDay(2015, time.December, 23)
)

func newStorage(t *testing.T) *sqlite.Storage {
	t.Helper()

	ctx := context.Background()
	storage, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	require.NoError(t, storage.Migrate(ctx))
	return storage
}

func newTask(d task.Day, order int, name string) *task.Task {
	return &task.Task{
		ID:          uuid.New(),
		Date:        time.Date(d.Year(), d.Month(), d.DayOfMonth(), 9, 0, 0, 0, jst),
		Day:         d,
		OrderOfDate: order,
		Name:        name,
	}
}

func TestStorage_HealthCheck(t *testing.T) {
	storage := newStorage(t)
	assert.NoError(t, storage.HealthCheck(context.Background()))
}

func TestStorage_MigrateTwice(t *testing.T) {
	storage := newStorage(t)
	assert.NoError(t, storage.Migrate(context.Background()))
}

func TestStorage_InMemory(t *testing.T) {
	ctx := context.Background()
	storage, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	defer storage.Close()

	require.NoError(t, storage.Migrate(ctx))
	require.NoError(t, storage.Save(ctx, newTask(day, 0, "in memory")))

	count, err := storage.CountByDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorage_SaveAndGetByID(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	taskToSave := newTask(day, 0, "SQLite Task")
	taskToSave.EstimatedTime = 45
	taskToSave.EstimatedStartTime = task.SomeTime(time.Date(2015, 12, 23, 14, 27, 0, 0, jst))

	require.NoError(t, storage.Save(ctx, taskToSave))
	assert.False(t, taskToSave.CreatedAt.IsZero())

	got, err := storage.GetByID(ctx, taskToSave.ID)
	require.NoError(t, err)

	assert.Equal(t, taskToSave.ID, got.ID)
	assert.Equal(t, day, got.Day)
	assert.Equal(t, "SQLite Task", got.Name)
	assert.Equal(t, 45, got.EstimatedTime)
	assert.True(t, taskToSave.Date.Equal(got.Date))
	assert.True(t, taskToSave.CreatedAt.Equal(got.CreatedAt))
	require.True(t, got.EstimatedStartTime.Valid)
	assert.True(t, taskToSave.EstimatedStartTime.Time.Equal(got.EstimatedStartTime.Time))
	assert.False(t, got.StartTime.Valid)
	assert.False(t, got.EndTime.Valid)
}

func TestStorage_GetByID_NotFound(t *testing.T) {
	storage := newStorage(t)

	_, err := storage.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStorage_OrderConflict(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	require.NoError(t, storage.Save(ctx, newTask(day, 0, "first")))

	err := storage.Save(ctx, newTask(day, 0, "second"))
	assert.ErrorIs(t, err, repository.ErrOrderConflict)

	assert.NoError(t, storage.Save(ctx, newTask(day.Next(), 0, "other day")))
}

func TestStorage_DuplicateIDIsNotOrderConflict(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	first := newTask(day, 0, "first")
	require.NoError(t, storage.Save(ctx, first))

	dup := newTask(day, 1, "duplicate id")
	dup.ID = first.ID
	err := storage.Save(ctx, dup)
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrOrderConflict)
}

func TestStorage_FindByDayAndCount(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	require.NoError(t, storage.Save(ctx, newTask(day, 1, "second")))
	require.NoError(t, storage.Save(ctx, newTask(day, 0, "first")))
	require.NoError(t, storage.Save(ctx, newTask(day, 2, "third")))
	require.NoError(t, storage.Save(ctx, newTask(day.Next(), 0, "tomorrow")))

	tasks, err := storage.FindByDay(ctx, day)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for i, name := range []string{"first", "second", "third"} {
		assert.Equal(t, name, tasks[i].Name)
		assert.Equal(t, i, tasks[i].OrderOfDate)
	}

	count, err := storage.CountByDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	empty, err := storage.FindByDay(ctx, task.NewDay(2016, time.January, 1))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStorage_FindAllKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	for i := 0; i < 4; i++ {
		require.NoError(t, storage.Save(ctx, newTask(task.NewDay(2015, time.December, 28-i), 0, fmt.Sprintf("task %d", i))))
	}

	all, err := storage.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, got := range all {
		assert.Equal(t, fmt.Sprintf("task %d", i), got.Name)
	}
}

func TestStorage_DeleteAll(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	require.NoError(t, storage.Save(ctx, newTask(day, 0, "first")))
	require.NoError(t, storage.DeleteAll(ctx))

	all, err := storage.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStorage_Down(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	require.NoError(t, storage.Down(ctx))

	_, err := storage.FindAll(ctx)
	assert.Error(t, err)
}
