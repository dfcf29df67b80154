package worker

import (
	"context"
	"fmt"
	"time"

	"taskFocus/internal/logger"
	"taskFocus/internal/models/task"
	"taskFocus/internal/service"

	"go.uber.org/zap"
)

const defaultInterval = time.Minute

type DayStatsRecorder interface {
	SetDayStats(tasks int, estimatedMinutes int)
}

// DayStatsWorker периодически пересчитывает сводку по задачам текущего дня.
// Задачи только читаются.
type DayStatsWorker struct {
	repo     service.TaskRepository
	recorder DayStatsRecorder
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
}

func NewDayStatsWorker(repo service.TaskRepository, recorder DayStatsRecorder, interval *time.Duration, loc *time.Location) *DayStatsWorker {
	intervalToSet := defaultInterval
	if interval != nil && *interval > 0 {
		intervalToSet = *interval
	}
	if loc == nil {
		loc = time.Local
	}

	return &DayStatsWorker{
		repo:     repo,
		recorder: recorder,
		interval: intervalToSet,
		loc:      loc,
		now:      time.Now,
	}
}

// Start блокируется до отмены ctx. Первая проверка выполняется сразу.
func (w *DayStatsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Запуск сбора статистики по дню", zap.Duration("interval", w.interval))
	w.Check(ctx)

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Сбор статистики останавливается")
			return
		}
	}
}

func (w *DayStatsWorker) Check(ctx context.Context) {
	start := time.Now()
	day := task.DayOf(w.now(), w.loc)

	tasks, err := w.todayTasks(ctx, day)
	if err != nil {
		logger.Warn("Worker: Ошибка получения задач", zap.Error(err))
		return
	}

	estimated := 0
	for _, t := range tasks {
		estimated += t.EstimatedTime
	}
	w.recorder.SetDayStats(len(tasks), estimated)

	logger.Debug("Worker: Завершение сбора статистики",
		zap.String("day", day.String()),
		zap.Int("tasks", len(tasks)),
		zap.Int("estimated_minutes", estimated),
		zap.Duration("ms", time.Since(start)),
	)
}

func (w *DayStatsWorker) todayTasks(ctx context.Context, day task.Day) ([]*task.Task, error) {
	tasks, err := w.repo.FindByDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("получение задач за %s: %w", day, err)
	}
	return tasks, nil
}
