package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskFocus/internal/logger"
	"taskFocus/internal/models/task"
	repo "taskFocus/internal/repository"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"go.uber.org/zap"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	timeLayout         = time.RFC3339Nano
	slowQueryThreshold = 50 * time.Millisecond
	selectTaskColumns  = `id, date, day, order_of_date, name, estimated_time, estimated_start_time, start_time, end_time, created_at`
)

// Storage хранит задачи в файле SQLite. Время хранится строками RFC3339 в UTC,
// день - строкой YYYY-MM-DD.
type Storage struct {
	db   *sql.DB
	path string
}

// New открывает базу по пути path, ":memory:" держит всё в памяти процесса.
func New(ctx context.Context, path string) (*Storage, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("Repository: Ошибка открытия SQLite", err, zap.String("path", path))
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}
	// одно соединение: ":memory:" живёт только в нём, а запись всё равно сериализуется
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное открытие SQLite", zap.String("path", path))
	return &Storage{db: db, path: path}, nil
}

func (s *Storage) Close() error {
	logger.Info("Repository: Закрытие SQLite")
	return s.db.Close()
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Save(ctx context.Context, taskToSave *task.Task) error {
	start := time.Now()
	createdAt := time.Now().UTC()

	query := `INSERT INTO tasks
				(id, date, day, order_of_date, name, estimated_time, estimated_start_time, start_time, end_time, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		taskToSave.ID.String(),
		formatTime(taskToSave.Date),
		taskToSave.Day.String(),
		taskToSave.OrderOfDate,
		taskToSave.Name,
		taskToSave.EstimatedTime,
		formatNullTime(taskToSave.EstimatedStartTime),
		formatNullTime(taskToSave.StartTime),
		formatNullTime(taskToSave.EndTime),
		formatTime(createdAt),
	)
	if err != nil {
		if isOrderConflict(err) {
			logger.Warn("Repository: Порядковый номер занят",
				zap.String("day", taskToSave.Day.String()),
				zap.Int("order_of_date", taskToSave.OrderOfDate))
			return repo.ErrOrderConflict
		}
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	taskToSave.CreatedAt = createdAt
	warnIfSlow(start)
	return nil
}

func isOrderConflict(err error) bool {
	var sqliteErr *sqlitedrv.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	return strings.Contains(sqliteErr.Error(), "order_of_date")
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + selectTaskColumns + ` FROM tasks WHERE id = ?`

	found, err := scanTask(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnIfSlow(start)
	return found, nil
}

// FindAll возвращает задачи в порядке добавления
func (s *Storage) FindAll(ctx context.Context) ([]*task.Task, error) {
	return s.queryTasks(ctx, `SELECT `+selectTaskColumns+` FROM tasks ORDER BY rowid`)
}

func (s *Storage) FindByDay(ctx context.Context, day task.Day) ([]*task.Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+selectTaskColumns+` FROM tasks WHERE day = ? ORDER BY order_of_date`,
		day.String())
}

func (s *Storage) CountByDay(ctx context.Context, day task.Day) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE day = ?`, day.String()).Scan(&count)
	if err != nil {
		logger.Error("Repository: Не удалось посчитать задачи", err)
		return 0, fmt.Errorf("подсчёт задач: %w", err)
	}
	return count, nil
}

// DeleteAll нужен только для подготовки тестов
func (s *Storage) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		logger.Error("Repository: Не удалось очистить таблицу", err)
		return fmt.Errorf("очистка задач: %w", err)
	}
	return nil
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	start := time.Now()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования задачи", err)
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnIfSlow(start)
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t                                  task.Task
		id, date, day, createdAt           string
		estimatedStart, startTime, endTime sql.NullString
	)

	err := row.Scan(&id, &date, &day, &t.OrderOfDate, &t.Name, &t.EstimatedTime,
		&estimatedStart, &startTime, &endTime, &createdAt)
	if err != nil {
		return nil, err
	}

	if t.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("id %q: %w", id, err)
	}
	if t.Date, err = time.Parse(timeLayout, date); err != nil {
		return nil, fmt.Errorf("date %q: %w", date, err)
	}
	if t.Day, err = task.ParseDay(day); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("created_at %q: %w", createdAt, err)
	}
	if t.EstimatedStartTime, err = parseNullTime(estimatedStart); err != nil {
		return nil, err
	}
	if t.StartTime, err = parseNullTime(startTime); err != nil {
		return nil, err
	}
	if t.EndTime, err = parseNullTime(endTime); err != nil {
		return nil, err
	}
	return &t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(nt task.NullTime) sql.NullString {
	if v, ok := nt.Get(); ok {
		return sql.NullString{String: formatTime(v), Valid: true}
	}
	return sql.NullString{}
}

func parseNullTime(ns sql.NullString) (task.NullTime, error) {
	if !ns.Valid {
		return task.NullTime{}, nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return task.NullTime{}, fmt.Errorf("время %q: %w", ns.String, err)
	}
	return task.SomeTime(t), nil
}

func warnIfSlow(start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQueryThreshold {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", elapsed))
	}
}

// Migrate применяет встроенные миграции на том же соединении.
// m.Close() не вызывается: он закрыл бы и общий *sql.DB.
func (s *Storage) Migrate(ctx context.Context) error {
	logger.Info("Repository: Применение миграций SQLite")

	m, err := s.migrator()
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка применения миграций", err)
		return fmt.Errorf("применение миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Repository: Миграции применены", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func (s *Storage) Down(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка отката миграций", err)
		return fmt.Errorf("откат миграций: %w", err)
	}
	logger.Info("Repository: Миграции откачены")
	return nil
}

func (s *Storage) migrator() (*migrate.Migrate, error) {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("драйвер миграций: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("источник миграций: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("инициализация миграций: %w", err)
	}
	return m, nil
}
