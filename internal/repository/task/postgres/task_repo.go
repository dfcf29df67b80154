package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"taskFocus/internal/logger"
	"taskFocus/internal/models/task"
	repo "taskFocus/internal/repository"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	uniqueViolation    = "23505"
	dayOrderConstraint = "tasks_day_order_key"
	slowQueryThreshold = 100 * time.Millisecond
	selectTaskColumns  = `id, date, day, order_of_date, name, estimated_time, estimated_start_time, start_time, end_time, created_at`
)

type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        10,
		MinConns:        2,
		MaxConnIdleTime: 5 * time.Minute,
	}
}

type Storage struct {
	pool       *pgxpool.Pool
	connString string
}

func New(ctx context.Context, connString string, poolCfg PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		config.MinConns = poolCfg.MinConns
	}
	if poolCfg.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = poolCfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool, connString: connString}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

// Save добавляет задачу. Нарушение уникальности (day, order_of_date)
// превращается в repo.ErrOrderConflict, чтобы сервис мог пересчитать номер.
func (s *Storage) Save(ctx context.Context, taskToSave *task.Task) error {
	start := time.Now()

	query := `INSERT INTO tasks
				(id, date, day, order_of_date, name, estimated_time, estimated_start_time, start_time, end_time)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		taskToSave.ID,
		taskToSave.Date,
		taskToSave.Day.Time(),
		taskToSave.OrderOfDate,
		taskToSave.Name,
		taskToSave.EstimatedTime,
		taskToSave.EstimatedStartTime.Ptr(),
		taskToSave.StartTime.Ptr(),
		taskToSave.EndTime.Ptr(),
	).Scan(&taskToSave.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == dayOrderConstraint {
			logger.Warn("Repository: Порядковый номер занят",
				zap.String("day", taskToSave.Day.String()),
				zap.Int("order_of_date", taskToSave.OrderOfDate))
			return repo.ErrOrderConflict
		}
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	warnIfSlow(start, slowQueryThreshold)
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + selectTaskColumns + `
				FROM tasks
				WHERE id = $1`

	found, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnIfSlow(start, slowQueryThreshold)
	return found, nil
}

// FindAll возвращает задачи в порядке вставки: seq растёт с каждым INSERT,
// created_at может совпасть у нескольких строк
func (s *Storage) FindAll(ctx context.Context) ([]*task.Task, error) {
	query := `SELECT ` + selectTaskColumns + `
				FROM tasks
				ORDER BY seq`

	return s.queryTasks(ctx, query)
}

func (s *Storage) FindByDay(ctx context.Context, day task.Day) ([]*task.Task, error) {
	query := `SELECT ` + selectTaskColumns + `
				FROM tasks
				WHERE day = $1
				ORDER BY order_of_date`

	return s.queryTasks(ctx, query, day.Time())
}

func (s *Storage) CountByDay(ctx context.Context, day task.Day) (int, error) {
	start := time.Now()

	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE day = $1`, day.Time()).Scan(&count)
	if err != nil {
		logger.Error("Repository: Не удалось посчитать задачи", err, zap.Duration("ms", time.Since(start)))
		return 0, fmt.Errorf("подсчёт задач: %w", err)
	}

	warnIfSlow(start, slowQueryThreshold)
	return count, nil
}

// DeleteAll нужен только для подготовки тестов
func (s *Storage) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tasks`); err != nil {
		logger.Error("Repository: Не удалось очистить таблицу", err)
		return fmt.Errorf("очистка задач: %w", err)
	}
	return nil
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx, query, args...)
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

	warnIfSlow(start, slowQueryThreshold+time.Millisecond*time.Duration(len(tasks)))
	return tasks, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t                                  task.Task
		day                                time.Time
		estimatedStart, startTime, endTime *time.Time
	)

	err := row.Scan(
		&t.ID,
		&t.Date,
		&day,
		&t.OrderOfDate,
		&t.Name,
		&t.EstimatedTime,
		&estimatedStart,
		&startTime,
		&endTime,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Day = task.DayFromTime(day)
	t.EstimatedStartTime = task.NullTimeFromPtr(estimatedStart)
	t.StartTime = task.NullTimeFromPtr(startTime)
	t.EndTime = task.NullTimeFromPtr(endTime)
	return &t, nil
}

func warnIfSlow(start time.Time, threshold time.Duration) {
	if elapsed := time.Since(start); elapsed > threshold {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", elapsed))
	}
}

// Migrate применяет встроенные миграции. golang-migrate работает через
// database/sql, поэтому для миграций открывается отдельное соединение lib/pq.
func (s *Storage) Migrate(ctx context.Context) error {
	logger.Info("Repository: Применение миграций")

	m, err := s.migrator(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка применения миграций", err)
		return fmt.Errorf("применение миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Repository: Миграции применены", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func (s *Storage) Down(ctx context.Context) error {
	logger.Info("Repository: Откат миграций")

	m, err := s.migrator(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка отката миграций", err)
		return fmt.Errorf("откат миграций: %w", err)
	}

	logger.Info("Repository: Миграции откачены")
	return nil
}

func (s *Storage) migrator(ctx context.Context) (*migrate.Migrate, error) {
	db, err := sql.Open("postgres", s.connString)
	if err != nil {
		return nil, fmt.Errorf("открытие соединения для миграций: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("проверка соединения для миграций: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("драйвер миграций: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("источник миграций: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("инициализация миграций: %w", err)
	}
	return m, nil
}
