package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"taskFocus/internal/config"
	"taskFocus/internal/handlers"
	"taskFocus/internal/logger"
	"taskFocus/internal/metrics"
	"taskFocus/internal/middleware"
	"taskFocus/internal/repository/task/inmemory"
	"taskFocus/internal/repository/task/postgres"
	"taskFocus/internal/repository/task/sqlite"
	"taskFocus/internal/service"
	"taskFocus/internal/worker"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository service.TaskRepository
	service    handlers.Service
	metrics    *metrics.Metrics
	worker     *worker.DayStatsWorker
	shutdowns  []func(context.Context) error // выполняются в обратном порядке
	closeOnce  sync.Once
	closeErr   error
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(context.Context) error, 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(loggerOptions(a.config.Logging)); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func(context.Context) error {
		logger.Info("App: Завершение работы логгирования")
		logger.Sync()
		return nil
	})

	loc, err := a.config.Location()
	if err != nil {
		return err
	}

	a.metrics = metrics.New()

	repo, repoType, err := a.initRepository(ctx)
	if err != nil {
		return fmt.Errorf("инициализация хранилища: %w", err)
	}
	a.repository = repo

	taskService := service.NewTaskService(repo, repoType,
		service.WithLocation(loc),
		service.WithOrderRetries(a.config.Tasks.OrderRetries, a.config.Tasks.RetryInterval),
		service.WithMetrics(a.metrics),
	)
	a.service = &taskService

	if a.config.Worker.Enabled {
		interval := a.config.Worker.Interval
		// день считается в том же поясе, что и при создании задач
		a.worker = worker.NewDayStatsWorker(repo, a.metrics, &interval, taskService.Location())
	}

	a.router = a.buildRouter()
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	logger.Info("App: Приложение инициализировано",
		zap.String("repository", string(repoType)),
		zap.String("time_zone", loc.String()),
		zap.String("addr", a.server.Addr))
	return nil
}

func loggerOptions(cfg config.LoggingConfig) logger.Options {
	opts := logger.Options{
		Development: cfg.Development,
		Level:       cfg.Level,
	}
	if cfg.File != nil {
		opts.File = &logger.FileOptions{
			Path:       cfg.File.Path,
			MaxSizeMB:  cfg.File.MaxSizeMB,
			MaxAgeDays: cfg.File.MaxAgeDays,
			MaxBackups: cfg.File.MaxBackups,
			Compress:   cfg.File.Compress,
		}
	}
	return opts
}

func (a *App) initRepository(ctx context.Context) (service.TaskRepository, service.RepoType, error) {
	switch service.RepoType(a.config.Repository.Type) {
	case service.DBType:
		db := a.config.Database
		storage, err := postgres.New(ctx, db.URL, postgres.PoolConfig{
			MaxConns:        int32(db.MaxConnections),
			MinConns:        int32(db.MinConnections),
			MaxConnIdleTime: db.IdleTimeout,
		})
		if err != nil {
			return nil, "", err
		}
		a.shutdowns = append(a.shutdowns, func(context.Context) error {
			storage.Close()
			return nil
		})

		if db.Migrate {
			if err := storage.Migrate(ctx); err != nil {
				return nil, "", err
			}
		}
		return storage, service.DBType, nil

	case service.SQLiteType:
		storage, err := sqlite.New(ctx, a.config.SQLite.Path)
		if err != nil {
			return nil, "", err
		}
		a.shutdowns = append(a.shutdowns, func(context.Context) error {
			return storage.Close()
		})

		if err := storage.Migrate(ctx); err != nil {
			return nil, "", err
		}
		return storage, service.SQLiteType, nil

	case service.InMemoryType:
		return inmemory.NewTaskStorage(), service.InMemoryType, nil

	default:
		return nil, "", fmt.Errorf("неизвестный тип хранилища %q", a.config.Repository.Type)
	}
}

func (a *App) buildRouter() *chi.Mux {
	taskHandler := handlers.NewTaskHandler(a.service)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(a.metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIdHeader},
		ExposedHeaders: []string{middleware.RequestIdHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimit(a.config.Server.RateLimit))
	if a.config.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(a.config.Server.RequestTimeout))
	}

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", taskHandler.ListTasks)       // GET /tasks?date=YYYY-MM-DD
		r.Post("/", taskHandler.PostTask)       // POST /tasks
		r.Get("/{id}", taskHandler.GetTaskByID) // GET /tasks/{id}
	})

	r.Get("/health", taskHandler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	return r
}

func (a *App) Router() http.Handler {
	return a.router
}

// Run блокируется до отмены ctx или падения сервера, затем завершает приложение
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: HTTP сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	if a.worker != nil {
		g.Go(func() error {
			a.worker.Start(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("App: Получен сигнал завершения")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) shutdownTimeout() time.Duration {
	if a.config.Server.ShutdownTimeout > 0 {
		return a.config.Server.ShutdownTimeout
	}
	return 15 * time.Second
}

// Shutdown останавливает сервер и освобождает ресурсы; повторный вызов возвращает тот же результат
func (a *App) Shutdown(ctx context.Context) error {
	a.closeOnce.Do(func() {
		var err error
		if a.server != nil {
			if serr := a.server.Shutdown(ctx); serr != nil {
				err = multierr.Append(err, fmt.Errorf("остановка http сервера: %w", serr))
			}
		}

		for i := len(a.shutdowns) - 1; i >= 0; i-- {
			err = multierr.Append(err, a.shutdowns[i](ctx))
		}

		if err != nil {
			logger.Error("App: Ошибки при завершении", err)
		} else {
			logger.Info("App: Приложение остановлено")
		}
		a.closeErr = err
	})
	return a.closeErr
}
