package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "TASKFOCUS"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Tasks      TasksConfig      `yaml:"tasks"`
	Worker     WorkerConfig     `yaml:"worker"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimit       int           `yaml:"rate_limit"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	Migrate        bool          `yaml:"migrate"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Development bool        `yaml:"development"`
	Level       string      `yaml:"level"`
	File        *FileConfig `yaml:"file"`
}

type FileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

type RepositoryConfig struct {
	Type string `yaml:"type"` // "postgres", "sqlite" или "inmemory"
}

// TasksConfig - параметры предметной области
type TasksConfig struct {
	TimeZone      string        `yaml:"time_zone"`
	OrderRetries  uint64        `yaml:"order_retries"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

type WorkerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       100,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
			Migrate:        true,
		},
		SQLite: SQLiteConfig{
			Path: "taskfocus.db",
		},
		Logging: LoggingConfig{
			Development: false,
			Level:       "info",
		},
		Repository: RepositoryConfig{
			Type: "inmemory",
		},
		Tasks: TasksConfig{
			TimeZone:      "Local",
			OrderRetries:  5,
			RetryInterval: 10 * time.Millisecond,
		},
		Worker: WorkerConfig{
			Enabled:  true,
			Interval: time.Minute,
		},
	}
}

// Load читает YAML поверх значений по умолчанию, затем применяет переменные
// окружения TASKFOCUS_* и флаги командной строки. Пустой path пропускает файл.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyOverrides(flags); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("неверная конфигурация: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("не могу открыть %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("ошибка парсинга %s: %w", path, err)
	}
	return nil
}

// override связывает ключ вида section.key с полем Config. Один и тот же ключ
// читается из TASKFOCUS_SECTION_KEY и из флага --section.key.
type override struct {
	key      string
	usage    string
	register func(fs *pflag.FlagSet, key, usage string)
	apply    func(v *viper.Viper, key string, c *Config)
}

func stringKey(key, usage string, field func(*Config) *string) override {
	return override{
		key:      key,
		usage:    usage,
		register: func(fs *pflag.FlagSet, key, usage string) { fs.String(key, "", usage) },
		apply:    func(v *viper.Viper, key string, c *Config) { *field(c) = v.GetString(key) },
	}
}

func intKey(key, usage string, field func(*Config) *int) override {
	return override{
		key:      key,
		usage:    usage,
		register: func(fs *pflag.FlagSet, key, usage string) { fs.Int(key, 0, usage) },
		apply:    func(v *viper.Viper, key string, c *Config) { *field(c) = v.GetInt(key) },
	}
}

func uintKey(key, usage string, field func(*Config) *uint64) override {
	return override{
		key:      key,
		usage:    usage,
		register: func(fs *pflag.FlagSet, key, usage string) { fs.Uint64(key, 0, usage) },
		apply:    func(v *viper.Viper, key string, c *Config) { *field(c) = v.GetUint64(key) },
	}
}

func boolKey(key, usage string, field func(*Config) *bool) override {
	return override{
		key:      key,
		usage:    usage,
		register: func(fs *pflag.FlagSet, key, usage string) { fs.Bool(key, false, usage) },
		apply:    func(v *viper.Viper, key string, c *Config) { *field(c) = v.GetBool(key) },
	}
}

func durationKey(key, usage string, field func(*Config) *time.Duration) override {
	return override{
		key:      key,
		usage:    usage,
		register: func(fs *pflag.FlagSet, key, usage string) { fs.Duration(key, 0, usage) },
		apply:    func(v *viper.Viper, key string, c *Config) { *field(c) = v.GetDuration(key) },
	}
}

// listKey принимает значения через запятую и в окружении, и во флаге
func listKey(key, usage string, field func(*Config) *[]string) override {
	return override{
		key:      key,
		usage:    usage,
		register: func(fs *pflag.FlagSet, key, usage string) { fs.StringSlice(key, nil, usage) },
		apply:    func(v *viper.Viper, key string, c *Config) { *field(c) = splitList(v.GetStringSlice(key)) },
	}
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// fileConfig создаёт секцию logging.file, если её не было в файле
func (c *Config) fileConfig() *FileConfig {
	if c.Logging.File == nil {
		c.Logging.File = &FileConfig{}
	}
	return c.Logging.File
}

var overrides = []override{
	stringKey("server.port", "порт HTTP сервера", func(c *Config) *string { return &c.Server.Port }),
	stringKey("server.host", "адрес HTTP сервера", func(c *Config) *string { return &c.Server.Host }),
	durationKey("server.read_timeout", "таймаут чтения запроса", func(c *Config) *time.Duration { return &c.Server.ReadTimeout }),
	durationKey("server.write_timeout", "таймаут записи ответа", func(c *Config) *time.Duration { return &c.Server.WriteTimeout }),
	durationKey("server.request_timeout", "таймаут обработки запроса", func(c *Config) *time.Duration { return &c.Server.RequestTimeout }),
	durationKey("server.shutdown_timeout", "таймаут остановки сервера", func(c *Config) *time.Duration { return &c.Server.ShutdownTimeout }),
	intKey("server.rate_limit", "запросов в минуту с одного IP, 0 отключает лимит", func(c *Config) *int { return &c.Server.RateLimit }),
	listKey("server.cors_origins", "разрешённые CORS источники через запятую", func(c *Config) *[]string { return &c.Server.CORSOrigins }),

	stringKey("database.url", "строка подключения PostgreSQL", func(c *Config) *string { return &c.Database.URL }),
	intKey("database.max_connections", "максимум соединений пула", func(c *Config) *int { return &c.Database.MaxConnections }),
	intKey("database.min_connections", "минимум соединений пула", func(c *Config) *int { return &c.Database.MinConnections }),
	durationKey("database.idle_timeout", "время простоя соединения", func(c *Config) *time.Duration { return &c.Database.IdleTimeout }),
	boolKey("database.migrate", "применять миграции при старте", func(c *Config) *bool { return &c.Database.Migrate }),

	stringKey("sqlite.path", "путь к файлу SQLite", func(c *Config) *string { return &c.SQLite.Path }),

	boolKey("logging.development", "режим разработки для логов", func(c *Config) *bool { return &c.Logging.Development }),
	stringKey("logging.level", "уровень логирования", func(c *Config) *string { return &c.Logging.Level }),
	stringKey("logging.file.path", "файл логов", func(c *Config) *string { return &c.fileConfig().Path }),
	intKey("logging.file.max_size_mb", "размер файла логов до ротации, МБ", func(c *Config) *int { return &c.fileConfig().MaxSizeMB }),
	intKey("logging.file.max_age_days", "срок хранения файлов логов, дни", func(c *Config) *int { return &c.fileConfig().MaxAgeDays }),
	intKey("logging.file.max_backups", "число старых файлов логов", func(c *Config) *int { return &c.fileConfig().MaxBackups }),
	boolKey("logging.file.compress", "сжимать старые файлы логов", func(c *Config) *bool { return &c.fileConfig().Compress }),

	stringKey("repository.type", "хранилище: postgres, sqlite или inmemory", func(c *Config) *string { return &c.Repository.Type }),

	stringKey("tasks.time_zone", "часовой пояс календарных дней, например Asia/Tokyo", func(c *Config) *string { return &c.Tasks.TimeZone }),
	uintKey("tasks.order_retries", "повторы при конфликте порядкового номера", func(c *Config) *uint64 { return &c.Tasks.OrderRetries }),
	durationKey("tasks.retry_interval", "начальная пауза между повторами", func(c *Config) *time.Duration { return &c.Tasks.RetryInterval }),

	boolKey("worker.enabled", "включить сбор статистики дня", func(c *Config) *bool { return &c.Worker.Enabled }),
	durationKey("worker.interval", "период сбора статистики дня", func(c *Config) *time.Duration { return &c.Worker.Interval }),
}

// Keys перечисляет все ключи, которые можно переопределить окружением или флагом
func Keys() []string {
	keys := make([]string, 0, len(overrides))
	for _, o := range overrides {
		keys = append(keys, o.key)
	}
	return keys
}

// RegisterFlags объявляет флаг --section.key для каждого ключа конфигурации
func RegisterFlags(fs *pflag.FlagSet) {
	for _, o := range overrides {
		o.register(fs, o.key, o.usage)
	}
}

// applyOverrides меняет только те ключи, что явно заданы окружением или флагом
func (c *Config) applyOverrides(flags *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("привязка флагов: %w", err)
		}
	}

	for _, o := range overrides {
		if v.IsSet(o.key) {
			o.apply(v, o.key, c)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	var err error

	if c.Server.Port == "" {
		err = multierr.Append(err, errors.New("server.port не задан"))
	}

	switch c.Repository.Type {
	case "inmemory":
	case "postgres":
		if c.Database.URL == "" {
			err = multierr.Append(err, errors.New("database.url обязателен для postgres"))
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			err = multierr.Append(err, errors.New("sqlite.path обязателен для sqlite"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("неизвестный тип хранилища %q", c.Repository.Type))
	}

	if _, locErr := c.Location(); locErr != nil {
		err = multierr.Append(err, locErr)
	}

	if c.Worker.Enabled && c.Worker.Interval <= 0 {
		err = multierr.Append(err, errors.New("worker.interval должен быть больше нуля"))
	}

	return err
}

// Location возвращает часовой пояс, в котором сравниваются календарные дни
func (c *Config) Location() (*time.Location, error) {
	if c.Tasks.TimeZone == "" || c.Tasks.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Tasks.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("tasks.time_zone %q: %w", c.Tasks.TimeZone, err)
	}
	return loc, nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
