package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskFocus/internal/app"
	"taskFocus/internal/config"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("taskfocus", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "config.yml", "путь к config.yml, пустое значение - только значения по умолчанию")
	config.RegisterFlags(flags)
	_ = flags.Parse(args)

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		return fmt.Errorf("загрузка конфигурации: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg)
	if err := application.Init(ctx); err != nil {
		_ = application.Shutdown(context.Background())
		return fmt.Errorf("инициализация приложения: %w", err)
	}

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("приложение завершилось с ошибкой: %w", err)
	}
	return nil
}
