package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/sagely-dev/sagely/internal/core"
	logx "github.com/sagely-dev/sagely/pkg/logger"
	pkgredis "github.com/sagely-dev/sagely/pkg/redis"
)

// AppConfig holds the process-level settings, sourced from environment
// variables (loaded from .env for local runs). Assistant options live in
// the settings manager and its config.json.
type AppConfig struct {
	Environment string `envconfig:"SAGELY_ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"SAGELY_LOG_LEVEL"`
	Home        string `envconfig:"SAGELY_HOME"`

	// Used when cache_backend is "redis".
	Redis pkgredis.Config `envconfig:"SAGELY_REDIS"`
}

func main() {
	// .env is optional
	_ = godotenv.Load(".env")

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to process environment config: %v\n", err)
		os.Exit(1)
	}

	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Level:       cfg.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&cfg, os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
