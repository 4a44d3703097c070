package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/hibiken/asynq"

	"github.com/alquiler-vehiculos/sucursales/cmd/georef/cli"
	"github.com/alquiler-vehiculos/sucursales/internal/app"
	"github.com/alquiler-vehiculos/sucursales/internal/catalog"
	"github.com/alquiler-vehiculos/sucursales/internal/georef"
	"github.com/alquiler-vehiculos/sucursales/internal/platform/cache"
	"github.com/alquiler-vehiculos/sucursales/internal/platform/db"
	"github.com/alquiler-vehiculos/sucursales/jobs"
)

func main() {
	var args cli.Args
	parser := arg.MustParse(&args)
	if parser.Subcommand() == nil {
		parser.Fail("missing subcommand")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, args)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args cli.Args) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)
	out := cli.Output{JSON: args.JSON}
	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	switch {
	case args.Load != nil:
		if args.Load.Migrate {
			if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
				logger.Error("migrate", slog.Any("error", err))
				return 1
			}
		}
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			return 1
		}
		defer pool.Close()

		source := georef.NewClient(cfg.GeorefBaseURL, cfg.GeorefTimeout, georef.WithMaxDepartments(catalog.LoaderMaxDepartments))
		loader := catalog.NewLoader(source, catalog.NewRepository(pool), logger, cfg.GeorefLoadConcurrency)
		return (&cli.GeorefCLI{Loader: loader}).LoadCommand(ctx, *args.Load, out)

	case args.Enqueue != nil:
		client, err := jobs.NewClient(redisOpts.QueueOpt())
		if err != nil {
			logger.Error("init queue client", slog.Any("error", err))
			return 1
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("queue client close", slog.Any("error", err))
			}
		}()
		return (&cli.GeorefCLI{Enqueuer: client}).EnqueueCommand(ctx, *args.Enqueue, out)

	case args.Queue != nil:
		inspector := asynq.NewInspector(redisOpts.QueueOpt())
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		return (&cli.GeorefCLI{Inspector: inspector}).QueueCommand(ctx, out)
	}
	return 2
}
