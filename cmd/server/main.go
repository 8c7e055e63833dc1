package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gyaneshwarpardhi/pacsim/internal/api"
	"github.com/gyaneshwarpardhi/pacsim/internal/budget"
	"github.com/gyaneshwarpardhi/pacsim/internal/config"
	"github.com/gyaneshwarpardhi/pacsim/internal/engine"
	"github.com/gyaneshwarpardhi/pacsim/internal/generator"
	"github.com/gyaneshwarpardhi/pacsim/internal/publish"
	"github.com/gyaneshwarpardhi/pacsim/internal/reference"
	"github.com/gyaneshwarpardhi/pacsim/internal/store"
	"github.com/gyaneshwarpardhi/pacsim/internal/store/memory"
	"github.com/gyaneshwarpardhi/pacsim/internal/store/redisstore"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/pacsim.yaml", "Path to YAML config")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Reference data ───────────────────────────────────────────────────────
	ref, err := loadReference(cfg)
	if err != nil {
		slog.Error("failed to load reference data", "err", err)
		os.Exit(1)
	}
	slog.Info("reference data loaded",
		"cardholders", len(ref.Cardholders),
		"active", len(reference.ActiveCardholders(ref.Cardholders)),
		"doors", len(ref.Doors),
		"controllers", len(ref.Controllers),
	)

	// ── Dataset store ────────────────────────────────────────────────────────
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open dataset store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	// ── Kafka publisher (optional) ───────────────────────────────────────────
	var pub *publish.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err = publish.Connect(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			slog.Error("failed to connect to kafka", "err", err)
			os.Exit(1)
		}
		defer pub.Close()
		slog.Info("kafka publishing enabled", "brokers", cfg.Kafka.Brokers, "topic", pub.Topic())
	}

	// ── Generator + engine ───────────────────────────────────────────────────
	gen, err := buildGenerator(cfg, st)
	if err != nil {
		slog.Error("failed to build generator", "err", err)
		os.Exit(1)
	}

	engCtx, cancelEngine := context.WithCancel(context.Background())
	defer cancelEngine()
	eng := engine.New(engCtx, gen, ref, st, pub, cfg.Engine)

	// ── Hot-reload watcher ───────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		if err := config.Validate(newCfg); err != nil {
			slog.Warn("hot-reload skipped: config invalid", "err", err)
			return
		}
		newGen, err := buildGenerator(newCfg, st)
		if err != nil {
			slog.Warn("hot-reload skipped: generator build failed", "err", err)
			return
		}
		eng.SwapGenerator(newGen)
		if newRef, err := loadReference(newCfg); err != nil {
			slog.Warn("reference reload failed; keeping previous data", "err", err)
		} else {
			eng.SwapReference(newRef)
		}
		slog.Info("generator hot-reloaded", "version", newCfg.Version, "timezone", newCfg.Generator.Timezone)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.New(eng, loader),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(cfg.Engine.TimeoutMs)*time.Millisecond + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ── Graceful shutdown ────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down…")
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutCancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
	}
	cancelEngine() // stop job workers
	eng.Shutdown()
	slog.Info("goodbye")
}

func loadReference(cfg *config.Config) (*reference.Data, error) {
	if cfg.Reference.Path == "" {
		return reference.Default()
	}
	return reference.Load(cfg.Reference.Path)
}

func buildGenerator(cfg *config.Config, probe budget.UsageProbe) (*generator.Generator, error) {
	gc, err := cfg.GeneratorConfig()
	if err != nil {
		return nil, err
	}
	return generator.New(gc, budget.NewValidator(cfg.BudgetLimits(), probe)), nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.Storage.RedisURL == "" {
		slog.Info("dataset store: in-memory")
		return memory.New(), func() {}, nil
	}
	opts := []redisstore.Option{redisstore.WithTTL(cfg.StorageTTL())}
	if cfg.Storage.Key != "" {
		opts = append(opts, redisstore.WithKey(cfg.Storage.Key))
	}
	rs, err := redisstore.Connect(ctx, cfg.Storage.RedisURL, opts...)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("dataset store: redis", "key", cfg.Storage.Key)
	return rs, func() { _ = rs.Close() }, nil
}
