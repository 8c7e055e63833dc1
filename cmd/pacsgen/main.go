// Command pacsgen generates one synthetic PACS dataset and writes it as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gyaneshwarpardhi/pacsim/internal/budget"
	"github.com/gyaneshwarpardhi/pacsim/internal/config"
	"github.com/gyaneshwarpardhi/pacsim/internal/filter"
	"github.com/gyaneshwarpardhi/pacsim/internal/generator"
	"github.com/gyaneshwarpardhi/pacsim/internal/reference"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (defaults when empty)")
	refPath := flag.String("reference", "", "Path to reference data YAML (overrides config)")
	start := flag.String("start", "", "First day, YYYY-MM-DD")
	end := flag.String("end", "", "Last day, YYYY-MM-DD")
	count := flag.Int("count", 1000, "Target event count")
	out := flag.String("out", "", "Output file (stdout when empty)")
	expr := flag.String("filter", "", `Only write matching events, e.g. 'category == "alarm"'`)
	flag.Parse()

	// Logs go to stderr so stdout stays clean JSON.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(*cfgPath, *refPath, *start, *end, *count, *out, *expr); err != nil {
		slog.Error("generation failed", "err", err)
		os.Exit(1)
	}
}

func run(cfgPath, refPath, startDate, endDate string, count int, out, expr string) error {
	cfg := config.Default()
	if cfgPath != "" {
		loader, err := config.NewLoader(cfgPath)
		if err != nil {
			return err
		}
		cfg = loader.Config()
	}
	if refPath != "" {
		cfg.Reference.Path = refPath
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	var (
		ref *reference.Data
		err error
	)
	if cfg.Reference.Path == "" {
		ref, err = reference.Default()
	} else {
		ref, err = reference.Load(cfg.Reference.Path)
	}
	if err != nil {
		return err
	}

	gc, err := cfg.GeneratorConfig()
	if err != nil {
		return err
	}
	startDay, err := time.ParseInLocation(time.DateOnly, startDate, gc.Location)
	if err != nil {
		return fmt.Errorf("-start %q: %w", startDate, err)
	}
	endDay, err := time.ParseInLocation(time.DateOnly, endDate, gc.Location)
	if err != nil {
		return fmt.Errorf("-end %q: %w", endDate, err)
	}

	var flt *filter.Filter
	if expr != "" {
		if flt, err = filter.Compile(expr, gc.Location); err != nil {
			return err
		}
	}

	// Nothing is stored, so the quota only sees the new events.
	validator := budget.NewValidator(cfg.BudgetLimits(), nil)
	gen := generator.New(gc, validator)
	res, err := gen.Generate(context.Background(), generator.Request{
		StartDate:   startDay,
		EndDate:     endDay,
		TargetCount: count,
		Cardholders: ref.Cardholders,
		Doors:       ref.Doors,
		Controllers: ref.Controllers,
	})
	if err != nil {
		return err
	}

	events := res.Events
	if flt != nil {
		events = flt.Apply(events)
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return fmt.Errorf("write events: %w", err)
	}

	slog.Info("dataset written",
		"generated", len(res.Events),
		"written", len(events),
		"counts", res.Counts,
		"injected", res.Injected,
		"temporal_fallbacks", res.Fallbacks,
	)
	return nil
}
