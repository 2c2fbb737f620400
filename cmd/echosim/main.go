// Command echosim runs the opinion/segregation dynamics simulation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/talgya/echochamber/internal/analysis"
	"github.com/talgya/echochamber/internal/api"
	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/dynamics"
	"github.com/talgya/echochamber/internal/entropy"
	"github.com/talgya/echochamber/internal/graph"
	"github.com/talgya/echochamber/internal/persistence"
	"github.com/talgya/echochamber/internal/runner"
)

func main() {
	cfg := config.Default()

	flag.IntVar(&cfg.People, "people", cfg.People, "number of people")
	flag.IntVar(&cfg.Groups, "groups", cfg.Groups, "number of groups")
	flag.Float64Var(&cfg.Lambda, "lambda", cfg.Lambda, "connection intensity")
	flag.Float64Var(&cfg.C, "c", cfg.C, "edge-creation/relocation rate")
	flag.Float64Var(&cfg.Gamma, "gamma", cfg.Gamma, "voter influence scale")
	flag.Float64Var(&cfg.GSteepness, "steepness", cfg.GSteepness, "homophily sharpness")
	flag.Float64Var(&cfg.InitialOpinionSplit, "split", cfg.InitialOpinionSplit, "initial +1 opinion probability")
	weights := flag.String("weights", string(cfg.GroupWeights), "group weight mode: uniform, bounded, correlated")
	model := flag.String("model", string(cfg.Model), "model type")
	flag.Float64Var(&cfg.ConvergenceThreshold, "threshold", cfg.ConvergenceThreshold, "convergence variance cutoff")
	flag.IntVar(&cfg.MaxTurns, "max-turns", cfg.MaxTurns, "turn limit")
	flag.IntVar(&cfg.StatisticsInterval, "stats-interval", cfg.StatisticsInterval, "progress-log cadence in turns")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")

	dbPath := flag.String("db", "data/echochamber.db", "SQLite path, empty disables persistence")
	port := flag.Int("port", 8080, "HTTP API port, 0 disables")
	turnInterval := flag.Duration("turn-interval", 0, "wall-clock pause per turn, 0 runs flat out")
	stopOnConv := flag.Bool("stop-on-convergence", true, "stop the loop once convergence latches")
	flag.Parse()

	cfg.GroupWeights = config.WeightMode(*weights)
	cfg.Model = config.Model(*model)

	setupLogging()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	src := entropy.NewSource(cfg.Seed)
	pop, err := graph.Build(cfg, src)
	if err != nil {
		slog.Error("graph construction failed", "error", err)
		os.Exit(1)
	}

	sim, err := dynamics.NewSimulator(pop, cfg, src)
	if err != nil {
		slog.Error("simulator construction failed", "error", err)
		os.Exit(1)
	}
	analyzer := analysis.New(cfg)

	// ── Persistence ──────────────────────────────────────────────────
	var db *persistence.DB
	var runID string
	if *dbPath != "" {
		os.MkdirAll(filepath.Dir(*dbPath), 0755)
		db, err = persistence.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		runID, err = db.CreateRun(cfg)
		if err != nil {
			slog.Error("failed to register run", "error", err)
			os.Exit(1)
		}
	}

	// ── Runner ───────────────────────────────────────────────────────
	run := runner.New(sim, *turnInterval)
	run.StopOnConvergence = *stopOnConv

	var srv *api.Server
	if *port > 0 {
		srv = &api.Server{
			Run:      run,
			Analyzer: analyzer,
			DB:       db,
			RunID:    runID,
			Port:     *port,
			AdminKey: os.Getenv("ECHOSIM_ADMIN_KEY"),
		}
		srv.Start()
	}

	run.OnTurn = func(res dynamics.TurnResult) {
		analyzer.RecordEmpirical(res.Stats.OpinionCounts(), res.Turn)
		if srv != nil {
			srv.Publish(res)
		}
		if db != nil {
			if err := db.SaveTurn(runID, res); err != nil {
				slog.Error("save turn failed", "turn", res.Turn, "error", err)
			}
		}
		if cfg.StatisticsInterval > 0 && res.Turn%cfg.StatisticsInterval == 0 {
			slog.Info("progress",
				"turn", res.Turn,
				"edges", res.Stats.TotalEdges,
				"pro", res.Stats.Pro,
				"con", res.Stats.Con,
				"segregation", fmt.Sprintf("%.3f", res.Stats.SegregationIndex),
				"metric", fmt.Sprintf("%.5f", res.Stats.ConvergenceMetric),
			)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		run.Stop()
	}()

	fmt.Printf("echochamber: %s people, %s groups, model %s, seed %d\n",
		humanize.Comma(int64(cfg.People)), humanize.Comma(int64(cfg.Groups)), cfg.Model, cfg.Seed)
	if *port > 0 {
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", *port)
	}

	started := time.Now()
	run.Run()

	// ── Final report ──────────────────────────────────────────────────
	view := sim.Statistics()
	report := analyzer.Analysis()

	slog.Info("run finished",
		"turns", sim.Turn(),
		"elapsed", time.Since(started).Round(time.Millisecond),
		"converged", sim.ConvergenceReached(),
		"stopped", sim.Stopped(),
		"kl_divergence", fmt.Sprintf("%.4f", report.KLDivergence),
		"stability", report.Stability,
	)
	for _, rec := range report.Recommendations {
		slog.Info("recommendation", "text", rec)
	}

	fmt.Printf("\nFinished after %s turns: %s edges, opinion %d/%d, segregation %.3f.\n",
		humanize.Comma(int64(sim.Turn())), humanize.Comma(int64(view.Current.TotalEdges)),
		view.Current.Pro, view.Current.Con, view.Current.SegregationIndex)
}

// setupLogging picks a text handler on a terminal and JSON otherwise.
func setupLogging() {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}
