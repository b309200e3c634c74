// distribute assigns the channel pairs selected in the grid editor to the
// nodes of the network, one channel of each pair to each end of its link, and
// prints the resulting distribution table.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"sort"

	"github.com/alan-christopher/qkdchan/chandist"
	"github.com/alan-christopher/qkdchan/chandist/config"
	"github.com/alan-christopher/qkdchan/chandist/report"
	"github.com/alan-christopher/qkdchan/chandist/settings"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	exitOK        = 0
	exitExhausted = 1
	exitError     = 2
)

func registerFlags(fs *flag.FlagSet) {
	fs.String("config", "qkdchan.yaml", "YAML configuration file. Missing files fall back to defaults.")
	fs.String("settings", "", "Settings file written by the editor. Overrides files.settings.")
	fs.String("combinations", "", "Node pair file, one link per line. Overrides files.combinations.")
	fs.Int64("seed", 0, "Seed for reshuffling links between attempts. Overrides seed.")
	fs.Int("attempts", 0, "Maximum number of assignment attempts. Overrides max_attempts.")
	fs.StringP("format", "f", "", "Output format: table, csv or json. Overrides output.format.")
	fs.String("log-level", "", "Log level: debug, info, warn or error. Overrides log.level.")
}

// applyFlags overrides cfg with every flag explicitly set on fs.
func applyFlags(fs *flag.FlagSet, cfg *config.Config) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	str("settings", &cfg.Files.Settings)
	str("combinations", &cfg.Files.Combinations)
	str("format", &cfg.Output.Format)
	str("log-level", &cfg.Log.Level)
	if err == nil && fs.Changed("seed") {
		cfg.Seed, err = fs.GetInt64("seed")
	}
	if err == nil && fs.Changed("attempts") {
		cfg.MaxAttempts, err = fs.GetInt("attempts")
	}
	if err != nil {
		return err
	}
	return cfg.Validate()
}

func main() {
	registerFlags(flag.CommandLine)
	flag.Parse()
	path, _ := flag.CommandLine.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Loading %s: %v", path, err)
	}
	if err := applyFlags(flag.CommandLine, cfg); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Building logger: %v", err)
	}
	code := run(cfg, logger, os.Stdout)
	logger.Sync()
	os.Exit(code)
}

// run performs one distribution and returns the process exit code.
func run(cfg *config.Config, logger *zap.Logger, out io.Writer) int {
	runID := uuid.NewString()
	logger = logger.With(zap.String("run", runID))

	cat, err := cfg.ChannelCatalog()
	if err != nil {
		logger.Error("Invalid channel catalog", zap.Error(err))
		return exitError
	}
	s, err := settings.LoadOr(cfg.Files.Settings, &settings.Settings{Nodes: cfg.Nodes})
	if err != nil {
		logger.Error("Loading settings", zap.Error(err))
		return exitError
	}
	combos, err := settings.LoadCombinations(cfg.Files.Combinations)
	if err != nil {
		logger.Error("Loading combinations", zap.Error(err))
		return exitError
	}
	combos = settings.ResolveCombinations(s.Nodes, combos, logger)
	if len(s.Selected) != len(combos) {
		logger.Warn("Selection count differs from combination count, extra entries are ignored",
			zap.Int("selections", len(s.Selected)),
			zap.Int("combinations", len(combos)))
	}

	r, err := chandist.Distribute(cat, combos, s.Selected, chandist.Options{
		Rand:        rand.New(rand.NewSource(cfg.Seed)),
		MaxAttempts: cfg.MaxAttempts,
		OnConflict: func(attempt int, dups map[string][]int) {
			logger.Info("Duplicate detected, reshuffling combinations and channels",
				zap.Int("attempt", attempt),
				zap.Any("duplicates", dups))
		},
	})
	exhausted := errors.Is(err, chandist.ErrExhausted)
	if err != nil && !exhausted {
		logger.Error("Distributing channels", zap.Error(err))
		return exitError
	}
	if exhausted {
		logger.Warn("Failed to resolve duplicates, showing the last attempt",
			zap.Int("attempts", r.Attempts),
			zap.Any("duplicates", r.Assignment.Duplicates()))
	} else {
		logger.Info("Assignment successful with no duplicates", zap.Int("attempts", r.Attempts))
	}

	if err := render(out, cfg.Output.Format, r, tableNodes(s.Nodes, r.Assignment), report.Meta{
		RunID:    runID,
		Seed:     cfg.Seed,
		Attempts: r.Attempts,
		OK:       r.OK,
	}); err != nil {
		logger.Error("Rendering report", zap.Error(err))
		return exitError
	}
	if exhausted {
		return exitExhausted
	}
	return exitOK
}

func render(w io.Writer, format string, r chandist.Result, nodes []string, meta report.Meta) error {
	switch format {
	case "", "table":
		return report.Table(w, r.Assignment, nodes, r.OK)
	case "csv":
		return report.CSV(w, r.Assignment)
	case "json":
		return report.JSON(w, r.Assignment, meta)
	}
	return fmt.Errorf("unknown format %q", format)
}

// tableNodes lists every node of an n-node network plus any other node the
// assignment names, alphabetically.
func tableNodes(n int, a chandist.Assignment) []string {
	seen := make(map[string]bool)
	var r []string
	for _, l := range append(chandist.NodeLabels(n), a.Nodes()...) {
		if !seen[l] {
			seen[l] = true
			r = append(r, l)
		}
	}
	sort.Strings(r)
	return r
}
