// editor is a terminal grid for choosing the signal/idler channel pairs that
// will serve each link of the network. The frequency correlation matrix is
// drawn under the grid and reloaded whenever its file changes.
package main

import (
	"context"
	"log"

	"github.com/alan-christopher/qkdchan/chandist"
	"github.com/alan-christopher/qkdchan/chandist/config"
	"github.com/alan-christopher/qkdchan/chandist/freqcor"
	"github.com/alan-christopher/qkdchan/chandist/grid"
	"github.com/alan-christopher/qkdchan/chandist/settings"
	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "qkdchan.yaml", "YAML configuration file. Missing files fall back to defaults.")
	nodes      = flag.IntP("nodes", "n", 0, "Network size, 2 to 26. Overrides the settings file when set.")
	matrixPath = flag.String("matrix", "", "Frequency correlation matrix. Overrides files.matrix.")
	noWatch    = flag.Bool("no-watch", false, "Do not reload the matrix when its file changes.")
)

func main() {
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Loading %s: %v", *configPath, err)
	}
	if *matrixPath != "" {
		cfg.Files.Matrix = *matrixPath
	}
	// The terminal belongs to the grid, so only log when a file is configured.
	logger := zap.NewNop()
	if cfg.Log.File != "" {
		if logger, err = config.NewLogger(cfg.Log); err != nil {
			log.Fatalf("Building logger: %v", err)
		}
	}
	defer logger.Sync()

	cat, err := cfg.ChannelCatalog()
	if err != nil {
		log.Fatalf("Invalid channel catalog: %v", err)
	}
	s, err := settings.LoadOr(cfg.Files.Settings, &settings.Settings{Nodes: cfg.Nodes})
	if err != nil {
		log.Fatalf("Loading settings: %v", err)
	}
	if err := overrideNodes(s, *nodes); err != nil {
		log.Fatalf("Invalid --nodes: %v", err)
	}
	combos, err := settings.LoadCombinations(cfg.Files.Combinations)
	if err != nil {
		log.Fatalf("Loading combinations: %v", err)
	}
	combos = settings.ResolveCombinations(s.Nodes, combos, logger)

	m, err := freqcor.Load(cfg.Files.Matrix, cat)
	if err != nil {
		logger.Warn("Loading correlation matrix, drawing an empty grid", zap.Error(err))
	}

	ed := grid.FromSettings(cat, s, combos)
	if dropped := ed.Dropped(); len(dropped) > 0 {
		logger.Warn("Dropping saved selections off the diagonal or outside the grid",
			zap.Int("count", len(dropped)),
			zap.Stringers("selections", dropped))
	}
	save := func(ed *grid.Editor) error {
		if err := ed.Settings().Save(cfg.Files.Settings); err != nil {
			return err
		}
		if err := settings.SaveCombinations(cfg.Files.Combinations, ed.Combinations()); err != nil {
			return err
		}
		logger.Info("Settings saved",
			zap.String("settings", cfg.Files.Settings),
			zap.Int("selected", len(ed.Selections())))
		return nil
	}

	p := tea.NewProgram(newModel(ed, m, save, logger), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !*noWatch {
		w, err := newMatrixWatcher(cfg.Files.Matrix, cat, p.Send, logger)
		if err != nil {
			logger.Warn("Matrix reload disabled", zap.Error(err))
		} else {
			go w.run(ctx)
		}
	}

	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}

// overrideNodes replaces the network size of s with n, if n was given.
func overrideNodes(s *settings.Settings, n int) error {
	if n == 0 {
		return nil
	}
	if err := chandist.ValidateNodes(n); err != nil {
		return err
	}
	s.Nodes = n
	return nil
}
