package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/sadopc/timebox/internal/config"
	"github.com/sadopc/timebox/internal/kv"
	"github.com/sadopc/timebox/internal/plan"
	"github.com/sadopc/timebox/internal/queue"
	"github.com/sadopc/timebox/internal/seed"
	"github.com/sadopc/timebox/internal/session"
	"github.com/sadopc/timebox/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath, err = kv.DefaultDBPath()
		if err != nil {
			return err
		}
	}

	store, err := kv.NewSQLite(dbPath, func() {
		logger.Debug("record written")
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	sessions := session.NewStore(store)
	backlog := queue.NewService(store)
	manager := session.NewManager(sessions, backlog, logger)
	builder := plan.NewBuilder(sessions, backlog, logger)

	if cfg.DevMode {
		today := func() string { return plan.DateOf(time.Now()) }
		if err := seed.NewDev(builder, sessions, backlog, logger, today).Seed(context.Background()); err != nil {
			return fmt.Errorf("seed dev data: %w", err)
		}
	}

	app := tui.NewApp(tui.Deps{
		Sessions: sessions,
		Manager:  manager,
		Queue:    backlog,
		Builder:  builder,
		Logger:   logger,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

// newLogger writes to the configured log file. Stderr is off limits
// while the TUI owns the terminal.
func newLogger(cfg config.Config) (*log.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		Level:           parseLevel(cfg.LogLevel),
	})
	return logger, func() { f.Close() }, nil
}

func parseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}
