package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/choplin/unblockpreview/internal/config"
	"github.com/choplin/unblockpreview/internal/database"
	"github.com/choplin/unblockpreview/internal/logging"
	"github.com/choplin/unblockpreview/internal/motw"
	"github.com/choplin/unblockpreview/internal/powershell"
	"github.com/choplin/unblockpreview/internal/services"
	"github.com/choplin/unblockpreview/internal/session"
)

// app bundles everything a command needs. Commands build one per run and
// close it when they return.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *database.Context
	allowlist *services.AllowlistService
	history   *services.HistoryService
	session   *session.Session

	logCloser io.Closer
}

// newInvoker builds the PowerShell runner. Tests replace it.
var newInvoker = func(cfg *config.Config, logger *slog.Logger) motw.Invoker {
	return powershell.New(cfg.PowerShell.Path, cfg.PowerShell.Args, logger)
}

// openApp loads the config and opens the database. A nil sink sends the
// session status lines to the logger, failures at warn and progress at info.
func openApp(flags *globalFlags, sink session.Sink) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		if !logging.ValidLevel(flags.logLevel) {
			return nil, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", flags.logLevel)
		}
		cfg.Logging.Level = flags.logLevel
	}

	logger, logCloser := logging.New(cfg.Logging)
	logger.Debug("configuration loaded", "logging", cfg.Logging.String(), "powershell", cfg.PowerShell.Path)

	dbCtx, err := database.CreateDatabase("")
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	if sink == nil {
		sink = session.NewLogSink(logger.With("component", "status"))
	}

	history := services.NewHistoryService(dbCtx)
	engine := motw.NewEngine(newInvoker(cfg, logger), logger)
	sess := session.New(engine, sink, logger).WithRecorder(history)

	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        dbCtx,
		allowlist: services.NewAllowlistService(dbCtx),
		history:   history,
		session:   sess,
		logCloser: logCloser,
	}, nil
}

func (a *app) Close() error {
	return errors.Join(database.CloseDatabase(a.db), a.logCloser.Close())
}
