package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"archuser.org/idle-game/internal/api"
	"archuser.org/idle-game/internal/clock"
	"archuser.org/idle-game/internal/config"
	"archuser.org/idle-game/internal/game"
	"archuser.org/idle-game/internal/save"
	"archuser.org/idle-game/internal/session"
	"archuser.org/idle-game/internal/store"
	"archuser.org/idle-game/internal/ui"
)

type options struct {
	configPath string
	envPath    string
	headless   bool
	httpAddr   string
	backend    string
	dbPath     string
	logPath    string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config overlaid on the built-in defaults")
	flag.StringVar(&opts.envPath, "env", ".env", "dotenv file with IDLE_* overrides")
	flag.BoolVar(&opts.headless, "headless", false, "run without the terminal UI")
	flag.StringVar(&opts.httpAddr, "http", "", "serve the HTTP API on this address, e.g. :8080")
	flag.StringVar(&opts.backend, "store", "", "save backend: memory, file or sqlite")
	flag.StringVar(&opts.dbPath, "db", "", "sqlite database path (implies -store sqlite)")
	flag.StringVar(&opts.logPath, "log", "", "log file (default stderr when headless, idlegame.log otherwise)")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "idlegame:", err)
		os.Exit(1)
	}
}

func run(opts options) (err error) {
	if err := loadEnv(opts.envPath); err != nil {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logOut, closeLog, err := openLog(opts)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeLog()) }()

	logger := log.NewWithOptions(logOut, log.Options{ReportTimestamp: true, Prefix: "idlegame"})
	if level, perr := log.ParseLevel(cfg.LogLevel); perr == nil {
		logger.SetLevel(level)
	} else {
		logger.Warn("unknown log level, using info", "level", cfg.LogLevel)
	}

	st, err := openStore(cfg, opts)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	clk := clock.Real{}
	sess, loaded, err := session.Open(ctx, session.Options{
		Rules:  game.NewRules(cfg),
		Codec:  save.NewCodec(st, cfg.Save, logger),
		Clock:  clk,
		Loop:   cfg.Loop,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	logger.Info("session ready", "id", sess.ID(), "loaded", loaded, "backend", cfg.Save.Backend)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Run(gctx)
	})
	if cfg.Server.Addr != "" {
		srv := api.NewServer(sess, cfg.Server, logger)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Server.Addr)
		})
	}
	if !opts.headless {
		screen, err := ui.NewScreen()
		if err != nil {
			cancel()
			return multierr.Append(fmt.Errorf("terminal: %w", err), g.Wait())
		}
		client := ui.New(screen, sess, clk, logger)
		g.Go(func() error {
			// Quitting the UI ends the program.
			defer cancel()
			return client.Run(gctx)
		})
	}
	return g.Wait()
}

func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return config.Config{}, err
	}
	if opts.backend != "" {
		cfg.Save.Backend = opts.backend
	}
	if opts.dbPath != "" {
		cfg.Save.Backend = "sqlite"
	}
	if opts.httpAddr != "" {
		cfg.Server.Addr = opts.httpAddr
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openStore(cfg config.Config, opts options) (store.Store, error) {
	if opts.dbPath != "" {
		return store.NewSQLite(opts.dbPath)
	}
	return store.Open(cfg.Save)
}

func openLog(opts options) (io.Writer, func() error, error) {
	path := opts.logPath
	if path == "" {
		if opts.headless {
			return os.Stderr, func() error { return nil }, nil
		}
		path = "idlegame.log"
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	return f, f.Close, nil
}
