package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/ferretcontrol-console/api"
	"github.com/jrsteele09/ferretcontrol-console/internal/config"
	"github.com/jrsteele09/ferretcontrol-console/metrics"
	"github.com/jrsteele09/ferretcontrol-console/notifications"
	"github.com/jrsteele09/ferretcontrol-console/server"
	"github.com/jrsteele09/ferretcontrol-console/session"
	"github.com/jrsteele09/ferretcontrol-console/tokenstore"
	"github.com/jrsteele09/ferretcontrol-console/tokenstore/filestore"
	"github.com/jrsteele09/ferretcontrol-console/tokenstore/memstore"
	"github.com/jrsteele09/ferretcontrol-console/tokenstore/sealed"
	"github.com/jrsteele09/ferretcontrol-console/tokenstore/sqlitestore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var errPanicRecovered = errors.New("panic recovered")

func main() {
	// A missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	c := config.New()
	closeLog := setupLogging(c)
	defer closeLog()
	displayAppname(c.GetAppName())

	for {
		err := run(c)
		if err == nil {
			break
		}
		if !shouldRestart(err) {
			log.Fatal().Err(err).Msg("Error running console")
		}
		log.Err(err).Msg("Restarting console")
		time.Sleep(1 * time.Second)
	}
	log.Info().Msg("Console stopped")
}

// shouldRestart reports whether run failed in a way a fresh attempt can fix.
// Only recovered panics qualify; configuration and listen errors are fatal.
func shouldRestart(err error) bool {
	return errors.Is(err, errPanicRecovered)
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errPanicRecovered
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	store, closeStore, err := openTokenStore(c)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	client := api.NewClient(c.GetAPIBaseURL(), api.WithTimeout(c.GetAPITimeout()))
	sessions, err := session.NewManager(client, store,
		session.WithRefreshOnExpiry(c.GetRefreshOnExpiry()),
		session.WithExpiryLeeway(c.GetTokenExpiryLeeway()),
		session.WithRefreshTimeout(c.GetAPITimeout()),
		session.WithMetrics(recorder),
	)
	if err != nil {
		return fmt.Errorf("session.NewManager: %w", err)
	}

	authed := client.WithTokens(sessions)
	poller := notifications.NewPoller(authed,
		notifications.WithInterval(c.GetPollInterval()),
		notifications.WithMetrics(recorder),
	)
	defer poller.Close()
	sessions.AddObserver(poller)

	handler, err := server.New(c, server.Deps{
		Sessions: sessions,
		Poller:   poller,
		Alerts:   notifications.NewService(authed, poller),
		Metrics:  metrics.Handler(registry),
	})
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(srv) }()

	select {
	case err := <-serveErr:
		return err
	case <-stop:
	}
	return shutdown(srv)
}

// openTokenStore builds the configured store, sealing durable ones when TOKEN_STORE_KEY is set.
func openTokenStore(c config.Config) (tokenstore.Store, func(), error) {
	store, closeStore, err := openBaseStore(c)
	if err != nil || c.GetTokenStoreKind() == config.TokenStoreMemory {
		return store, closeStore, err
	}

	secret := c.GetTokenStoreKey()
	if secret == "" {
		log.Warn().Msg("TOKEN_STORE_KEY is not set, tokens are persisted in plaintext")
		return store, closeStore, nil
	}
	encrypted, err := sealed.New(store, secret)
	if err != nil {
		closeStore()
		return nil, func() {}, fmt.Errorf("sealed.New: %w", err)
	}
	return encrypted, closeStore, nil
}

func openBaseStore(c config.Config) (tokenstore.Store, func(), error) {
	noop := func() {}
	switch kind := c.GetTokenStoreKind(); kind {
	case config.TokenStoreMemory:
		log.Warn().Msg("Using in-memory token store, sessions will not survive a restart")
		return memstore.New(), noop, nil
	case config.TokenStoreSQLite:
		s, err := sqlitestore.Open(c.GetTokenStorePath())
		if err != nil {
			return nil, noop, fmt.Errorf("sqlitestore.Open: %w", err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.Err(err).Msg("Failed to close token store")
			}
		}, nil
	case config.TokenStoreFile:
		s, err := filestore.NewOS(c.GetTokenStorePath())
		if err != nil {
			return nil, noop, fmt.Errorf("filestore.NewOS: %w", err)
		}
		return s, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown TOKEN_STORE %q", kind)
	}
}

func setupLogging(c config.Config) func() {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if c.GetEnv() == "DEV" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	}

	closer := func() {}
	if path := c.GetLogFile(); path != "" {
		rotating := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		out = zerolog.MultiLevelWriter(out, rotating)
		closer = func() { _ = rotating.Close() }
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Console listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
