package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

// App wires the storefront client: configuration, logging, the
// persistent cookie jar, the api client, the session bus and the
// three stores, then drives the console surface.
type App struct {
	logger       *zap.Logger
	config       *Config
	boltDBClient *bolt.DB
	session      *SessionStore
	catalog      *CatalogStore
	orders       *OrdersStore
	console      *Console
	cleanups     []func()
}

// NewApp provides an instance of App.
func NewApp() (AppProvider, error) {
	config, err := LoadAndInitConfigs(GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	// Ensure the logs folder exists and setup the logging module.
	err = os.MkdirAll(config.LogFolder, 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	clock := NewTickClock(NewClock(config.IsProduction))
	writer := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, writer, clock)
	closer := func() {
		if cerr := writer.Close(); cerr != nil {
			fmt.Println("error during closing of log file: ", cerr)
		}
	}

	// Setup the persistent cookie jar and the api client.
	boltDBClient, err := GetBoltDBClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open the cookies database: %s", err)
	}
	base, err := url.Parse(config.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid storefront api base url: %s", err)
	}
	jar, err := NewBoltCookieJar(logger, &config.BoltDB, boltDBClient, clock, base)
	if err != nil {
		return nil, fmt.Errorf("failed to setup the cookie jar: %s", err)
	}
	apiClient, err := NewAPIClient(logger, config, jar, NewIDsHandler())
	if err != nil {
		return nil, fmt.Errorf("failed to setup the api client: %s", err)
	}

	// Setup the session bus and the stores.
	bus := NewSessionBus()
	session := NewSessionStore(logger, apiClient, bus)
	catalog := NewCatalogStore(logger, config, apiClient, session)
	if err := catalog.WatchSessions(bus); err != nil {
		return nil, fmt.Errorf("failed to subscribe catalog store to sessions: %s", err)
	}
	orders := NewOrdersStore(logger, apiClient, catalog)

	// A 401 from any call invalidates the session process-wide.
	apiClient.SetUnauthorizedHook(session.Invalidate)

	console := NewConsole(logger, session, catalog, orders)

	return &App{
		logger:       logger,
		config:       config,
		boltDBClient: boltDBClient,
		session:      session,
		catalog:      catalog,
		orders:       orders,
		console:      console,
		cleanups: []func(){
			func() {
				if ferr := flusher(); ferr != nil {
					fmt.Println(ferr)
				}
			},
			closer,
		},
	}, nil
}

// Run starts the console surface and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("storefront client stopped",
		zap.String("api.base_url", app.config.API.BaseURL),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		f()
	}
}

// Serve probes the session attached to the persisted cookies, loads
// the initial listing and cart, then runs the console loop. Its
// returned error will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("storefront client starting",
			zap.String("api.base_url", app.config.API.BaseURL),
		)
		ctx := context.Background()
		app.session.Check(ctx)
		if err := app.catalog.LoadBooks(ctx); err != nil {
			app.logger.Error("failed to load initial books listing", zap.Error(err))
		}
		return app.console.Run(ctx)
	}
}

// Stop listens for the group context and releases the local resources.
// It states the reason of its call. We explicitly return `nil` to allow
// the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("storefront client stopping. reason: requested to stop")
		} else {
			app.logger.Info("storefront client stopping. reason: errored at running")
		}

		app.catalog.StopPending()
		app.console.Close()
		if err := app.boltDBClient.Close(); err != nil {
			app.logger.Error("failed to close the cookies database", zap.Error(err))
		}
		return nil
	}
}
