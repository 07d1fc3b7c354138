// Package client wires the marketplace client together: one credential
// store, one session manager and one gateway client, owned by an App.
package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/ProjectMarket/internal/client/gateway"
	"github.com/atinyakov/ProjectMarket/internal/client/session"
	"github.com/atinyakov/ProjectMarket/internal/client/store"
	"github.com/atinyakov/ProjectMarket/internal/config"
	"github.com/atinyakov/ProjectMarket/internal/logger"
)

// App is the client's root object. Views receive it (or its parts) instead
// of reaching for globals, so tests can build independent instances.
type App struct {
	Store   store.Store
	Session *session.Manager
	API     *gateway.Client

	log    *zap.Logger
	closer func() error
}

// New builds an App from opts. The session is not restored until Start.
func New(opts *config.ClientOptions, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)

	st, closer, err := openStore(opts)
	if err != nil {
		return nil, err
	}

	httpClient, err := gateway.NewHTTPClient(opts.CAFile, time.Duration(opts.Timeout))
	if err != nil {
		_ = closer()
		return nil, fmt.Errorf("http client: %w", err)
	}

	api := gateway.NewClient(opts.BaseURL).
		WithHTTPClient(httpClient).
		WithLogger(log.Named("gateway"))
	app := Assemble(st, api, log)
	app.closer = closer
	return app, nil
}

// Assemble wires an App from ready-made parts.
func Assemble(st store.Store, api *gateway.Client, log *zap.Logger) *App {
	log = logger.OrNop(log)
	mgr := session.NewManager(st, api, log.Named("session"))
	api.WithCredentials(mgr)
	return &App{
		Store:   st,
		Session: mgr,
		API:     api,
		log:     log,
		closer:  func() error { return nil },
	}
}

// Start restores the persisted session.
func (a *App) Start() {
	a.Session.Restore()
	st := a.Session.State()
	a.log.Info("client started",
		zap.String("api", a.API.BaseURL()),
		zap.Bool("authenticated", st.Authenticated),
	)
}

// Close releases the credential store.
func (a *App) Close() error {
	return a.closer()
}

func openStore(opts *config.ClientOptions) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Store {
	case config.StoreFile, "":
		return store.NewFileStore(opts.StatePath), noop, nil
	case config.StoreBolt:
		if dir := filepath.Dir(opts.StatePath); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, nil, fmt.Errorf("create state dir: %w", err)
			}
		}
		bs, err := store.OpenBoltStore(opts.StatePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt store: %w", err)
		}
		return bs, bs.Close, nil
	default:
		return nil, nil, errors.New("unknown store kind: " + opts.Store)
	}
}
