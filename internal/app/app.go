// Package app wires configuration, persistence, the process loop and
// its transports into one runnable server.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6/osfs"
	"github.com/lewtec/imgserver/internal/config"
	"github.com/lewtec/imgserver/internal/dispatch"
	"github.com/lewtec/imgserver/internal/host"
	"github.com/lewtec/imgserver/internal/persist"
	"github.com/lewtec/imgserver/internal/repository"
	"github.com/lewtec/imgserver/internal/transport/httpfront"
	"github.com/lewtec/imgserver/internal/transport/socket"
	"github.com/rs/zerolog"
)

type ImageServerApp struct {
	Config *config.Config
	Logger zerolog.Logger

	database *sql.DB
	adapter  *persist.Adapter
}

// New opens the configured persistence backend. Close releases it.
func New(cfg *config.Config, logger zerolog.Logger) (*ImageServerApp, error) {
	a := &ImageServerApp{Config: cfg, Logger: logger}
	if err := a.openPersistence(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *ImageServerApp) openPersistence() error {
	cfg := a.Config.Persistence
	process := a.Config.Address().String()
	options := a.Config.SnapshotOptions()

	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := repository.GetDatabase(cfg.Path)
		if err != nil {
			return fmt.Errorf("while opening database %s: %w", cfg.Path, err)
		}
		if err := repository.RunMigrations(db, a.Logger); err != nil {
			db.Close()
			return err
		}
		a.database = db
		a.adapter = persist.New(repository.NewStateRepository(db, process), options, a.Logger)
	case config.BackendFile:
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return fmt.Errorf("while creating state folder %s: %w", cfg.Path, err)
		}
		a.adapter = persist.New(repository.NewFileStateRepository(osfs.New(cfg.Path), process), options, a.Logger)
	default:
		a.adapter = persist.Disabled(a.Logger)
	}
	a.Logger.Info().Str("backend", cfg.Backend).Str("path", cfg.Path).Msg("app: persistence ready")
	return nil
}

// Persistence returns the snapshot adapter for the configured backend
func (a *ImageServerApp) Persistence() *persist.Adapter {
	return a.adapter
}

// Run restores the store and serves until ctx is cancelled or a
// transport fails. The loop keeps running until every transport stopped.
func (a *ImageServerApp) Run(ctx context.Context) error {
	s := a.adapter.LoadStore(ctx)
	a.Logger.Info().Int("images", s.Len()).Str("address", a.Config.Address().String()).Msg("app: starting process")

	dispatcher := dispatch.New(s, a.adapter, a.Logger, dispatch.WithHTTPServer(a.Config.HTTPServerProcess()))
	inbox := host.NewInbox(a.Config.InboxSize)
	loop := host.NewLoop(inbox, a.Logger)

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(loopCtx, dispatcher)
	}()

	transportCtx, stopTransports := context.WithCancel(ctx)
	defer stopTransports()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	started := 0
	start := func(name string, serve func(context.Context) error) {
		started++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serve(transportCtx); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				stopTransports()
			}
		}()
	}

	if a.Config.HTTP.Enabled {
		source := host.Address{Node: a.Config.Address().Node, Process: a.Config.HTTPServerProcess()}
		front := httpfront.New(inbox, source, httpfront.Options{
			Addr:            a.Config.HTTP.Addr,
			Bind:            a.Config.HTTP.Bind,
			MaxBody:         a.Config.HTTP.MaxBody,
			ResponseTimeout: a.Config.HTTP.ResponseTimeout,
		}, a.Logger)
		start("http", front.ListenAndServe)
	}
	if a.Config.Socket.Enabled {
		opts := []socket.Option{socket.WithHTTPServer(a.Config.HTTPServerProcess())}
		if a.Config.HTTP.ResponseTimeout > 0 {
			opts = append(opts, socket.WithResponseTimeout(a.Config.HTTP.ResponseTimeout))
		}
		server := socket.NewServer(a.Config.Socket.Path, inbox, a.Config.SocketClientAddress(), a.Logger, opts...)
		start("socket", server.Serve)
	}
	if started == 0 {
		a.Logger.Warn().Msg("app: no transport enabled, waiting for shutdown")
		<-ctx.Done()
	}

	wg.Wait()
	stopLoop()
	<-loopDone

	close(errs)
	if err, ok := <-errs; ok {
		return err
	}
	a.Logger.Info().Msg("app: stopped")
	return nil
}

// Close releases the persistence backend
func (a *ImageServerApp) Close() error {
	if a.database != nil {
		return a.database.Close()
	}
	return nil
}
