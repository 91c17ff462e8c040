// Package app wires adapters and services from configuration. Both the API
// server and the CLI start from here.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ewilliams-labs/moodgraph/internal/adapters/badger"
	"github.com/ewilliams-labs/moodgraph/internal/adapters/ollama"
	"github.com/ewilliams-labs/moodgraph/internal/adapters/spotify"
	"github.com/ewilliams-labs/moodgraph/internal/adapters/sqlite"
	"github.com/ewilliams-labs/moodgraph/internal/config"
	"github.com/ewilliams-labs/moodgraph/internal/core/ports"
	"github.com/ewilliams-labs/moodgraph/internal/core/services"
	"github.com/ewilliams-labs/moodgraph/internal/worker"
)

// Store is a durable cache for both catalogs and graphs.
type Store interface {
	ports.CatalogRepository
	ports.GraphRepository
	Close() error
}

// App holds the wired service and the resources it owns.
type App struct {
	Config       *config.Config
	Orchestrator *services.Orchestrator
	Store        Store

	log  logrus.FieldLogger
	pool *worker.Pool
}

// OpenStore opens the cache selected by cfg.Storage.Driver.
func OpenStore(cfg config.StorageConfig, log logrus.FieldLogger) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := sqlite.NewAdapter(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("app: open sqlite store: %w", err)
		}
		return s, nil
	case "badger":
		s, err := badger.Open(cfg.BadgerDir, false, log)
		if err != nil {
			return nil, fmt.Errorf("app: open badger store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.Driver)
	}
}

// New builds the application. Spotify, Ollama and the analysis worker are
// only wired when configured; the service reports the missing piece when an
// operation needs it.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	store, err := OpenStore(cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Store: store, log: log}

	var provider ports.CatalogProvider
	var sink ports.PlaylistSink
	timeout := time.Duration(cfg.Spotify.TimeoutSeconds) * time.Second
	opts := spotify.Options{
		MaxRetries:      cfg.Spotify.MaxRetries,
		BaseBackoff:     cfg.RetryBackoff(),
		BreakerFailures: uint32(cfg.Spotify.BreakerFailures),
		BreakerTimeout:  time.Duration(cfg.Spotify.BreakerTimeoutSeconds) * time.Second,
		Logger:          log,
	}
	if cfg.HasSpotifyCredentials() {
		hc := spotify.NewAppHTTPClient(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.TokenURL, timeout)
		provider = spotify.NewClient(hc, cfg.Spotify.BaseURL, opts)
	} else {
		log.Warn("spotify credentials not set, catalog must already be cached")
	}
	if cfg.Spotify.UserToken != "" {
		hc := spotify.NewUserHTTPClient(ctx, cfg.Spotify.UserToken, timeout)
		sink = spotify.NewClient(hc, cfg.Spotify.BaseURL, opts)
	}

	var classifier ports.MoodClassifier
	if cfg.Ollama.Enabled {
		classifier = ollama.NewClient(cfg.Ollama.Host, cfg.Ollama.Model, log)
	}

	storeOpts := services.TrackStoreOptions{
		Snapshot:    cfg.Cache.Snapshot,
		PlaylistIDs: cfg.Catalog.PlaylistIDs,
	}
	if cfg.Worker.Enabled {
		a.pool = worker.NewPool(cfg.Worker.Workers, cfg.Worker.QueueSize, log)
		storeOpts.Analysis = a.pool
	}

	tracks := services.NewTrackStore(store, provider, storeOpts, log)
	graphs := services.NewGraphBuilder(store, cfg.Cache.Snapshot, cfg.Graph.Threshold, log)
	gen := services.NewGenerator(nil)
	a.Orchestrator = services.NewOrchestrator(tracks, graphs, gen, sink, classifier, log).
		WithRequireFull(cfg.Playlist.RequireFull)
	if a.pool != nil {
		// analyzed energy reaches the loaded catalog as well as the store
		a.pool.Start(a.Orchestrator)
	}

	log.WithFields(logrus.Fields{
		"storage":    cfg.Storage.Driver,
		"snapshot":   cfg.Cache.Snapshot,
		"threshold":  cfg.Graph.Threshold,
		"provider":   provider != nil,
		"sink":       sink != nil,
		"classifier": classifier != nil,
		"worker":     a.pool != nil,
	}).Info("application wired")
	return a, nil
}

// Close drains the analysis queue and closes the store.
func (a *App) Close() error {
	if a.pool != nil {
		a.pool.Stop()
	}
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("app: close store: %w", err)
	}
	return nil
}
