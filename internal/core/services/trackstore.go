package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
	"github.com/ewilliams-labs/moodgraph/internal/core/ports"
)

var ErrNoCatalogProvider = errors.New("service: catalog cache is empty and no catalog provider is configured")

// TrackStore serves the catalog from the durable cache and populates the
// cache from the music service when it is cold.
type TrackStore struct {
	repo        ports.CatalogRepository
	provider    ports.CatalogProvider
	analysis    ports.AnalysisQueue
	snapshot    string
	playlistIDs []string
	log         logrus.FieldLogger
}

// TrackStoreOptions configures a TrackStore.
type TrackStoreOptions struct {
	Snapshot    string
	PlaylistIDs []string
	// Analysis is optional. When set, tracks with estimated features and a
	// preview URL are queued after a cold populate.
	Analysis ports.AnalysisQueue
}

// NewTrackStore constructs a TrackStore. provider may be nil when the cache
// is known to be warm.
func NewTrackStore(repo ports.CatalogRepository, provider ports.CatalogProvider, opts TrackStoreOptions, log logrus.FieldLogger) *TrackStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TrackStore{
		repo:        repo,
		provider:    provider,
		analysis:    opts.Analysis,
		snapshot:    opts.Snapshot,
		playlistIDs: opts.PlaylistIDs,
		log:         log.WithField("snapshot", opts.Snapshot),
	}
}

// Snapshot returns the cache key this store reads and writes.
func (s *TrackStore) Snapshot() string {
	return s.snapshot
}

// Load returns the cached catalog, populating the cache first when it is cold.
func (s *TrackStore) Load(ctx context.Context) (domain.Catalog, error) {
	c, err := s.repo.LoadCatalog(ctx, s.snapshot)
	if err == nil {
		s.log.WithField("tracks", len(c)).Debug("catalog loaded from cache")
		return c, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("service: failed to load catalog: %w", err)
	}
	s.log.Info("catalog cache is cold, fetching from the music service")
	return s.populate(ctx)
}

// UpdateFeatures writes one track's features to the cache.
func (s *TrackStore) UpdateFeatures(ctx context.Context, snapshot, trackID string, f domain.AudioFeatures) error {
	if err := s.repo.UpdateTrackFeatures(ctx, snapshot, trackID, f); err != nil {
		return fmt.Errorf("service: failed to update track %s: %w", trackID, err)
	}
	return nil
}

// Refresh refetches the catalog from the music service and replaces the
// cached snapshot.
func (s *TrackStore) Refresh(ctx context.Context) (domain.Catalog, error) {
	return s.populate(ctx)
}

func (s *TrackStore) populate(ctx context.Context) (domain.Catalog, error) {
	if s.provider == nil {
		return nil, ErrNoCatalogProvider
	}

	c, err := s.provider.FetchCatalog(ctx, s.playlistIDs)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch catalog: %w", err)
	}

	if err := s.repo.SaveCatalog(ctx, s.snapshot, c); err != nil {
		return nil, fmt.Errorf("service: failed to save catalog: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"tracks":    len(c),
		"playlists": len(s.playlistIDs),
	}).Info("catalog cached")

	if s.analysis != nil {
		queued := 0
		for _, id := range c.IDs() {
			t := c[id]
			if t.FeaturesEstimated && t.PreviewURL != "" {
				s.analysis.Enqueue(s.snapshot, t)
				queued++
			}
		}
		if queued > 0 {
			s.log.WithField("tracks", queued).Info("queued previews for energy analysis")
		}
	}

	return c, nil
}
