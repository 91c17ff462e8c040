package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
	"github.com/ewilliams-labs/moodgraph/internal/core/ports"
)

var _ ports.TrackFeatureWriter = (*Orchestrator)(nil)

var (
	ErrSinkNotConfigured       = errors.New("service: playlist sink not configured")
	ErrClassifierNotConfigured = errors.New("service: mood classifier not configured")
	ErrEmptyMessage            = errors.New("service: message cannot be empty")
)

// GenerateRequest is a single "playlist for mood M" request.
type GenerateRequest struct {
	Mood string
	// Name defaults to "<mood> vibes".
	Name string
	// Publish sends the playlist to the configured sink.
	Publish bool
	// RequireFull turns a short playlist into domain.ErrInsufficientCatalog.
	RequireFull bool
}

// GraphStats summarizes the loaded similarity graph.
type GraphStats struct {
	Snapshot  string  `json:"snapshot"`
	Tracks    int     `json:"tracks"`
	Nodes     int     `json:"nodes"`
	Edges     int     `json:"edges"`
	Isolated  int     `json:"isolated"`
	Threshold float64 `json:"threshold"`
}

// Orchestrator coordinates the track store, graph builder, generator and
// playlist sink. The catalog and graph are loaded once and shared by readers;
// RefreshCatalog and RebuildGraph replace them under the write lock.
type Orchestrator struct {
	tracks     *TrackStore
	graphs     *GraphBuilder
	gen        *Generator
	sink       ports.PlaylistSink
	classifier ports.MoodClassifier
	log        logrus.FieldLogger
	newID      func() string

	// requireFull applies RequireFull to every request.
	requireFull bool

	mu      sync.RWMutex
	catalog domain.Catalog
	graph   *domain.Graph
}

// NewOrchestrator constructs an Orchestrator. sink and classifier may be nil.
func NewOrchestrator(tracks *TrackStore, graphs *GraphBuilder, gen *Generator, sink ports.PlaylistSink, classifier ports.MoodClassifier, log logrus.FieldLogger) *Orchestrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		tracks:     tracks,
		graphs:     graphs,
		gen:        gen,
		sink:       sink,
		classifier: classifier,
		log:        log,
		newID:      func() string { return uuid.New().String() },
	}
}

// WithRequireFull makes every request fail with domain.ErrInsufficientCatalog
// when fewer than ten tracks are produced.
func (o *Orchestrator) WithRequireFull(v bool) *Orchestrator {
	o.requireFull = v
	return o
}

// Warm loads the catalog and graph ahead of the first request.
func (o *Orchestrator) Warm(ctx context.Context) error {
	_, _, err := o.snapshot(ctx)
	return err
}

// GeneratePlaylist builds a playlist for req.Mood from the current catalog and
// optionally publishes it. No playlist is returned on error.
func (o *Orchestrator) GeneratePlaylist(ctx context.Context, req GenerateRequest) (domain.Playlist, error) {
	mood := domain.ParseMood(req.Mood)
	if mood == "" {
		mood = domain.MoodSurpriseMe
	}

	c, g, err := o.snapshot(ctx)
	if err != nil {
		return domain.Playlist{}, err
	}

	ids, err := o.gen.Generate(c, mood, g)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: failed to generate playlist: %w", err)
	}
	if (req.RequireFull || o.requireFull) && len(ids) < domain.PlaylistSize {
		return domain.Playlist{}, fmt.Errorf("service: %w", domain.InsufficientCatalogError{
			Mood:     mood,
			Eligible: len(ids),
			Want:     domain.PlaylistSize,
		})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = domain.DefaultPlaylistName(mood)
	}
	pl, err := domain.NewPlaylist(o.newID(), name, mood)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: %w", err)
	}
	for _, id := range ids {
		if err := pl.AddTrack(id); err != nil {
			return domain.Playlist{}, fmt.Errorf("service: domain rule violation: %w", err)
		}
	}

	log := o.log.WithFields(logrus.Fields{"mood": mood, "playlist_id": pl.ID, "tracks": len(pl.TrackIDs)})
	if len(pl.TrackIDs) < domain.PlaylistSize {
		log.Warn("eligible pool smaller than a full playlist")
	}

	if req.Publish {
		if o.sink == nil {
			return domain.Playlist{}, ErrSinkNotConfigured
		}
		externalID, err := o.sink.PublishPlaylist(ctx, pl.Name, pl.TrackIDs)
		if err != nil {
			return domain.Playlist{}, fmt.Errorf("service: failed to publish playlist: %w", err)
		}
		pl.ExternalID = externalID
		log = log.WithField("external_id", externalID)
	}

	log.Info("playlist generated")
	return *pl, nil
}

// GeneratePlaylistFromText classifies a free-text message into a mood and
// generates a playlist for it. req.Mood is ignored.
func (o *Orchestrator) GeneratePlaylistFromText(ctx context.Context, message string, req GenerateRequest) (domain.Playlist, error) {
	if strings.TrimSpace(message) == "" {
		return domain.Playlist{}, ErrEmptyMessage
	}
	if o.classifier == nil {
		return domain.Playlist{}, ErrClassifierNotConfigured
	}
	mood, err := o.classifier.ClassifyMood(ctx, message)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: failed to classify mood: %w", err)
	}
	o.log.WithField("mood", mood).Debug("message classified")
	req.Mood = string(mood)
	return o.GeneratePlaylist(ctx, req)
}

// RefreshCatalog refetches the catalog from the music service and merges any
// new tracks into the graph.
func (o *Orchestrator) RefreshCatalog(ctx context.Context) (GraphStats, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, err := o.tracks.Refresh(ctx)
	if err != nil {
		return GraphStats{}, err
	}
	g, err := o.buildGraph(ctx, c)
	if err != nil {
		return GraphStats{}, err
	}
	o.catalog, o.graph = c, g
	return o.statsLocked(), nil
}

// RebuildGraph discards the persisted graph and performs a cold build.
func (o *Orchestrator) RebuildGraph(ctx context.Context) (GraphStats, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	c := o.catalog
	if c == nil {
		var err error
		if c, err = o.tracks.Load(ctx); err != nil {
			return GraphStats{}, err
		}
	}
	g, err := o.graphs.Rebuild(ctx, c)
	if err != nil {
		return GraphStats{}, err
	}
	o.catalog, o.graph = c, g
	return o.statsLocked(), nil
}

// Stats loads the snapshot if needed and summarizes it.
func (o *Orchestrator) Stats(ctx context.Context) (GraphStats, error) {
	if _, _, err := o.snapshot(ctx); err != nil {
		return GraphStats{}, err
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.statsLocked(), nil
}

// UpdateTrackFeatures writes a track's features through to the cache and, for
// the loaded snapshot, to the in-memory catalog so later requests filter on
// the new values. The loaded catalog is replaced rather than mutated because
// in-flight requests may still be reading it. Known graph weights are left as
// first computed.
func (o *Orchestrator) UpdateTrackFeatures(ctx context.Context, snapshot, trackID string, f domain.AudioFeatures) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.tracks.UpdateFeatures(ctx, snapshot, trackID, f); err != nil {
		return err
	}
	if snapshot != o.tracks.Snapshot() || o.catalog == nil {
		return nil
	}
	t, ok := o.catalog[trackID]
	if !ok {
		return nil
	}
	next := make(domain.Catalog, len(o.catalog))
	for id, tr := range o.catalog {
		next[id] = tr
	}
	t.Features = f
	next[trackID] = t
	o.catalog = next
	return nil
}

// Lookup returns the cached tracks for ids in order, skipping unknown ids.
func (o *Orchestrator) Lookup(ctx context.Context, ids []string) ([]domain.Track, error) {
	c, _, err := o.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	tracks := make([]domain.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := c[id]; ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

func (o *Orchestrator) snapshot(ctx context.Context) (domain.Catalog, *domain.Graph, error) {
	o.mu.RLock()
	c, g := o.catalog, o.graph
	o.mu.RUnlock()
	if c != nil && g != nil {
		return c, g, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.catalog != nil && o.graph != nil {
		return o.catalog, o.graph, nil
	}

	c, err := o.tracks.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	g, err = o.buildGraph(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	o.catalog, o.graph = c, g
	return c, g, nil
}

// buildGraph falls back to one cold rebuild when the persisted graph is out
// of sync with the catalog.
func (o *Orchestrator) buildGraph(ctx context.Context, c domain.Catalog) (*domain.Graph, error) {
	g, err := o.graphs.Build(ctx, c)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, domain.ErrMissingTrackData) {
		return nil, err
	}
	o.log.WithError(err).Warn("persisted graph out of sync with catalog, rebuilding")
	return o.graphs.Rebuild(ctx, c)
}

func (o *Orchestrator) statsLocked() GraphStats {
	s := GraphStats{
		Snapshot:  o.tracks.Snapshot(),
		Tracks:    len(o.catalog),
		Threshold: o.graphs.Threshold(),
	}
	if o.graph != nil {
		s.Nodes = o.graph.NodeCount()
		s.Edges = o.graph.EdgeCount()
		s.Isolated = o.graph.IsolatedCount()
		s.Threshold = o.graph.Threshold
	}
	return s
}
