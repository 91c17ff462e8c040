package ports

import (
	"context"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

// TrackFeatureWriter replaces one cached track's features. It returns
// domain.ErrNotFound when the track is not stored under snapshot.
type TrackFeatureWriter interface {
	UpdateTrackFeatures(ctx context.Context, snapshot, trackID string, features domain.AudioFeatures) error
}

// CatalogRepository is the durable cache for Track Store snapshots.
// LoadCatalog returns domain.ErrNotFound when nothing is stored under snapshot.
type CatalogRepository interface {
	LoadCatalog(ctx context.Context, snapshot string) (domain.Catalog, error)
	SaveCatalog(ctx context.Context, snapshot string, c domain.Catalog) error
	TrackFeatureWriter
}

// GraphRepository is the durable cache for similarity graphs.
// LoadGraph returns domain.ErrNotFound when no graph is stored under snapshot.
type GraphRepository interface {
	LoadGraph(ctx context.Context, snapshot string) (*domain.Graph, error)
	SaveGraph(ctx context.Context, snapshot string, g *domain.Graph) error
	// SaveEdgeWeights writes weights for edges that already exist. Edges with a
	// nil weight are skipped, so a known weight is never cleared. Writing the
	// same pair twice is harmless; the last write wins.
	SaveEdgeWeights(ctx context.Context, snapshot string, edges []domain.Edge) error
}
