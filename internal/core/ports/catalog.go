package ports

import (
	"context"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

// CatalogProvider acquires the raw catalog from the music service. The
// returned catalog is already deduplicated by track id.
type CatalogProvider interface {
	FetchCatalog(ctx context.Context, playlistIDs []string) (domain.Catalog, error)
}
