package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
	"github.com/ewilliams-labs/moodgraph/internal/core/ports"
)

// BuildGraph scores every unordered pair of distinct tracks and connects the
// pairs scoring at least threshold. Tracks with no qualifying pair stay as
// isolated nodes.
func BuildGraph(c domain.Catalog, threshold float64) *domain.Graph {
	g := domain.NewGraph(threshold)
	ids := c.IDs()
	for _, id := range ids {
		g.AddNode(domain.NodeFromTrack(c[id]))
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if sim := domain.Similarity(c[ids[i]], c[ids[j]]); sim >= threshold {
				// both endpoints exist and differ
				_ = g.AddEdge(ids[i], ids[j], domain.Weighted(sim))
			}
		}
	}
	return g
}

// RepairResult describes what a warm repair changed.
type RepairResult struct {
	// Filled holds edges whose missing weight was computed.
	Filled []domain.Edge
	// Added holds catalog tracks merged into the graph as new nodes.
	Added []string
	// Dropped holds isolated nodes removed because the catalog lost them.
	Dropped []string
}

// TopologyChanged reports whether nodes or edges were added or removed.
func (r RepairResult) TopologyChanged() bool {
	return len(r.Added) > 0 || len(r.Dropped) > 0
}

// RepairGraph brings a persisted graph in line with c without recomputing
// any weight it already knows. Node mirrors are refreshed, unknown weights
// are computed, and tracks new to the graph are merged with only their own
// pairs scored against g.Threshold.
func RepairGraph(g *domain.Graph, c domain.Catalog) (RepairResult, error) {
	var res RepairResult

	for _, id := range g.NodeIDs() {
		if _, ok := c[id]; ok {
			continue
		}
		if nbs := g.Neighbors(id); len(nbs) > 0 {
			return RepairResult{}, domain.MissingTrackDataError{TrackID: id, Neighbor: nbs[0]}
		}
		g.RemoveNode(id)
		res.Dropped = append(res.Dropped, id)
	}

	existing := g.NodeIDs()
	for _, id := range existing {
		g.AddNode(domain.NodeFromTrack(c[id]))
	}

	for _, e := range g.UnweightedEdges() {
		w := domain.Similarity(c[e.U], c[e.V])
		if err := g.SetWeight(e.U, e.V, w); err != nil {
			return RepairResult{}, err
		}
		res.Filled = append(res.Filled, domain.Edge{U: e.U, V: e.V, Weight: domain.Weighted(w)})
	}

	for _, id := range c.IDs() {
		if g.HasNode(id) {
			continue
		}
		g.AddNode(domain.NodeFromTrack(c[id]))
		for _, other := range existing {
			if sim := domain.Similarity(c[id], c[other]); sim >= g.Threshold {
				_ = g.AddEdge(id, other, domain.Weighted(sim))
			}
		}
		existing = append(existing, id)
		res.Added = append(res.Added, id)
	}

	return res, nil
}

// GraphBuilder builds the similarity graph for a catalog snapshot, reusing the
// persisted graph when one exists.
type GraphBuilder struct {
	repo      ports.GraphRepository
	snapshot  string
	threshold float64
	log       logrus.FieldLogger
}

// NewGraphBuilder constructs a GraphBuilder. threshold is used as given;
// similarity scores can be negative, so zero and negative values are valid.
func NewGraphBuilder(repo ports.GraphRepository, snapshot string, threshold float64, log logrus.FieldLogger) *GraphBuilder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GraphBuilder{
		repo:      repo,
		snapshot:  snapshot,
		threshold: threshold,
		log:       log.WithField("snapshot", snapshot),
	}
}

// Threshold returns the threshold used for cold builds.
func (b *GraphBuilder) Threshold() float64 {
	return b.threshold
}

// Build loads and repairs the persisted graph, or performs a cold build when
// none exists. It fails with domain.ErrMissingTrackData when the persisted
// graph has edges to tracks the catalog no longer holds.
func (b *GraphBuilder) Build(ctx context.Context, c domain.Catalog) (*domain.Graph, error) {
	g, err := b.repo.LoadGraph(ctx, b.snapshot)
	if errors.Is(err, domain.ErrNotFound) {
		return b.Rebuild(ctx, c)
	}
	if err != nil {
		return nil, fmt.Errorf("service: failed to load graph: %w", err)
	}

	if g.Threshold != b.threshold {
		b.log.WithFields(logrus.Fields{
			"persisted": g.Threshold,
			"requested": b.threshold,
		}).Warn("persisted graph uses a different threshold; rebuild to apply the new one")
	}

	res, err := RepairGraph(g, c)
	if err != nil {
		return nil, fmt.Errorf("service: warm graph build: %w", err)
	}

	switch {
	case res.TopologyChanged():
		if err := b.repo.SaveGraph(ctx, b.snapshot, g); err != nil {
			return nil, fmt.Errorf("service: failed to save repaired graph: %w", err)
		}
	case len(res.Filled) > 0:
		if err := b.repo.SaveEdgeWeights(ctx, b.snapshot, res.Filled); err != nil {
			return nil, fmt.Errorf("service: failed to save edge weights: %w", err)
		}
	}

	for _, id := range res.Dropped {
		b.log.WithField("track_id", id).Warn("dropped isolated graph node missing from catalog")
	}
	b.log.WithFields(logrus.Fields{
		"nodes":  g.NodeCount(),
		"edges":  g.EdgeCount(),
		"filled": len(res.Filled),
		"added":  len(res.Added),
	}).Info("graph loaded")

	return g, nil
}

// Rebuild performs a cold build from c and replaces the persisted graph.
func (b *GraphBuilder) Rebuild(ctx context.Context, c domain.Catalog) (*domain.Graph, error) {
	g := BuildGraph(c, b.threshold)
	if err := b.repo.SaveGraph(ctx, b.snapshot, g); err != nil {
		return nil, fmt.Errorf("service: failed to save graph: %w", err)
	}
	b.log.WithFields(logrus.Fields{
		"nodes":     g.NodeCount(),
		"edges":     g.EdgeCount(),
		"isolated":  g.IsolatedCount(),
		"threshold": b.threshold,
	}).Info("graph built")
	return g, nil
}
