package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

func builderCatalog() domain.Catalog {
	return domain.Catalog{
		"t1": track("t1", 0.50, 120, 0.80, -5, 0.5),
		"t2": track("t2", 0.55, 124, 0.75, -6, 0.5),
		"t3": track("t3", 0.60, 130, 0.70, -7, 0.5),
		"t4": track("t4", 0.10, 70, 0.10, -25, 0.2),
		"t5": track("t5", 0.90, 180, 0.95, -2, 0.9),
	}
}

func TestBuildGraph_EdgesMeetThreshold(t *testing.T) {
	c := builderCatalog()
	g := BuildGraph(c, 0.7)

	if got := g.NodeCount(); got != len(c) {
		t.Fatalf("NodeCount: got %d, want %d", got, len(c))
	}
	ids := c.IDs()
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			u, v := ids[i], ids[j]
			sim := domain.Similarity(c[u], c[v])
			w, ok := g.Weight(u, v)
			if (sim >= 0.7) != g.HasEdge(u, v) {
				t.Fatalf("edge %s-%s: similarity %v, HasEdge %v", u, v, sim, g.HasEdge(u, v))
			}
			if ok && w != sim {
				t.Fatalf("edge %s-%s weight: got %v, want %v", u, v, w, sim)
			}
		}
	}
	if g.Degree("t4") != 0 {
		t.Fatalf("t4 should be isolated, degree %d", g.Degree("t4"))
	}
	if n, _ := g.Node("t1"); n.Name != "Song t1" || n.Features != c["t1"].Features {
		t.Fatalf("node mirror not populated: %+v", n)
	}
}

func TestBuildGraph_ThresholdMonotonic(t *testing.T) {
	c := builderCatalog()
	thresholds := []float64{-1, 0, 0.5, 0.7, 0.8, 0.9, 0.95, 1, 1.1}
	for i := 1; i < len(thresholds); i++ {
		lower := BuildGraph(c, thresholds[i-1])
		higher := BuildGraph(c, thresholds[i])
		for _, e := range higher.Edges() {
			if !lower.HasEdge(e.U, e.V) {
				t.Fatalf("edge %s-%s present at %v but absent at %v", e.U, e.V, thresholds[i], thresholds[i-1])
			}
		}
		if higher.EdgeCount() > lower.EdgeCount() {
			t.Fatalf("edge count grew from %d to %d when raising threshold", lower.EdgeCount(), higher.EdgeCount())
		}
	}
}

func TestGraphBuilder_ColdBuildPersists(t *testing.T) {
	repo := newMemRepo()
	b := NewGraphBuilder(repo, "snap", 0.7, quietLogger())

	g, err := b.Build(context.Background(), builderCatalog())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if repo.saveGraphCalls != 1 {
		t.Fatalf("expected one SaveGraph call, got %d", repo.saveGraphCalls)
	}
	stored, err := repo.LoadGraph(context.Background(), "snap")
	if err != nil {
		t.Fatalf("LoadGraph: %v", err)
	}
	if stored.EdgeCount() != g.EdgeCount() || stored.NodeCount() != g.NodeCount() {
		t.Fatalf("persisted graph differs: %d/%d vs %d/%d", stored.NodeCount(), stored.EdgeCount(), g.NodeCount(), g.EdgeCount())
	}
}

func TestGraphBuilder_KeepsNonPositiveThreshold(t *testing.T) {
	c := builderCatalog()
	tests := []struct {
		name      string
		threshold float64
		wantEdges int
	}{
		// t4-t5 scores below zero; every other pair is non-negative
		{name: "zero", threshold: 0, wantEdges: 9},
		{name: "negative", threshold: -1, wantEdges: 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewGraphBuilder(newMemRepo(), "snap", tc.threshold, quietLogger())
			if b.Threshold() != tc.threshold {
				t.Fatalf("Threshold: got %v, want %v", b.Threshold(), tc.threshold)
			}
			g, err := b.Build(context.Background(), c)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if g.Threshold != tc.threshold || g.EdgeCount() != tc.wantEdges {
				t.Fatalf("graph: threshold %v, %d edges, want %v and %d", g.Threshold, g.EdgeCount(), tc.threshold, tc.wantEdges)
			}
		})
	}
}

func TestGraphBuilder_WarmBuildFillsOnlyMissingWeights(t *testing.T) {
	repo := newMemRepo()
	c := builderCatalog()
	// t1-t2 carries a stale known weight that no longer matches the features;
	// t2-t3 and t4-t5 have unknown weights.
	repo.putGraph("snap", 0.7, c.IDs(), []domain.Edge{
		{U: "t1", V: "t2", Weight: domain.Weighted(0.42)},
		{U: "t2", V: "t3"},
		{U: "t4", V: "t5"},
	})

	b := NewGraphBuilder(repo, "snap", 0.7, quietLogger())
	g, err := b.Build(context.Background(), c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if w, ok := g.Weight("t1", "t2"); !ok || w != 0.42 {
		t.Fatalf("known weight changed: got %v,%v want 0.42", w, ok)
	}
	if w, ok := g.Weight("t2", "t3"); !ok || math.Abs(w-domain.Similarity(c["t2"], c["t3"])) > 1e-12 {
		t.Fatalf("t2-t3 weight not filled: %v,%v", w, ok)
	}
	// filled regardless of the threshold: the topology is kept as persisted
	if w, ok := g.Weight("t4", "t5"); !ok || w != domain.Similarity(c["t4"], c["t5"]) {
		t.Fatalf("t4-t5 weight not filled: %v,%v", w, ok)
	}
	if g.EdgeCount() != 3 {
		t.Fatalf("warm build changed topology: %d edges", g.EdgeCount())
	}
	if n, _ := g.Node("t3"); n.Name != "Song t3" {
		t.Fatalf("node mirror not refreshed: %+v", n)
	}

	if repo.saveGraphCalls != 0 {
		t.Fatalf("unexpected full graph save")
	}
	if repo.saveWeightsCalls != 1 || len(repo.savedWeights) != 2 {
		t.Fatalf("expected 2 weights saved in one call, got %d calls %+v", repo.saveWeightsCalls, repo.savedWeights)
	}

	// second warm build has nothing left to fill
	if _, err := b.Build(context.Background(), c); err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if repo.saveWeightsCalls != 1 {
		t.Fatalf("second build rewrote weights")
	}
}

func TestGraphBuilder_WarmBuildNeverAltersKnownWeights(t *testing.T) {
	repo := newMemRepo()
	c := builderCatalog()
	b := NewGraphBuilder(repo, "snap", 0.7, quietLogger())
	before, err := b.Build(context.Background(), c)
	if err != nil {
		t.Fatalf("cold Build: %v", err)
	}
	known := before.Edges()

	// features drift after the cold build
	changed := domain.Catalog{}
	for id, tr := range c {
		tr.Features.Tempo += 40
		tr.Features.Energy = 1 - tr.Features.Energy
		changed[id] = tr
	}
	after, err := b.Build(context.Background(), changed)
	if err != nil {
		t.Fatalf("warm Build: %v", err)
	}
	for _, e := range known {
		w, ok := after.Weight(e.U, e.V)
		if !ok || w != *e.Weight {
			t.Fatalf("edge %s-%s: weight %v,%v, want %v", e.U, e.V, w, ok, *e.Weight)
		}
	}
	if n, _ := after.Node("t1"); n.Features != changed["t1"].Features {
		t.Fatalf("mirror not refreshed from the current catalog")
	}
}

func TestGraphBuilder_WarmBuildMergesNewTracks(t *testing.T) {
	repo := newMemRepo()
	c := builderCatalog()
	// t1-t2 would qualify but was never persisted; t1-t4 would not but was.
	repo.putGraph("snap", 0.7, []string{"t1", "t2", "t4"}, []domain.Edge{
		{U: "t1", V: "t4", Weight: domain.Weighted(0.9)},
	})

	b := NewGraphBuilder(repo, "snap", 0.7, quietLogger())
	g, err := b.Build(context.Background(), c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, id := range c.IDs() {
		if !g.HasNode(id) {
			t.Fatalf("catalog track %s missing from graph", id)
		}
	}
	// pairs among previously known tracks are not re-evaluated
	if g.HasEdge("t1", "t2") || !g.HasEdge("t1", "t4") {
		t.Fatalf("existing pairs were re-scored")
	}
	for _, nu := range []string{"t3", "t5"} {
		for _, other := range c.IDs() {
			if other == nu {
				continue
			}
			want := domain.Similarity(c[nu], c[other]) >= 0.7
			if g.HasEdge(nu, other) != want {
				t.Fatalf("new pair %s-%s: HasEdge %v, want %v", nu, other, g.HasEdge(nu, other), want)
			}
		}
	}
	if repo.saveGraphCalls != 1 {
		t.Fatalf("expected merged graph to be saved, got %d saves", repo.saveGraphCalls)
	}
}

func TestGraphBuilder_MissingTrackData(t *testing.T) {
	repo := newMemRepo()
	repo.putGraph("snap", 0.7, []string{"t1", "gone"}, []domain.Edge{
		{U: "gone", V: "t1"},
	})

	b := NewGraphBuilder(repo, "snap", 0.7, quietLogger())
	_, err := b.Build(context.Background(), builderCatalog())
	if !errors.Is(err, domain.ErrMissingTrackData) {
		t.Fatalf("expected ErrMissingTrackData, got %v", err)
	}
	var mtd domain.MissingTrackDataError
	if !errors.As(err, &mtd) || mtd.TrackID != "gone" {
		t.Fatalf("expected MissingTrackDataError for gone, got %#v", err)
	}

	// the recovery path is a cold rebuild
	g, err := b.Rebuild(context.Background(), builderCatalog())
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if g.HasNode("gone") {
		t.Fatalf("rebuild kept stale node")
	}
}

func TestGraphBuilder_DropsStaleIsolatedNodes(t *testing.T) {
	repo := newMemRepo()
	repo.putGraph("snap", 0.7, []string{"t1", "t2", "t3", "t4", "t5", "orphan"}, nil)

	b := NewGraphBuilder(repo, "snap", 0.7, quietLogger())
	g, err := b.Build(context.Background(), builderCatalog())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.HasNode("orphan") {
		t.Fatalf("stale isolated node kept")
	}
	if repo.saveGraphCalls != 1 {
		t.Fatalf("expected graph save after dropping a node, got %d", repo.saveGraphCalls)
	}
}

func TestGraphBuilder_SaveError(t *testing.T) {
	repo := newMemRepo()
	repo.saveErr = errBoom
	b := NewGraphBuilder(repo, "snap", 0.7, quietLogger())
	if _, err := b.Build(context.Background(), builderCatalog()); !errors.Is(err, errBoom) {
		t.Fatalf("expected save error, got %v", err)
	}
}
