package badger

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", true, nil)
	if err != nil {
		t.Fatalf("Failed to open BadgerDB: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testCatalog() domain.Catalog {
	return domain.Catalog{
		"t1": {ID: "t1", Name: "One", Artist: "A", PreviewURL: "https://p.scdn.co/t1",
			Features: domain.AudioFeatures{Energy: 0.5, Tempo: 120, Valence: 0.8, Loudness: -5, Danceability: 0.6}},
		"t2": {ID: "t2", Name: "Two", Artist: "B", FeaturesEstimated: true,
			Features: domain.AudioFeatures{Energy: 0.2, Tempo: 80, Valence: 0.1, Loudness: -15, Danceability: 0.3}},
	}
}

func TestStore_Catalog(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.LoadCatalog(ctx, "snap"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.SaveCatalog(ctx, "snap", domain.Catalog{"gone": {ID: "gone"}, "t1": {ID: "t1"}}); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}
	if err := s.SaveCatalog(ctx, "snap", testCatalog()); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}
	if err := s.SaveCatalog(ctx, "snap2", domain.Catalog{"x": {ID: "x"}}); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}

	got, err := s.LoadCatalog(ctx, "snap")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if !reflect.DeepEqual(got, testCatalog()) {
		t.Fatalf("catalog mismatch:\n got %+v\nwant %+v", got, testCatalog())
	}

	if err := s.SaveCatalog(ctx, "empty", domain.Catalog{}); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}
	if got, err := s.LoadCatalog(ctx, "empty"); err != nil || len(got) != 0 {
		t.Fatalf("empty catalog: %v %v", got, err)
	}
}

func TestStore_CatalogSnapshotsAreIsolated(t *testing.T) {
	tests := []struct {
		name  string
		short string
		long  string
	}{
		{name: "separator in name", short: "a", long: "a:b"},
		{name: "plain prefix", short: "snap", long: "snapshot"},
		{name: "digits", short: "1", long: "1:1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := createTestStore(t)
			ctx := context.Background()

			long := domain.Catalog{"x": {ID: "x", Name: "X", Artist: "C"}}
			if err := s.SaveCatalog(ctx, tc.long, long); err != nil {
				t.Fatalf("SaveCatalog(%q): %v", tc.long, err)
			}
			if err := s.SaveCatalog(ctx, tc.short, testCatalog()); err != nil {
				t.Fatalf("SaveCatalog(%q): %v", tc.short, err)
			}

			got, err := s.LoadCatalog(ctx, tc.short)
			if err != nil || !reflect.DeepEqual(got, testCatalog()) {
				t.Fatalf("LoadCatalog(%q): got %+v, %v", tc.short, got, err)
			}
			got, err = s.LoadCatalog(ctx, tc.long)
			if err != nil || !reflect.DeepEqual(got, long) {
				t.Fatalf("LoadCatalog(%q): got %+v, %v", tc.long, got, err)
			}

			if err := s.UpdateTrackFeatures(ctx, tc.short, "x", domain.AudioFeatures{}); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("update across snapshots: expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_UpdateTrackFeatures(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.SaveCatalog(ctx, "snap", testCatalog()); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}

	f := testCatalog()["t2"].Features
	f.Energy = 0.71
	if err := s.UpdateTrackFeatures(ctx, "snap", "t2", f); err != nil {
		t.Fatalf("UpdateTrackFeatures: %v", err)
	}
	got, _ := s.LoadCatalog(ctx, "snap")
	if got["t2"].Features != f || !got["t2"].FeaturesEstimated {
		t.Fatalf("track after update: %+v", got["t2"])
	}
	if err := s.UpdateTrackFeatures(ctx, "snap", "nope", f); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Graph(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.LoadGraph(ctx, "snap"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SaveEdgeWeights(ctx, "snap", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for weights without graph, got %v", err)
	}

	g := domain.NewGraph(0.7)
	for _, tr := range testCatalog() {
		g.AddNode(domain.NodeFromTrack(tr))
	}
	_ = g.AddEdge("t1", "t2", nil)
	_ = g.AddEdge("t1", "t3", domain.Weighted(0))
	if err := s.SaveGraph(ctx, "snap", g); err != nil {
		t.Fatalf("SaveGraph: %v", err)
	}

	loaded, err := s.LoadGraph(ctx, "snap")
	if err != nil {
		t.Fatalf("LoadGraph: %v", err)
	}
	if !reflect.DeepEqual(loaded.Edges(), g.Edges()) || loaded.Threshold != 0.7 {
		t.Fatalf("graph mismatch: %+v", loaded.Edges())
	}
	if _, ok := loaded.Weight("t1", "t2"); ok {
		t.Fatalf("unknown weight loaded as known")
	}
	if w, ok := loaded.Weight("t1", "t3"); !ok || w != 0 {
		t.Fatalf("zero weight lost: %v,%v", w, ok)
	}
	if n, _ := loaded.Node("t1"); n.Name != "One" || n.Features.Tempo != 120 {
		t.Fatalf("node mirror: %+v", n)
	}

	fill := []domain.Edge{{U: "t2", V: "t1", Weight: domain.Weighted(0.42)}, {U: "t2", V: "zz", Weight: domain.Weighted(1)}}
	for i := 0; i < 2; i++ {
		if err := s.SaveEdgeWeights(ctx, "snap", fill); err != nil {
			t.Fatalf("SaveEdgeWeights: %v", err)
		}
	}
	loaded, _ = s.LoadGraph(ctx, "snap")
	if w, ok := loaded.Weight("t1", "t2"); !ok || w != 0.42 {
		t.Fatalf("weight not saved: %v,%v", w, ok)
	}
	if loaded.EdgeCount() != 2 || loaded.HasNode("zz") {
		t.Fatalf("topology changed by weight update")
	}
}
