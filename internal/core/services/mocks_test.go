package services

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

// --- Mocks ---

type persistedGraph struct {
	threshold float64
	nodes     []domain.Node
	edges     []domain.Edge
}

// memRepo is an in-memory catalog and graph cache.
type memRepo struct {
	mu       sync.Mutex
	catalogs map[string]domain.Catalog
	graphs   map[string]persistedGraph

	loadErr error
	saveErr error

	saveGraphCalls   int
	saveWeightsCalls int
	savedWeights     []domain.Edge
}

func newMemRepo() *memRepo {
	return &memRepo{
		catalogs: make(map[string]domain.Catalog),
		graphs:   make(map[string]persistedGraph),
	}
}

func (m *memRepo) LoadCatalog(ctx context.Context, snapshot string) (domain.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	c, ok := m.catalogs[snapshot]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make(domain.Catalog, len(c))
	for id, t := range c {
		out[id] = t
	}
	return out, nil
}

func (m *memRepo) SaveCatalog(ctx context.Context, snapshot string, c domain.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := make(domain.Catalog, len(c))
	for id, t := range c {
		cp[id] = t
	}
	m.catalogs[snapshot] = cp
	return nil
}

func (m *memRepo) UpdateTrackFeatures(ctx context.Context, snapshot, trackID string, f domain.AudioFeatures) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.catalogs[snapshot][trackID]
	if !ok {
		return domain.ErrNotFound
	}
	t.Features = f
	m.catalogs[snapshot][trackID] = t
	return nil
}

func (m *memRepo) LoadGraph(ctx context.Context, snapshot string) (*domain.Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pg, ok := m.graphs[snapshot]
	if !ok {
		return nil, domain.ErrNotFound
	}
	g := domain.NewGraph(pg.threshold)
	for _, n := range pg.nodes {
		g.AddNode(n)
	}
	for _, e := range pg.edges {
		if err := g.AddEdge(e.U, e.V, e.Weight); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (m *memRepo) SaveGraph(ctx context.Context, snapshot string, g *domain.Graph) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saveGraphCalls++
	pg := persistedGraph{threshold: g.Threshold, edges: g.Edges()}
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		pg.nodes = append(pg.nodes, n)
	}
	m.graphs[snapshot] = pg
	return nil
}

func (m *memRepo) SaveEdgeWeights(ctx context.Context, snapshot string, edges []domain.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saveWeightsCalls++
	m.savedWeights = append(m.savedWeights, edges...)
	pg := m.graphs[snapshot]
	for _, e := range edges {
		for i := range pg.edges {
			if pg.edges[i].U == e.U && pg.edges[i].V == e.V {
				w := *e.Weight
				pg.edges[i].Weight = &w
			}
		}
	}
	m.graphs[snapshot] = pg
	return nil
}

// putGraph seeds a persisted graph directly, as if an earlier process wrote it.
func (m *memRepo) putGraph(snapshot string, threshold float64, nodes []string, edges []domain.Edge) {
	pg := persistedGraph{threshold: threshold, edges: edges}
	for _, id := range nodes {
		pg.nodes = append(pg.nodes, domain.Node{ID: id})
	}
	m.graphs[snapshot] = pg
}

type mockProvider struct {
	catalog domain.Catalog
	err     error
	calls   int
	gotIDs  []string
}

func (m *mockProvider) FetchCatalog(ctx context.Context, playlistIDs []string) (domain.Catalog, error) {
	m.calls++
	m.gotIDs = playlistIDs
	if m.err != nil {
		return nil, m.err
	}
	return m.catalog, nil
}

type mockSink struct {
	err      error
	gotName  string
	gotIDs   []string
	returnID string
}

func (m *mockSink) PublishPlaylist(ctx context.Context, name string, trackIDs []string) (string, error) {
	m.gotName = name
	m.gotIDs = trackIDs
	if m.err != nil {
		return "", m.err
	}
	return m.returnID, nil
}

type mockClassifier struct {
	mood domain.Mood
	err  error
}

func (m *mockClassifier) ClassifyMood(ctx context.Context, message string) (domain.Mood, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.mood, nil
}

type mockQueue struct {
	queued []string
}

func (m *mockQueue) Enqueue(snapshot string, t domain.Track) {
	m.queued = append(m.queued, t.ID)
}

// scriptedRand returns queued values (reduced modulo n), then zeros.
type scriptedRand struct {
	values []int
}

func (s *scriptedRand) Intn(n int) int {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v % n
}

var errBoom = errors.New("boom")

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

// --- Fixtures ---

func track(id string, energy, tempo, valence, loudness, dance float64) domain.Track {
	return domain.Track{
		ID:     id,
		Name:   "Song " + id,
		Artist: "Artist " + id,
		Features: domain.AudioFeatures{
			Energy:       energy,
			Tempo:        tempo,
			Valence:      valence,
			Loudness:     loudness,
			Danceability: dance,
		},
	}
}

// happyCatalog returns n tracks that all satisfy "happy" and sit far apart
// in tempo so that no pair reaches the default threshold.
func happyCatalog(n int) domain.Catalog {
	c := make(domain.Catalog, n)
	for i := 0; i < n; i++ {
		id := string(rune('A'+i)) + "-track"
		c[id] = track(id, 0.5, 60+float64(i)*200, 0.9, -5, 0.5)
	}
	return c
}
