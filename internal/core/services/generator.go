package services

import (
	"math/rand"
	"sync"
	"time"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

// RandomSource draws uniform integers in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// Generator turns a mood into an ordered playlist of track ids.
type Generator struct {
	mu   sync.Mutex
	rng  RandomSource
	size int
}

// NewGenerator constructs a Generator drawing from rng. A nil rng selects a
// time-seeded source.
func NewGenerator(rng RandomSource) *Generator {
	if rng == nil {
		// #nosec G404 -- playlist shuffling is not security-sensitive
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng, size: domain.PlaylistSize}
}

// Generate filters c by mood and orders up to ten eligible tracks.
//
// "surprise me" and unrecognized moods get a random sample. Other moods start
// at a random eligible track and repeatedly step to the heaviest unvisited
// eligible neighbor in g, breaking ties on the lowest id. When the walk
// stalls the rest is padded with a random sample of the unvisited pool.
// The result is shorter than ten only when fewer tracks are eligible.
func (gen *Generator) Generate(c domain.Catalog, mood domain.Mood, g *domain.Graph) ([]string, error) {
	eligible := domain.FilterByMood(c, mood)
	if len(eligible) == 0 {
		return nil, domain.NoEligibleTracksError{Mood: mood}
	}

	want := gen.size
	if len(eligible) < want {
		want = len(eligible)
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()

	if !mood.Walkable() || g == nil {
		return gen.sample(eligible, want), nil
	}
	return gen.walk(eligible, want, g), nil
}

func (gen *Generator) walk(eligible []string, want int, g *domain.Graph) []string {
	pool := make(map[string]bool, len(eligible))
	for _, id := range eligible {
		pool[id] = true
	}

	current := eligible[gen.rng.Intn(len(eligible))]
	visited := map[string]bool{current: true}
	playlist := []string{current}

	for len(playlist) < want {
		next, best := "", 0.0
		for _, nb := range g.Neighbors(current) {
			if visited[nb] || !pool[nb] {
				continue
			}
			w, ok := g.Weight(current, nb)
			if !ok {
				continue
			}
			if next == "" || w > best {
				next, best = nb, w
			}
		}
		if next == "" {
			break
		}
		visited[next] = true
		playlist = append(playlist, next)
		current = next
	}

	if len(playlist) < want {
		remaining := make([]string, 0, len(eligible)-len(playlist))
		for _, id := range eligible {
			if !visited[id] {
				remaining = append(remaining, id)
			}
		}
		playlist = append(playlist, gen.sample(remaining, want-len(playlist))...)
	}
	return playlist
}

// sample draws k distinct ids from pool without replacement using a partial
// Fisher-Yates shuffle. pool is not modified.
func (gen *Generator) sample(pool []string, k int) []string {
	if k > len(pool) {
		k = len(pool)
	}
	p := append([]string(nil), pool...)
	for i := 0; i < k; i++ {
		j := i + gen.rng.Intn(len(p)-i)
		p[i], p[j] = p[j], p[i]
	}
	return p[:k]
}
