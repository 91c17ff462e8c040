package domain

import (
	"math"
	"testing"
)

func TestSimilarity(t *testing.T) {
	base := Track{ID: "a", Features: AudioFeatures{Energy: 0.5, Tempo: 120, Valence: 0.5, Loudness: -8, Danceability: 0.6}}

	tests := []struct {
		name string
		a, b Track
		want float64
	}{
		{
			name: "identical features score 1",
			a:    base,
			b:    Track{ID: "b", Features: base.Features},
			want: 1.0,
		},
		{
			name: "tempo spread of 100 bpm counts as a full unit",
			a:    base,
			b:    Track{ID: "b", Features: AudioFeatures{Energy: 0.5, Tempo: 220, Valence: 0.5, Loudness: -8}},
			want: 0.75,
		},
		{
			name: "loudness spread of 10 dB counts as a full unit",
			a:    base,
			b:    Track{ID: "b", Features: AudioFeatures{Energy: 0.5, Tempo: 120, Valence: 0.5, Loudness: -18}},
			want: 0.75,
		},
		{
			name: "all four dimensions combine",
			a:    base,
			b:    Track{ID: "b", Features: AudioFeatures{Energy: 0.7, Tempo: 100, Valence: 0.1, Loudness: -10}},
			// (0.2 + 0.2 + 0.4 + 0.2) / 4 = 0.25
			want: 0.75,
		},
		{
			name: "danceability is not scored",
			a:    base,
			b:    Track{ID: "b", Features: AudioFeatures{Energy: 0.5, Tempo: 120, Valence: 0.5, Loudness: -8, Danceability: 0.0}},
			want: 1.0,
		},
		{
			name: "large gaps go negative",
			a:    Track{ID: "a", Features: AudioFeatures{Tempo: 60, Loudness: 0}},
			b:    Track{ID: "b", Features: AudioFeatures{Tempo: 560, Loudness: -60}},
			// (0 + 5 + 0 + 6) / 4 = 2.75
			want: -1.75,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Similarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Similarity: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	tracks := []Track{
		{ID: "a", Features: AudioFeatures{Energy: 0.1, Tempo: 80, Valence: 0.9, Loudness: -20}},
		{ID: "b", Features: AudioFeatures{Energy: 0.9, Tempo: 175, Valence: 0.2, Loudness: -3}},
		{ID: "c", Features: AudioFeatures{Energy: 0.4, Tempo: 128, Valence: 0.5, Loudness: -7.5}},
	}
	for _, a := range tracks {
		for _, b := range tracks {
			if ab, ba := Similarity(a, b), Similarity(b, a); ab != ba {
				t.Fatalf("Similarity(%s,%s)=%v but Similarity(%s,%s)=%v", a.ID, b.ID, ab, b.ID, a.ID, ba)
			}
		}
		if self := Similarity(a, a); self != 1.0 {
			t.Fatalf("Similarity(%s,%s): got %v, want 1", a.ID, a.ID, self)
		}
	}
}
