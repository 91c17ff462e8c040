package domain

import "math"

const (
	// tempoSpread maps a tempo difference of this many BPM to a distance of 1.0.
	tempoSpread = 100.0
	// loudnessSpread maps a loudness difference of this many dB to a distance of 1.0.
	loudnessSpread = 10.0
)

// Similarity scores how alike two tracks sound. It averages four per-dimension
// distances (energy, tempo, valence, loudness) and subtracts the mean from 1.
//
// The score is not clamped. Identical features give exactly 1.0, while large
// tempo or loudness gaps can push it below zero.
func Similarity(a, b Track) float64 {
	fa, fb := a.Features, b.Features
	energy := math.Abs(fa.Energy - fb.Energy)
	tempo := math.Abs(fa.Tempo-fb.Tempo) / tempoSpread
	valence := math.Abs(fa.Valence - fb.Valence)
	loudness := math.Abs(fa.Loudness-fb.Loudness) / loudnessSpread
	return 1 - (energy+tempo+valence+loudness)/4
}
