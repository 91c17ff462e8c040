package domain

import (
	"sort"
	"strings"
)

// Mood is a requested listening mood. Any label is accepted; labels outside
// KnownMoods do not filter the catalog.
type Mood string

const (
	MoodHappy      Mood = "happy"
	MoodSad        Mood = "sad"
	MoodChill      Mood = "chill"
	MoodHighEnergy Mood = "high-energy"
	MoodSurpriseMe Mood = "surprise me"
)

// KnownMoods lists the recognized moods in menu order.
var KnownMoods = []Mood{MoodHappy, MoodSad, MoodChill, MoodHighEnergy, MoodSurpriseMe}

// ParseMood trims and lower-cases a raw label.
func ParseMood(raw string) Mood {
	return Mood(strings.ToLower(strings.TrimSpace(raw)))
}

// IsKnown reports whether m is one of KnownMoods.
func (m Mood) IsKnown() bool {
	for _, k := range KnownMoods {
		if m == k {
			return true
		}
	}
	return false
}

// Walkable reports whether playlists for m are ordered by walking the
// similarity graph. "surprise me" and unrecognized moods are sampled instead.
func (m Mood) Walkable() bool {
	return m.IsKnown() && m != MoodSurpriseMe
}

// Matches reports whether features qualify for the mood.
func (m Mood) Matches(f AudioFeatures) bool {
	switch m {
	case MoodHappy:
		return f.Valence > 0.7
	case MoodSad:
		return f.Valence < 0.3
	case MoodChill:
		return f.Tempo < 100 && f.Loudness < -10
	case MoodHighEnergy:
		return f.Energy > 0.7 && f.Danceability > 0.7
	default:
		return true
	}
}

// FilterByMood returns the ids of every catalog track matching mood, in
// ascending order.
func FilterByMood(c Catalog, mood Mood) []string {
	eligible := make([]string, 0, len(c))
	for id, t := range c {
		if mood.Matches(t.Features) {
			eligible = append(eligible, id)
		}
	}
	sort.Strings(eligible)
	return eligible
}
