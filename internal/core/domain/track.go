package domain

import "sort"

// AudioFeatures holds the numeric descriptors used for similarity scoring and mood filtering.
type AudioFeatures struct {
	Energy           float64 `json:"energy"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
	Loudness         float64 `json:"loudness"`
	Danceability     float64 `json:"danceability"`
	Acousticness     float64 `json:"acousticness,omitempty"`
	Instrumentalness float64 `json:"instrumentalness,omitempty"`
}

// Track represents a musical track in the domain layer.
type Track struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Artist     string        `json:"artist"`
	PreviewURL string        `json:"preview_url,omitempty"`
	Features   AudioFeatures `json:"features"`

	// FeaturesEstimated is set when the music API had no analysis for the track
	// and Features were synthesized instead.
	FeaturesEstimated bool `json:"features_estimated,omitempty"`
}

// Catalog is the set of known tracks keyed by track id.
type Catalog map[string]Track

// IDs returns the catalog's track ids in ascending order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Add inserts t unless a track with the same id is already present.
// It reports whether the track was added.
func (c Catalog) Add(t Track) bool {
	if _, ok := c[t.ID]; ok {
		return false
	}
	c[t.ID] = t
	return true
}
