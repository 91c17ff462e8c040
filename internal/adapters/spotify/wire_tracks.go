package spotify

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

const featuresBatchSize = 100

// errFeaturesUnavailable is returned when the audio-features endpoint refuses
// the request outright (403/404), as it does for newer apps.
var errFeaturesUnavailable = errors.New("spotify adapter: audio features unavailable")

// FetchCatalog collects every track of the given playlists and enriches it
// with audio features. A track listed twice keeps its first occurrence.
// Tracks the API returns no analysis for are left out. When the endpoint is
// unavailable altogether, deterministic features are synthesized and the
// tracks are flagged FeaturesEstimated.
func (c *Client) FetchCatalog(ctx context.Context, playlistIDs []string) (domain.Catalog, error) {
	var order []string
	raw := make(map[string]spotifyTrack)
	for _, pid := range playlistIDs {
		tracks, err := c.fetchPlaylistTracks(ctx, pid)
		if err != nil {
			return nil, err
		}
		for _, st := range tracks {
			if _, seen := raw[st.ID]; seen {
				continue
			}
			raw[st.ID] = st
			order = append(order, st.ID)
		}
		c.log.WithFields(logrus.Fields{"playlist_id": pid, "tracks": len(tracks)}).Debug("playlist fetched")
	}

	catalog := make(domain.Catalog, len(order))
	skipped, estimated := 0, 0
	for start := 0; start < len(order); start += featuresBatchSize {
		batch := order[start:min(start+featuresBatchSize, len(order))]

		features, err := c.getAudioFeaturesBatch(ctx, batch)
		if errors.Is(err, errFeaturesUnavailable) {
			c.log.WithField("tracks", len(batch)).Warn("audio features unavailable, falling back to deterministic features")
			for _, id := range batch {
				t := mapTrackToDomain(raw[id], nil)
				t.Features = estimatedFeatures(id)
				t.FeaturesEstimated = true
				catalog.Add(t)
				estimated++
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, id := range batch {
			f, ok := features[id]
			if !ok {
				c.log.WithField("track_id", id).Debug("no audio features, skipping track")
				skipped++
				continue
			}
			t := mapTrackToDomain(raw[id], &f)
			if f.empty() {
				t.Features = estimatedFeatures(id)
				t.FeaturesEstimated = true
				estimated++
			}
			catalog.Add(t)
		}
	}

	c.log.WithFields(logrus.Fields{
		"playlists": len(playlistIDs),
		"tracks":    len(catalog),
		"skipped":   skipped,
		"estimated": estimated,
	}).Info("catalog fetched")
	return catalog, nil
}

// getAudioFeaturesBatch fetches audio features for up to 100 tracks in a
// single request. Tracks without analysis are absent from the result.
func (c *Client) getAudioFeaturesBatch(ctx context.Context, trackIDs []string) (map[string]spotifyAudioFeatures, error) {
	if len(trackIDs) == 0 {
		return make(map[string]spotifyAudioFeatures), nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(trackIDs, ","))

	var body audioFeaturesResponse
	err := c.getJSON(ctx, "/audio-features?"+q.Encode(), &body)
	var se *StatusError
	if errors.As(err, &se) && (se.Code == http.StatusForbidden || se.Code == http.StatusNotFound) {
		return nil, fmt.Errorf("%w: status %d", errFeaturesUnavailable, se.Code)
	}
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: features request failed: %w", err)
	}

	result := make(map[string]spotifyAudioFeatures, len(body.AudioFeatures))
	for _, f := range body.AudioFeatures {
		if f != nil && f.ID != "" { // Spotify returns null for some tracks
			result[f.ID] = *f
		}
	}
	return result, nil
}

// estimatedFeatures derives a stand-in vector from the track id alone. Each
// field takes the next 9 bits of the id's FNV-64a hash, so a given id always
// maps to the same vector across processes.
func estimatedFeatures(trackID string) domain.AudioFeatures {
	h := fnv.New64a()
	_, _ = h.Write([]byte(trackID))
	bits := h.Sum64()

	scale := func(lo, hi float64) float64 {
		v := float64(bits&0x1ff) / 0x1ff
		bits >>= 9
		return lo + v*(hi-lo)
	}
	return domain.AudioFeatures{
		Energy:           scale(0.1, 0.9),
		Tempo:            scale(60, 180),
		Valence:          scale(0.1, 0.9),
		Loudness:         scale(-30, -3),
		Danceability:     scale(0.1, 0.9),
		Acousticness:     scale(0.1, 0.9),
		Instrumentalness: scale(0.1, 0.9),
	}
}

// empty reports whether the API returned an entry with no analysis in it.
func (f spotifyAudioFeatures) empty() bool {
	f.ID = ""
	return f == spotifyAudioFeatures{}
}
