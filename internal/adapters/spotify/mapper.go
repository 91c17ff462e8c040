package spotify

import (
	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

// mapTrackToDomain converts a raw Spotify track to a domain track. Only the
// first listed artist is kept. features can be nil when the track has not been
// enriched yet.
func mapTrackToDomain(st spotifyTrack, features *spotifyAudioFeatures) domain.Track {
	artist := ""
	if len(st.Artists) > 0 {
		artist = st.Artists[0].Name
	}

	dt := domain.Track{
		ID:         st.ID,
		Name:       st.Name,
		Artist:     artist,
		PreviewURL: st.PreviewURL,
	}

	if features != nil {
		dt.Features = domain.AudioFeatures{
			Energy:           features.Energy,
			Tempo:            features.Tempo,
			Valence:          features.Valence,
			Loudness:         features.Loudness,
			Danceability:     features.Danceability,
			Acousticness:     features.Acousticness,
			Instrumentalness: features.Instrumentalness,
		}
	}

	return dt
}
