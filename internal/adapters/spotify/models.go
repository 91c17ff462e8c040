package spotify

// spotifyArtist represents an artist from the Spotify API.
type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// spotifyTrack represents the Spotify API track object.
type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	PreviewURL string          `json:"preview_url"`
	IsLocal    bool            `json:"is_local"`
}

// playlistTracksPage is one page of GET /playlists/{id}/tracks.
type playlistTracksPage struct {
	Items []struct {
		Track *spotifyTrack `json:"track"`
	} `json:"items"`
	Next  *string `json:"next"`
	Total int     `json:"total"`
}

// spotifyAudioFeatures represents one entry of GET /audio-features.
type spotifyAudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	Loudness         float64 `json:"loudness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Acousticness     float64 `json:"acousticness"`
}

// audioFeaturesResponse holds null entries for tracks without analysis.
type audioFeaturesResponse struct {
	AudioFeatures []*spotifyAudioFeatures `json:"audio_features"`
}

type spotifyUser struct {
	ID string `json:"id"`
}

type spotifyPlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Public      bool   `json:"public"`
}

// addTracksRequest represents the request body for adding tracks to a playlist.
type addTracksRequest struct {
	Uris []string `json:"uris"`
}
