package domain

import (
	"errors"
	"fmt"
	"strings"
)

// PlaylistSize is the number of tracks a full playlist holds.
const PlaylistSize = 10

var ErrDuplicateTrack = errors.New("domain: duplicate track")

// Playlist is an ordered, duplicate-free sequence of track ids generated for a mood.
type Playlist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Mood       Mood     `json:"mood"`
	TrackIDs   []string `json:"track_ids"`
	ExternalID string   `json:"external_id,omitempty"`
}

func NewPlaylist(id, name string, mood Mood) (*Playlist, error) {
	if id == "" || name == "" {
		return nil, errors.New("domain: invalid argument")
	}
	return &Playlist{
		ID:       id,
		Name:     name,
		Mood:     mood,
		TrackIDs: []string{},
	}, nil
}

// AddTrack appends a track id, rejecting ids already in the playlist with
// ErrDuplicateTrack.
func (p *Playlist) AddTrack(id string) error {
	for _, ex := range p.TrackIDs {
		if ex == id {
			return fmt.Errorf("%w: %s", ErrDuplicateTrack, id)
		}
	}
	p.TrackIDs = append(p.TrackIDs, id)
	return nil
}

// Full reports whether the playlist reached PlaylistSize.
func (p *Playlist) Full() bool {
	return len(p.TrackIDs) >= PlaylistSize
}

// DefaultPlaylistName names a playlist after its mood, e.g. "happy vibes".
func DefaultPlaylistName(m Mood) string {
	label := strings.TrimSpace(string(m))
	if label == "" {
		label = string(MoodSurpriseMe)
	}
	return label + " vibes"
}
