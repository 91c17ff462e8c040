package spotify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
)

const (
	playlistPageSize = 100
	addTracksBatch   = 100
)

// fetchPlaylistTracks pages through a playlist's tracks. Removed, local and
// id-less items are skipped.
func (c *Client) fetchPlaylistTracks(ctx context.Context, playlistID string) ([]spotifyTrack, error) {
	var tracks []spotifyTrack
	offset := 0
	for {
		q := url.Values{}
		q.Set("limit", fmt.Sprint(playlistPageSize))
		q.Set("offset", fmt.Sprint(offset))
		q.Set("fields", "items(track(id,name,artists(id,name),preview_url,is_local)),next,total")

		var page playlistTracksPage
		path := fmt.Sprintf("/playlists/%s/tracks?%s", url.PathEscape(playlistID), q.Encode())
		if err := c.getJSON(ctx, path, &page); err != nil {
			return nil, fmt.Errorf("spotify adapter: playlist %s: %w", playlistID, err)
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" || item.Track.IsLocal {
				continue
			}
			tracks = append(tracks, *item.Track)
		}

		if page.Next == nil || len(page.Items) == 0 {
			return tracks, nil
		}
		offset += len(page.Items)
	}
}

// PublishPlaylist creates a playlist named name in the current user's account
// and adds trackIDs in order. It returns the new playlist's Spotify id.
func (c *Client) PublishPlaylist(ctx context.Context, name string, trackIDs []string) (string, error) {
	var me spotifyUser
	if err := c.getJSON(ctx, "/me", &me); err != nil {
		return "", fmt.Errorf("spotify adapter: failed to resolve current user: %w", err)
	}

	var created spotifyPlaylist
	if err := c.postJSON(ctx, fmt.Sprintf("/users/%s/playlists", url.PathEscape(me.ID)), createPlaylistRequest{
		Name:   name,
		Public: true,
	}, &created); err != nil {
		return "", fmt.Errorf("spotify adapter: failed to create playlist: %w", err)
	}

	// Spotify requires URIs in the format "spotify:track:{id}"
	for start := 0; start < len(trackIDs); start += addTracksBatch {
		end := min(start+addTracksBatch, len(trackIDs))
		uris := make([]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			uris = append(uris, "spotify:track:"+id)
		}
		if err := c.postJSON(ctx, fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(created.ID)), addTracksRequest{Uris: uris}, nil); err != nil {
			return "", fmt.Errorf("spotify adapter: failed to add tracks to %s: %w", created.ID, err)
		}
	}

	c.log.WithField("external_id", created.ID).WithField("tracks", len(trackIDs)).Info("playlist published")
	return created.ID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("spotify adapter: failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("spotify adapter: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out, http.StatusOK, http.StatusCreated)
}
