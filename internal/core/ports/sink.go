package ports

import "context"

// PlaylistSink creates a playlist on the music service and fills it with
// trackIDs in order. It returns the service's id for the new playlist.
type PlaylistSink interface {
	PublishPlaylist(ctx context.Context, name string, trackIDs []string) (string, error)
}
