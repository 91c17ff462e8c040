package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when nothing is stored under a key.
	ErrNotFound = errors.New("domain: not found")

	// ErrNoEligibleTracks means no catalog track passed the mood filter.
	// Retrying with the same mood and catalog cannot succeed.
	ErrNoEligibleTracks = errors.New("domain: no eligible tracks")

	// ErrMissingTrackData means a persisted graph references a track the
	// catalog no longer has. A cold rebuild resolves it.
	ErrMissingTrackData = errors.New("domain: missing track data")

	// ErrInsufficientCatalog means fewer tracks were eligible than a full
	// playlist needs and the caller asked for an exact length.
	ErrInsufficientCatalog = errors.New("domain: insufficient catalog")
)

// NoEligibleTracksError names the mood that produced an empty pool.
type NoEligibleTracksError struct {
	Mood Mood
}

func (e NoEligibleTracksError) Error() string {
	return fmt.Sprintf("no tracks in the catalog match mood %q", e.Mood)
}

func (e NoEligibleTracksError) Is(target error) bool {
	return target == ErrNoEligibleTracks
}

// MissingTrackDataError identifies the graph edge whose endpoint is absent
// from the catalog.
type MissingTrackDataError struct {
	TrackID  string
	Neighbor string
}

func (e MissingTrackDataError) Error() string {
	if e.Neighbor == "" {
		return fmt.Sprintf("graph references track %q absent from the catalog", e.TrackID)
	}
	return fmt.Sprintf("graph edge %q-%q references track %q absent from the catalog", e.TrackID, e.Neighbor, e.TrackID)
}

func (e MissingTrackDataError) Is(target error) bool {
	return target == ErrMissingTrackData
}

// InsufficientCatalogError reports how short a playlist came out.
type InsufficientCatalogError struct {
	Mood     Mood
	Eligible int
	Want     int
}

func (e InsufficientCatalogError) Error() string {
	return fmt.Sprintf("mood %q has %d eligible tracks, %d required", e.Mood, e.Eligible, e.Want)
}

func (e InsufficientCatalogError) Is(target error) bool {
	return target == ErrInsufficientCatalog
}
