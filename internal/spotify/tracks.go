package spotify

import (
	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-songamizer/internal/store"
)

// convertItems converts playlist items to playable tracks.
// Items with no track (removed or episodes), local files and tracks without an ID are dropped.
func convertItems(items []spotify.PlaylistItem) []store.Track {
	tracks := make([]store.Track, 0, len(items))
	for _, item := range items {
		if item.IsLocal || item.Track.Track == nil || item.Track.Track.ID == "" {
			continue
		}
		tracks = append(tracks, convertTrack(item.Track.Track))
	}
	return tracks
}

// convertTrack converts a Spotify FullTrack to store.Track.
func convertTrack(t *spotify.FullTrack) store.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return store.Track{
		ID:          t.ID.String(),
		Name:        t.Name,
		Artists:     artists,
		Album:       t.Album.Name,
		ReleaseDate: t.Album.ReleaseDate,
	}
}
