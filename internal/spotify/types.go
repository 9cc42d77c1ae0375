package spotify

import "github.com/justestif/go-songamizer/internal/store"

// Page is one page of playable playlist tracks.
type Page struct {
	Tracks     []store.Track
	Offset     int
	NextOffset int  // offset of the following page, valid when HasNext
	HasNext    bool // the API returned a next link
}

// Playlist is playlist metadata shown in the catalog.
type Playlist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// Device is a Spotify Connect playback target.
type Device struct {
	ID     string
	Name   string
	Type   string
	Active bool
}
