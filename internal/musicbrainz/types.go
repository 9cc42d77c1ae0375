package musicbrainz

// releaseSearchResponse is the JSON response for a release search.
type releaseSearchResponse struct {
	Releases []release `json:"releases"`
}

// recordingSearchResponse is the JSON response for a recording search.
type recordingSearchResponse struct {
	Recordings []struct {
		FirstReleaseDate string    `json:"first-release-date"`
		Releases         []release `json:"releases"`
	} `json:"recordings"`
}

type release struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}
