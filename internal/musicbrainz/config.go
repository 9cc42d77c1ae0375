// Package musicbrainz provides MusicBrainz API integration for looking up original release dates.
package musicbrainz

import "time"

const (
	// DefaultBaseURL is the MusicBrainz web service root.
	DefaultBaseURL = "https://musicbrainz.org/ws/2/"

	// DefaultUserAgent identifies the application, as MusicBrainz requires.
	DefaultUserAgent = "songamizer/1.0 ( https://github.com/justestif/go-songamizer )"

	// DefaultInterval is the minimum spacing between requests allowed for anonymous clients.
	DefaultInterval = time.Second
)

// Config holds MusicBrainz API configuration.
type Config struct {
	BaseURL   string
	UserAgent string
	Interval  time.Duration // minimum time between requests
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.BaseURL[len(c.BaseURL)-1] != '/' {
		c.BaseURL += "/"
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	return c
}
