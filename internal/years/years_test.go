package years

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-songamizer/internal/musicbrainz"
	"github.com/justestif/go-songamizer/internal/store"
)

// mockFetcher implements DateFetcher for testing.
type mockFetcher struct {
	dates     []string
	err       error
	callCount atomic.Int32
}

func (m *mockFetcher) ReleaseDates(_ context.Context, _, _, _ string) ([]string, error) {
	m.callCount.Add(1)
	return m.dates, m.err
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newResolver(f DateFetcher, cache store.YearCache) *Resolver {
	return NewResolver(f, cache, WithClock(func() time.Time { return fixedNow }))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		fallback  int
		dates     []string
		err       error
		want      int
		wantCalls int32
		wantCache bool
	}{
		{
			name:      "valid fallback skips lookup",
			fallback:  2015,
			dates:     []string{"1960"},
			want:      2015,
			wantCalls: 0,
		},
		{
			name:      "earliest valid date wins",
			fallback:  0,
			dates:     []string{"1987-06-01", "1967-03-01", "1899", "2099-01-01", ""},
			want:      1967,
			wantCalls: 1,
			wantCache: true,
		},
		{
			name:      "future fallback is looked up",
			fallback:  2099,
			dates:     []string{"1971"},
			want:      1971,
			wantCalls: 1,
			wantCache: true,
		},
		{
			name:      "no valid date yields current year",
			fallback:  0,
			dates:     []string{"1850", "unknown"},
			want:      2024,
			wantCalls: 1,
		},
		{
			name:      "lookup error yields current year",
			fallback:  1800,
			err:       errors.New("connection refused"),
			want:      2024,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &mockFetcher{dates: tt.dates, err: tt.err}
			cache := store.NewMemory().Store().Years
			r := newResolver(f, cache)

			got := r.Resolve(context.Background(), "Song", "Artist", "Album", tt.fallback)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, f.callCount.Load())

			entry, err := cache.Get(context.Background(), "Song", "Artist")
			if tt.wantCache {
				require.NoError(t, err)
				assert.Equal(t, tt.want, entry.OriginalYear)
				assert.Equal(t, fixedNow.Add(CacheTTL), entry.ExpiresAt)
			} else {
				assert.ErrorIs(t, err, store.ErrNotFound)
			}
		})
	}
}

func TestResolve_UsesCache(t *testing.T) {
	f := &mockFetcher{dates: []string{"1967"}}
	r := newResolver(f, store.NewMemory().Store().Years)

	ctx := context.Background()
	assert.Equal(t, 1967, r.Resolve(ctx, "Song", "Artist", "", 0))
	assert.Equal(t, 1967, r.Resolve(ctx, "Song", "Artist", "", 0))
	assert.Equal(t, int32(1), f.callCount.Load())

	// A different artist is a different key.
	r.Resolve(ctx, "Song", "Other Artist", "", 0)
	assert.Equal(t, int32(2), f.callCount.Load())
}

func TestResolve_RoundTripThroughMusicBrainz(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"recordings":[{"first-release-date":"1967-03-01","releases":[{"date":"1990-01-01"}]}]}`)
	}))

	client := musicbrainz.NewClient(musicbrainz.Config{BaseURL: server.URL, Interval: time.Millisecond},
		musicbrainz.WithHTTPClient(server.Client()))
	r := NewResolver(client, store.NewMemory().Store().Years)

	ctx := context.Background()

	// A recent fallback year is returned without any lookup.
	assert.Equal(t, 2015, r.Resolve(ctx, "Uptown Funk", "Mark Ronson", "", 2015))
	assert.Zero(t, requests.Load())

	assert.Equal(t, 1967, r.Resolve(ctx, "Respect", "Aretha Franklin", "", 0))
	assert.Equal(t, int32(1), requests.Load())

	// With the service gone the cached year is still returned.
	server.Close()
	assert.Equal(t, 1967, r.Resolve(ctx, "Respect", "Aretha Franklin", "", 0))
	assert.Equal(t, int32(1), requests.Load())

	// An uncached track falls back to the current year.
	assert.Equal(t, time.Now().Year(), r.Resolve(ctx, "Unknown", "Nobody", "", 0))
}

func TestEarliestYear(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{"empty", nil, 0},
		{"single", []string{"1999-12-31"}, 1999},
		{"year only", []string{"1980", "1975"}, 1975},
		{"invalid ignored", []string{"0000", "abcd", "1900-01-01"}, 1900},
		{"future ignored", []string{"2030", "2024-05"}, 2024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EarliestYear(tt.dates, fixedNow))
		})
	}
}
