package tracks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-songamizer/internal/auth"
	"github.com/justestif/go-songamizer/internal/spotify"
	"github.com/justestif/go-songamizer/internal/store"
)

// fakeSource serves pages by offset. Each call pops the next error for that offset, if any.
type fakeSource struct {
	pages map[int]*spotify.Page
	errs  map[int][]error
	calls []int
}

func (f *fakeSource) PlaylistPage(_ context.Context, _ string, offset int) (*spotify.Page, error) {
	f.calls = append(f.calls, offset)
	if errs := f.errs[offset]; len(errs) > 0 {
		f.errs[offset] = errs[1:]
		return nil, errs[0]
	}
	page, ok := f.pages[offset]
	if !ok {
		return nil, fmt.Errorf("no page at offset %d", offset)
	}
	return page, nil
}

type fakeInvalidator struct{ count int }

func (f *fakeInvalidator) Invalidate() { f.count++ }

func track(id string) store.Track {
	return store.Track{ID: id, Name: "Song " + id, Artists: []string{"Artist"}}
}

func twoPages() map[int]*spotify.Page {
	return map[int]*spotify.Page{
		0:  {Tracks: []store.Track{track("t1"), track("t2")}, HasNext: true, NextOffset: 50},
		50: {Tracks: []store.Track{track("t3")}, Offset: 50},
	}
}

var unauthorized = &spotify.StatusError{Status: http.StatusUnauthorized, Message: "The access token expired"}

func ids(tracks []store.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func TestPlaylistTracks(t *testing.T) {
	tests := []struct {
		name            string
		errs            map[int][]error
		wantIDs         []string
		wantCalls       []int
		wantInvalidates int
		wantCached      bool
	}{
		{
			name:       "all pages are fetched in order",
			wantIDs:    []string{"t1", "t2", "t3"},
			wantCalls:  []int{0, 50},
			wantCached: true,
		},
		{
			name:            "401 renews the token and retries the same page",
			errs:            map[int][]error{50: {unauthorized}},
			wantIDs:         []string{"t1", "t2", "t3"},
			wantCalls:       []int{0, 50, 50},
			wantInvalidates: 1,
			wantCached:      true,
		},
		{
			name:            "second 401 fails the fetch",
			errs:            map[int][]error{0: {unauthorized, unauthorized}},
			wantIDs:         []string{},
			wantCalls:       []int{0, 0},
			wantInvalidates: 1,
		},
		{
			name:      "other errors are not retried",
			errs:      map[int][]error{50: {&spotify.StatusError{Status: 500, Message: "boom"}}},
			wantIDs:   []string{},
			wantCalls: []int{0, 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{pages: twoPages(), errs: tt.errs}
			if src.errs == nil {
				src.errs = map[int][]error{}
			}
			inv := &fakeInvalidator{}
			cache := store.NewMemory().Store().Playlists
			svc := New(src, inv, cache)

			got := svc.PlaylistTracks(context.Background(), "p1")
			require.NotNil(t, got)
			assert.Equal(t, tt.wantIDs, ids(got))
			assert.Equal(t, tt.wantCalls, src.calls)
			assert.Equal(t, tt.wantInvalidates, inv.count)

			_, err := cache.Get(context.Background(), "p1")
			if tt.wantCached {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, store.ErrNotFound)
			}
		})
	}
}

func TestPlaylistTracks_CacheFreshness(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{pages: twoPages(), errs: map[int][]error{}}
	cache := store.NewMemory().Store().Playlists
	svc := New(src, &fakeInvalidator{}, cache,
		WithCacheTTL(5*time.Minute),
		WithClock(func() time.Time { return now }))

	ctx := context.Background()
	svc.PlaylistTracks(ctx, "p1")
	require.Len(t, src.calls, 2)

	// Within the TTL the cached list is returned verbatim.
	now = now.Add(4 * time.Minute)
	src.pages[0].Tracks = []store.Track{track("changed")}
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids(svc.PlaylistTracks(ctx, "p1")))
	assert.Len(t, src.calls, 2)

	// Once stale the playlist is fetched again.
	now = now.Add(2 * time.Minute)
	assert.Equal(t, []string{"changed", "t3"}, ids(svc.PlaylistTracks(ctx, "p1")))
	assert.Len(t, src.calls, 4)
}

// brokenCache fails every call.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (*store.PlaylistEntry, error) {
	return nil, errors.New("cache down")
}

func (brokenCache) Put(context.Context, *store.PlaylistEntry) error {
	return errors.New("cache down")
}

func TestPlaylistTracks_CacheErrorsAreIgnored(t *testing.T) {
	src := &fakeSource{pages: twoPages(), errs: map[int][]error{}}
	svc := New(src, &fakeInvalidator{}, brokenCache{})

	got := svc.PlaylistTracks(context.Background(), "p1")
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids(got))
}

func TestPlaylistTracks_AppTokenRenewal(t *testing.T) {
	var issued atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := issued.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":3600}`, n)
	}))
	defer tokenServer.Close()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") == "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"status":401,"message":"The access token expired"}}`)
			return
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		assert.Zero(t, offset)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"offset": 0,
			"limit":  50,
			"total":  1,
			"items": []map[string]any{{
				"is_local": false,
				"track": map[string]any{
					"id":      "t1",
					"name":    "Respect",
					"type":    "track",
					"artists": []map[string]any{{"name": "Aretha Franklin"}},
					"album":   map[string]any{"name": "I Never Loved a Man", "release_date": "1967-03-10"},
				},
			}},
		})
	}))
	defer apiServer.Close()

	appTokens, err := auth.NewAppTokenSource(auth.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     tokenServer.URL,
	}, auth.WithHTTPClient(tokenServer.Client()))
	require.NoError(t, err)

	client := spotify.New(appTokens, spotify.WithBaseURL(apiServer.URL), spotify.WithHTTPClient(apiServer.Client()))
	svc := New(client, appTokens, store.NewMemory().Store().Playlists)

	got := svc.PlaylistTracks(context.Background(), "p1")
	require.Len(t, got, 1)
	assert.Equal(t, "Respect", got[0].Name)
	assert.Equal(t, 1967, got[0].ReleaseYear())
	assert.Equal(t, int32(2), issued.Load())
}
