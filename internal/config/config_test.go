package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-songamizer/internal/store"
)

func baseVars() map[string]string {
	return map[string]string{
		"SPOTIFY_CLIENT_ID":     "id",
		"SPOTIFY_CLIENT_SECRET": "secret",
	}
}

func TestFromMapDefaults(t *testing.T) {
	cfg, err := FromMap(baseVars())
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.HTTPClientTimeout)
	assert.Equal(t, 5*time.Minute, cfg.PlaylistCacheTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.YearCacheTTL)
	assert.Equal(t, 2*time.Hour, cfg.HistoryTTL)
	assert.Equal(t, time.Second, cfg.MusicBrainz.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.YTMusicURL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins())
}

func TestFromMapValidation(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr error
	}{
		{
			name:    "missing secret",
			vars:    map[string]string{"SPOTIFY_CLIENT_ID": "id"},
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "postgres without url",
			vars:    map[string]string{"STORE_DRIVER": "postgres"},
			wantErr: ErrMissingStoreURL,
		},
		{
			name:    "mongo without uri",
			vars:    map[string]string{"STORE_DRIVER": "mongo"},
			wantErr: ErrMissingStoreURL,
		},
		{
			name:    "unknown driver",
			vars:    map[string]string{"STORE_DRIVER": "sqlite"},
			wantErr: ErrUnknownDriver,
		},
		{
			name:    "bad curated entry",
			vars:    map[string]string{"CURATED_PLAYLISTS": "|name|icon"},
			wantErr: ErrInvalidCurated,
		},
		{
			name:    "zero sweep interval",
			vars:    map[string]string{"SWEEP_INTERVAL": "0s"},
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "zero http client timeout",
			vars:    map[string]string{"HTTP_CLIENT_TIMEOUT": "0"},
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "negative playlist cache ttl",
			vars:    map[string]string{"PLAYLIST_CACHE_TTL": "-5m"},
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "zero musicbrainz interval",
			vars:    map[string]string{"MUSICBRAINZ_INTERVAL": "0s"},
			wantErr: ErrInvalidDuration,
		},
		{
			name: "postgres with url",
			vars: map[string]string{"STORE_DRIVER": "postgres", "DATABASE_URL": "postgres://localhost/songamizer"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := tt.vars
			if tt.wantErr != ErrMissingCredentials {
				vars = baseVars()
				for k, v := range tt.vars {
					vars[k] = v
				}
			}

			_, err := FromMap(vars)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFromMapBadDuration(t *testing.T) {
	vars := baseVars()
	vars["HISTORY_TTL"] = "two hours"
	_, err := FromMap(vars)
	assert.Error(t, err)
}

func TestCurated(t *testing.T) {
	vars := baseVars()
	vars["CURATED_PLAYLISTS"] = "37i9dQZF1DXbTxeAdrVG2l|All Out 90s|boombox; 37i9dQZF1DX4UtSsGT1Sbe ;"
	vars["CORS_ALLOWED_ORIGINS"] = "https://a.example,https://b.example"

	cfg, err := FromMap(vars)
	require.NoError(t, err)

	curated, err := cfg.Curated()
	require.NoError(t, err)
	assert.Equal(t, []store.CuratedPlaylist{
		{ID: "37i9dQZF1DXbTxeAdrVG2l", Name: "All Out 90s", Icon: "boombox"},
		{ID: "37i9dQZF1DX4UtSsGT1Sbe"},
	}, curated)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}
