package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"
)

// Devices lists the user's available playback devices.
func (c *Client) Devices(ctx context.Context, accessToken string) ([]Device, error) {
	devices, err := c.user(accessToken).PlayerDevices(ctx)
	if err != nil {
		return nil, wrap("fetching devices", err)
	}

	out := make([]Device, len(devices))
	for i, d := range devices {
		out[i] = Device{
			ID:     d.ID.String(),
			Name:   d.Name,
			Type:   d.Type,
			Active: d.Active,
		}
	}
	return out, nil
}

// Play starts playback of a single track on the given device.
func (c *Client) Play(ctx context.Context, accessToken, deviceID, trackID string) error {
	device := spotify.ID(deviceID)
	err := c.user(accessToken).PlayOpt(ctx, &spotify.PlayOptions{
		DeviceID: &device,
		URIs:     []spotify.URI{TrackURI(trackID)},
	})
	if err != nil {
		return wrap("starting playback", err)
	}
	return nil
}

// TrackURI returns the spotify:track: URI for a track ID.
func TrackURI(trackID string) spotify.URI {
	return spotify.URI("spotify:track:" + trackID)
}
