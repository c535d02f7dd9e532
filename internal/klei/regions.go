package klei

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

type regionCapabilities struct {
	LobbyRegions []struct {
		Region string `json:"Region"`
	} `json:"LobbyRegions"`
}

// queryRetry is the retry policy of the single-request queries. They share
// the retry budget of the lobby stage.
func (c *Client) queryRetry() RetryPolicy {
	return RetryPolicy{Retries: c.Config.Lobby.Retry.Retries}
}

// Regions lists the regions the directory currently advertises. The result
// may differ from model.AllRegions, which is maintained by hand.
func (c *Client) Regions(ctx context.Context) ([]string, error) {
	url := c.Config.Endpoints.RegionURL

	var caps regionCapabilities
	_, err := c.queryRetry().Do(ctx, url, func() error {
		caps = regionCapabilities{}
		return c.getJSON(ctx, url, &caps)
	})
	if err != nil {
		return nil, fmt.Errorf("could not list regions: %w", err)
	}

	regions := make([]string, 0, len(caps.LobbyRegions))
	for _, r := range caps.LobbyRegions {
		regions = append(regions, r.Region)
	}
	return regions, nil
}

// LatestBuild returns the highest build number of the given type ("release"
// or "test") from the build manifest.
func (c *Client) LatestBuild(ctx context.Context, versionType string) (int, error) {
	url := c.Config.Endpoints.BuildURL

	var manifest map[string][]json.Number
	_, err := c.queryRetry().Do(ctx, url, func() error {
		manifest = nil
		return c.getJSON(ctx, url, &manifest)
	})
	if err != nil {
		return 0, fmt.Errorf("could not read the build manifest: %w", err)
	}

	builds, ok := manifest[versionType]
	if !ok || len(builds) == 0 {
		return 0, fmt.Errorf("no builds of type %q", versionType)
	}

	latest := -1
	for _, b := range builds {
		n, err := strconv.Atoi(b.String())
		if err != nil {
			return 0, fmt.Errorf("invalid build number %q", b)
		}
		latest = max(latest, n)
	}
	return latest, nil
}
