// Package geo resolves venue addresses to coordinates using a
// Nominatim compatible search endpoint.
package geo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/carlmjohnson/requests"
)

// A Location is a point on the surface of the earth.
type Location struct {
	Latitude  float64
	Longitude float64
}

type Client struct {
	base string
}

// NewClient returns a Client that queries the search endpoint at base.
func NewClient(base string) *Client {
	return &Client{base: base}
}

// Resolve returns the best match for the venue in the given city.
func (c *Client) Resolve(ctx context.Context, city, venue string) (*Location, error) {
	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	err := requests.URL(c.base).
		Path("/search").
		Param("format", "json").
		Param("limit", "1").
		Param("q", venue+", "+city).
		ToJSON(&results).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("geo: search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("geo: no match for %q, %q", venue, city)
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geo: bad latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geo: bad longitude: %w", err)
	}
	return &Location{Latitude: lat, Longitude: lon}, nil
}
