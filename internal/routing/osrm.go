package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fleet-tracking-service/internal/models"
)

// Client fetches driving routes from an OSRM instance. Callers treat any
// error as "no route" and fall back to the direct line.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client for the given OSRM base URL, e.g.
// https://router.project-osrm.org.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type routeResponse struct {
	Routes []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route returns the driving waypoints from one location to another. OSRM
// takes and returns coordinates lon-first.
func (c *Client) Route(ctx context.Context, from, to models.Location) ([]models.Location, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		c.BaseURL, from.Lon, from.Lat, to.Lon, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building osrm request: %w", err)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling osrm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("osrm status %d", resp.StatusCode)
	}

	var parsed routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding osrm response: %w", err)
	}
	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("osrm returned no route")
	}

	coords := parsed.Routes[0].Geometry.Coordinates
	pts := make([]models.Location, 0, len(coords))
	for _, pair := range coords {
		if len(pair) < 2 {
			continue
		}
		pts = append(pts, models.Location{Lat: pair[1], Lon: pair[0]})
	}
	if len(pts) < 2 {
		return nil, fmt.Errorf("osrm route too short: %d points", len(pts))
	}
	return pts, nil
}
