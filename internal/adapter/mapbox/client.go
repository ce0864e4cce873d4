package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/accessible-nav/route-engine/internal/domain"
)

// Client implements domain.LocationResolver using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Mapbox place-search client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		logger:  logger,
	}
}

// Resolve searches for places matching the text and returns ranked
// candidates, best first. Text shorter than domain.MinQueryLength yields no
// candidates without touching the network.
func (c *Client) Resolve(ctx context.Context, text string) ([]domain.Candidate, error) {
	if len(text) < domain.MinQueryLength {
		return nil, nil
	}

	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(text))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {strconv.Itoa(domain.MaxCandidates)},
		"types":        {"poi,address,place,locality"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: place search", domain.ErrTimeout)
		}
		return nil, fmt.Errorf("place search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(mapboxResp.Features))
	for _, f := range mapboxResp.Features {
		if len(f.Center) != 2 {
			continue
		}
		cand := domain.Candidate{
			Label: f.PlaceName,
			// Mapbox uses lon,lat order.
			Coord: domain.Coordinate{Lat: f.Center[1], Lng: f.Center[0]},
		}
		if len(f.PlaceType) > 0 {
			cand.Category = f.PlaceType[0]
		}
		candidates = append(candidates, cand)
		if len(candidates) == domain.MaxCandidates {
			break
		}
	}
	return candidates, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	PlaceType []string  `json:"place_type"`
	Relevance float64   `json:"relevance"`
}
