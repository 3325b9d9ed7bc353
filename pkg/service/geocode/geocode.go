package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/contech-ims/binsight/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultBaseURL is the Mapbox forward geocoding endpoint.
const DefaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// DefaultCacheTTL is how long a geocoded result stays valid. Street
// addresses do not move, the TTL just bounds memory growth.
const DefaultCacheTTL = 24 * time.Hour

var ErrNoResult = goerr.New("no geocoding result")

// Location is a geocoded coordinate pair.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	PlaceName string  `json:"placeName"`
}

// Cache holds geocoded results for a bounded time. Entries may be
// evicted at any moment; callers must treat it as best effort.
type Cache interface {
	Get(address string) (*Location, bool)
	Put(address string, loc *Location, ttl time.Duration)
}

// Service geocodes building addresses through Mapbox, consulting the
// cache first.
type Service struct {
	token      string
	baseURL    string
	httpClient *http.Client
	cache      Cache
	ttl        time.Duration
}

type Option func(*Service)

func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Service) {
		s.httpClient = httpClient
	}
}

func WithCache(cache Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.ttl = ttl
	}
}

func New(token string, opts ...Option) *Service {
	s := &Service{
		token:      token,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      NewMemoryCache(),
		ttl:        DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type mapboxResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
	} `json:"features"`
}

// Geocode resolves a street address to coordinates. The address is
// normalized before lookup so cache keys are stable across the
// abbreviation variants in the CO data.
func (s *Service) Geocode(ctx context.Context, address string) (*Location, error) {
	if strings.TrimSpace(address) == "" {
		return nil, goerr.New("address is required")
	}

	normalized := FormatAddress(address)
	if loc, ok := s.cache.Get(normalized); ok {
		return loc, nil
	}

	loc, err := s.lookup(ctx, normalized)
	if err != nil {
		return nil, err
	}

	s.cache.Put(normalized, loc, s.ttl)
	logging.From(ctx).Debug("Geocoded address",
		slog.String("address", normalized),
		slog.String("place", loc.PlaceName))
	return loc, nil
}

func (s *Service) lookup(ctx context.Context, address string) (*Location, error) {
	endpoint := fmt.Sprintf("%s/%s.json?%s",
		s.baseURL,
		url.PathEscape(address),
		url.Values{
			"access_token": {s.token},
			"limit":        {"1"},
		}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build geocoding request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call geocoding API", goerr.V("address", address))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read geocoding response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("geocoding API returned non-OK status",
			goerr.V("address", address),
			goerr.V("status", resp.StatusCode))
	}

	var parsed mapboxResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, goerr.Wrap(err, "failed to parse geocoding response")
	}

	if len(parsed.Features) == 0 || len(parsed.Features[0].Center) < 2 {
		return nil, goerr.Wrap(ErrNoResult, "address did not resolve", goerr.V("address", address))
	}

	f := parsed.Features[0]
	return &Location{
		Longitude: f.Center[0],
		Latitude:  f.Center[1],
		PlaceName: f.PlaceName,
	}, nil
}

var streetSuffixes = map[string]string{
	"ST":   "Street",
	"AVE":  "Avenue",
	"PL":   "Place",
	"RD":   "Road",
	"BLVD": "Boulevard",
	"DR":   "Drive",
	"LN":   "Lane",
	"CT":   "Court",
}

// FormatAddress expands the abbreviated street suffixes used in the CO
// data set and appends the country so Mapbox resolves within the US.
func FormatAddress(address string) string {
	words := strings.Fields(strings.TrimSpace(address))
	for i, w := range words {
		key := strings.ToUpper(strings.TrimSuffix(w, "."))
		if full, ok := streetSuffixes[key]; ok {
			words[i] = full
		}
	}

	result := strings.Join(words, " ")
	if !strings.HasSuffix(strings.ToUpper(result), "USA") {
		result += ", USA"
	}
	return result
}
