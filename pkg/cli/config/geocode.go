package config

import (
	"log/slog"
	"time"

	"github.com/contech-ims/binsight/pkg/service/geocode"
	"github.com/urfave/cli/v3"
)

// Geocode holds CLI flags for the Mapbox geocoding service
type Geocode struct {
	mapboxToken string
	cacheTTL    time.Duration
}

// Flags returns CLI flags for geocoding configuration
func (g *Geocode) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "mapbox-token",
			Usage:       "Mapbox access token (geocoding disabled when empty)",
			Sources:     cli.EnvVars("BINSIGHT_MAPBOX_TOKEN"),
			Destination: &g.mapboxToken,
		},
		&cli.DurationFlag{
			Name:        "geocode-cache-ttl",
			Usage:       "How long geocoded results are cached",
			Value:       geocode.DefaultCacheTTL,
			Sources:     cli.EnvVars("BINSIGHT_GEOCODE_CACHE_TTL"),
			Destination: &g.cacheTTL,
		},
	}
}

// LogAttrs returns log attributes for the geocoding configuration
func (g *Geocode) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Bool("enabled", g.mapboxToken != ""),
		slog.Duration("cache_ttl", g.cacheTTL),
	}
}

// Configure returns the geocoding service, or nil when no token is set.
func (g *Geocode) Configure() *geocode.Service {
	if g.mapboxToken == "" {
		return nil
	}
	return geocode.New(g.mapboxToken,
		geocode.WithCache(geocode.NewMemoryCache(), g.cacheTTL),
	)
}
