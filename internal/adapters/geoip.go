package adapters

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/rs/zerolog/log"

	"debstage/internal/ports"
	"debstage/internal/types"
)

const DefaultGeoIPEndpoint = "http://geoip.ubuntu.com/lookup"

// DefaultGeoIPTimeout bounds the lookup so a slow endpoint cannot stall
// the pipeline.
const DefaultGeoIPTimeout = 5 * time.Second

const maxGeoIPBody = 64 << 10

type GeoIPAdapter struct {
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
}

func NewGeoIPAdapter(endpoint string, timeout time.Duration) GeoIPAdapter {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultGeoIPEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultGeoIPTimeout
	}
	return GeoIPAdapter{Endpoint: endpoint, Timeout: timeout}
}

// Lookup asks the geoip service for the caller's country code. Any
// failure yields an unavailable hint.
func (a GeoIPAdapter) Lookup(ctx context.Context) types.GeoHint {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()
	resp, err := newOneShotClient(a.Client, a.Timeout).get(ctx, a.Endpoint)
	if err != nil {
		log.Debug().Err(err).Str("endpoint", a.Endpoint).Msg("geoip lookup failed")
		return types.GeoHintUnavailable()
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Debug().Int("status", resp.StatusCode).Str("endpoint", a.Endpoint).Msg("geoip lookup rejected")
		return types.GeoHintUnavailable()
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGeoIPBody))
	if err != nil {
		log.Debug().Err(err).Msg("geoip response unreadable")
		return types.GeoHintUnavailable()
	}
	return parseGeoIPResponse(body)
}

// parseGeoIPResponse extracts the CountryCode element from a lookup
// response.
func parseGeoIPResponse(body []byte) types.GeoHint {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		log.Debug().Err(err).Msg("geoip response is not valid xml")
		return types.GeoHintUnavailable()
	}
	element := doc.FindElement("//CountryCode")
	if element == nil {
		log.Debug().Msg("geoip response has no CountryCode")
		return types.GeoHintUnavailable()
	}
	return types.GeoHintOf(strings.ToLower(strings.TrimSpace(element.Text())))
}

// DisabledGeoLocator never touches the network.
type DisabledGeoLocator struct{}

func (DisabledGeoLocator) Lookup(context.Context) types.GeoHint {
	return types.GeoHintUnavailable()
}

var _ ports.GeoLocatorPort = GeoIPAdapter{}
var _ ports.GeoLocatorPort = DisabledGeoLocator{}
