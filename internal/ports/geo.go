package ports

import (
	"context"

	"debstage/internal/types"
)

// GeoLocatorPort looks up a country code used to pick a regional mirror.
// Implementations never fail; an unavailable hint is a normal result.
type GeoLocatorPort interface {
	Lookup(ctx context.Context) types.GeoHint
}
