package types

// SourceEntry is one "deb" line of a sources.list document.
type SourceEntry struct {
	URI        string
	Suite      string
	Components []string
}

// GeoHint is the result of a mirror geo lookup. Available is false when
// the lookup failed for any reason; Code is then empty.
type GeoHint struct {
	Code      string
	Available bool
}

func GeoHintUnavailable() GeoHint {
	return GeoHint{}
}

func GeoHintOf(code string) GeoHint {
	if code == "" {
		return GeoHint{}
	}
	return GeoHint{Code: code, Available: true}
}
