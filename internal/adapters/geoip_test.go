package adapters

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"debstage/internal/types"
)

const geoIPResponse = `<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Ip>203.0.113.7</Ip>
  <Status>OK</Status>
  <CountryCode>DE</CountryCode>
  <CountryName>Germany</CountryName>
</Response>`

func TestGeoIPAdapterLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(geoIPResponse))
	}))
	t.Cleanup(server.Close)

	hint := NewGeoIPAdapter(server.URL, time.Second).Lookup(t.Context())
	require.Equal(t, types.GeoHint{Code: "de", Available: true}, hint)
}

func TestGeoIPAdapterFailuresYieldUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "malformed xml",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<Response><CountryCode>DE"))
			},
		},
		{
			name: "missing element",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<Response><Status>OK</Status></Response>"))
			},
		},
		{
			name: "empty element",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<Response><CountryCode> </CountryCode></Response>"))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
				_, _ = w.Write([]byte(geoIPResponse))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			t.Cleanup(server.Close)

			hint := NewGeoIPAdapter(server.URL, 100*time.Millisecond).Lookup(t.Context())
			require.False(t, hint.Available)
			require.Empty(t, hint.Code)
		})
	}
}

func TestGeoIPAdapterUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	hint := NewGeoIPAdapter(endpoint, 200*time.Millisecond).Lookup(t.Context())
	require.Equal(t, types.GeoHintUnavailable(), hint)
}

func TestDisabledGeoLocator(t *testing.T) {
	require.False(t, DisabledGeoLocator{}.Lookup(t.Context()).Available)
}

func TestNewGeoIPAdapterDefaults(t *testing.T) {
	adapter := NewGeoIPAdapter("", 0)
	require.Equal(t, DefaultGeoIPEndpoint, adapter.Endpoint)
	require.Equal(t, DefaultGeoIPTimeout, adapter.Timeout)
}
