package adapters

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"debstage/internal/types"
)

func TestParseSources(t *testing.T) {
	document := `# mirror
deb http://archive.ubuntu.com/ubuntu/ vivid main restricted
deb-src http://archive.ubuntu.com/ubuntu/ vivid main

deb [arch=amd64 trusted=yes] http://security.ubuntu.com/ubuntu vivid-security universe # trailing
`
	entries, err := ParseSources(document)
	require.NoError(t, err)

	want := []types.SourceEntry{
		{URI: "http://archive.ubuntu.com/ubuntu", Suite: "vivid", Components: []string{"main", "restricted"}},
		{URI: "http://security.ubuntu.com/ubuntu", Suite: "vivid-security", Components: []string{"universe"}},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("unexpected entries (-want +got):\n%s", diff)
	}
}

func TestParseSourcesErrors(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{name: "no entries", document: "# nothing\n\n"},
		{name: "unknown type", document: "rpm http://example.com vivid main\n"},
		{name: "missing suite", document: "deb http://example.com\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSources(tt.document)
			require.Error(t, err)
		})
	}
}
