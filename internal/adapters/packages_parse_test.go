package adapters

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"debstage/internal/types"
)

func TestParseAptPackages(t *testing.T) {
	content := strings.Join([]string{
		"Package: curl",
		"Version: 7.38.0-4",
		"Architecture: amd64",
		"Priority: optional",
		"Depends: libc6 (>= 2.17), libcurl3 (= 7.38.0-4),",
		" zlib1g (>= 1:1.1.4)",
		"Pre-Depends: multiarch-support",
		"Recommends: ca-certificates",
		"Filename: pool/main/c/curl/curl_7.38.0-4_amd64.deb",
		"Size: 128512",
		"SHA256: ABCDEF",
		"",
		"Package: dash",
		"Version: 0.5.7-4",
		"Priority: required",
		"Essential: yes",
		"Provides: sh",
		"",
		"Version: 1.0",
		"",
	}, "\n")

	packages, err := parseAptPackages(strings.NewReader(content), "http://archive.ubuntu.com/ubuntu")
	require.NoError(t, err)
	require.Len(t, packages, 2)

	want := types.AptPackage{
		Name:         "curl",
		Version:      "7.38.0-4",
		Architecture: "amd64",
		Priority:     types.PriorityOptional,
		Depends:      []string{"libc6 (>= 2.17)", "libcurl3 (= 7.38.0-4)", "zlib1g (>= 1:1.1.4)"},
		PreDepends:   []string{"multiarch-support"},
		Recommends:   []string{"ca-certificates"},
		Filename:     "pool/main/c/curl/curl_7.38.0-4_amd64.deb",
		Size:         128512,
		SHA256:       "abcdef",
		BaseURL:      "http://archive.ubuntu.com/ubuntu",
	}
	if diff := cmp.Diff(want, packages[0]); diff != "" {
		t.Fatalf("unexpected curl stanza (-want +got):\n%s", diff)
	}

	dash := packages[1]
	require.True(t, dash.Essential)
	require.True(t, dash.IsEssentialTier())
	if diff := cmp.Diff([]string{"sh"}, dash.Provides); diff != "" {
		t.Fatalf("unexpected provides (-want +got):\n%s", diff)
	}
}

func TestSplitRelations(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "  ", want: nil},
		{name: "alternatives kept together", input: "a | b (>= 1),c", want: []string{"a | b (>= 1)", "c"}},
		{name: "whitespace collapsed", input: "libc6  (>=\n2.17) , ", want: []string{"libc6 (>= 2.17)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, splitRelations(tt.input)); diff != "" {
				t.Fatalf("unexpected relations (-want +got):\n%s", diff)
			}
		})
	}
}
