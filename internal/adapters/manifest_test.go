package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestManifestAdapterLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.txt")
	require.NoError(t, os.WriteFile(path, []byte("# base\nlibc6\n\n  zlib1g  \n#libfoo\n"), 0644))

	names, err := NewManifestAdapter().Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"libc6", "zlib1g"}, names); diff != "" {
		t.Fatalf("unexpected manifest (-want +got):\n%s", diff)
	}
}

func TestManifestAdapterDefault(t *testing.T) {
	names, err := NewManifestAdapter().Load("")
	require.NoError(t, err)
	require.Contains(t, names, "libc6")
	require.NotContains(t, names, "")
	for _, name := range names {
		require.NotEqual(t, '#', rune(name[0]))
	}
}

func TestManifestAdapterMissingFile(t *testing.T) {
	_, err := NewManifestAdapter().Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
