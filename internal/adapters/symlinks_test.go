package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRepairSymlinks(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr", "lib"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr", "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lib", "libz.so.1"), []byte("z"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "usr", "bin", "curl"), []byte("c"), 0755))

	absolute := filepath.Join(root, "usr", "lib", "libz.so")
	require.NoError(t, os.Symlink("/lib/libz.so.1", absolute))
	dangling := filepath.Join(root, "usr", "lib", "missing.so")
	require.NoError(t, os.Symlink("/lib/missing.so.1", dangling))
	relative := filepath.Join(root, "usr", "bin", "curl-alias")
	require.NoError(t, os.Symlink("curl", relative))
	topLevel := filepath.Join(root, "bin")
	require.NoError(t, os.Symlink("/usr/bin", topLevel))

	repaired := RepairSymlinks(t.Context(), root)
	require.Equal(t, 2, repaired)

	target, err := os.Readlink(absolute)
	require.NoError(t, err)
	require.Equal(t, "../../lib/libz.so.1", target)

	target, err = os.Readlink(topLevel)
	require.NoError(t, err)
	require.Equal(t, "usr/bin", target)

	target, err = os.Readlink(dangling)
	require.NoError(t, err)
	require.Equal(t, "/lib/missing.so.1", target)

	target, err = os.Readlink(relative)
	require.NoError(t, err)
	require.Equal(t, "curl", target)

	require.Equal(t, 0, RepairSymlinks(t.Context(), root), "second pass must be a no-op")
}

func TestRepairSymlinksStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr", "lib"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "x"), []byte("x"), 0644))

	climbing := filepath.Join(root, "usr", "lib", "climbing")
	require.NoError(t, os.Symlink("/../../../x", climbing))
	escaping := filepath.Join(root, "usr", "lib", "escaping")
	require.NoError(t, os.Symlink("/../../.."+outside, escaping))

	require.Equal(t, 1, RepairSymlinks(t.Context(), root))

	target, err := os.Readlink(climbing)
	require.NoError(t, err)
	require.Equal(t, "../../x", target)

	target, err = os.Readlink(escaping)
	require.NoError(t, err)
	require.Equal(t, "/../../.."+outside, target)
}

func TestRepairSymlinksMissingRoot(t *testing.T) {
	require.Equal(t, 0, RepairSymlinks(t.Context(), filepath.Join(t.TempDir(), "missing")))
}
