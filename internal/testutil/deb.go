// Package testutil builds Debian archives and mirror trees for tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

var fixtureTime = time.Date(2015, 4, 1, 12, 0, 0, 0, time.UTC)

// DebEntry is one member of a package's data archive. Entries with a
// Linkname become symlinks; Dir entries become directories.
type DebEntry struct {
	Name     string
	Body     string
	Mode     int64
	Linkname string
	Dir      bool
}

// BuildDeb returns the bytes of a .deb whose data.tar.gz holds entries.
func BuildDeb(t *testing.T, entries []DebEntry) []byte {
	t.Helper()
	control := tarGz(t, []DebEntry{{Name: "control", Body: "Package: fixture\n"}})
	data := tarGz(t, entries)

	var out bytes.Buffer
	out.WriteString("!<arch>\n")
	writeArMember(&out, "debian-binary", []byte("2.0\n"))
	writeArMember(&out, "control.tar.gz", control)
	writeArMember(&out, "data.tar.gz", data)
	return out.Bytes()
}

func writeArMember(out *bytes.Buffer, name string, data []byte) {
	fmt.Fprintf(out, "%-16s%-12d%-6d%-6d%-8o%-10d`\n", name, fixtureTime.Unix(), 0, 0, 0644, len(data))
	out.Write(data)
	if len(data)%2 == 1 {
		out.WriteByte('\n')
	}
}

func tarGz(t *testing.T, entries []DebEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, entry := range entries {
		name := "./" + strings.TrimLeft(entry.Name, "./")
		hdr := &tar.Header{Name: name, ModTime: fixtureTime, Mode: entry.Mode}
		switch {
		case entry.Dir:
			hdr.Typeflag = tar.TypeDir
			hdr.Name = strings.TrimRight(name, "/") + "/"
			if hdr.Mode == 0 {
				hdr.Mode = 0755
			}
		case entry.Linkname != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = entry.Linkname
			hdr.Mode = 0777
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(entry.Body))
			if hdr.Mode == 0 {
				hdr.Mode = 0644
			}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(entry.Body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// MirrorPackage describes one binary package served by a Mirror. Raw,
// when set, replaces the generated archive bytes.
type MirrorPackage struct {
	Name      string
	Version   string
	Priority  string
	Essential bool
	Depends   string
	Provides  string
	Entries   []DebEntry
	Raw       []byte
}

// Filename is the pool path of the package archive.
func (p MirrorPackage) Filename(component string, arch string) string {
	return fmt.Sprintf("pool/%s/%s/%s/%s_%s_%s.deb", component, p.Name[:1], p.Name, p.Name, p.Version, arch)
}

// Mirror lays out a single suite/component of an apt archive.
type Mirror struct {
	Suite       string
	Component   string
	Arch        string
	Compression string
	Packages    []MirrorPackage
}

// Write materializes the mirror under dir and returns the pool paths
// keyed by package name.
func (m Mirror) Write(t *testing.T, dir string) map[string]string {
	t.Helper()
	pool := map[string]string{}
	var stanzas []string
	packages := append([]MirrorPackage(nil), m.Packages...)
	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })
	for _, pkg := range packages {
		data := pkg.Raw
		if data == nil {
			data = BuildDeb(t, pkg.Entries)
		}
		filename := pkg.Filename(m.Component, m.Arch)
		path := filepath.Join(dir, filepath.FromSlash(filename))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, data, 0644))
		pool[pkg.Name] = path
		stanzas = append(stanzas, stanza(pkg, m.Arch, filename, data))
	}

	listDir := filepath.Join(dir, "dists", m.Suite, m.Component, "binary-"+m.Arch)
	require.NoError(t, os.MkdirAll(listDir, 0755))
	list := []byte(strings.Join(stanzas, "\n"))
	switch m.Compression {
	case "xz":
		require.NoError(t, os.WriteFile(filepath.Join(listDir, "Packages.xz"), xzBytes(t, list), 0644))
	case "gz":
		require.NoError(t, os.WriteFile(filepath.Join(listDir, "Packages.gz"), gzBytes(t, list), 0644))
	default:
		require.NoError(t, os.WriteFile(filepath.Join(listDir, "Packages"), list, 0644))
	}
	return pool
}

// SourcesLine returns the sources.list entry for a mirror served at uri.
func (m Mirror) SourcesLine(uri string) string {
	return fmt.Sprintf("deb %s %s %s\n", uri, m.Suite, m.Component)
}

func stanza(pkg MirrorPackage, arch string, filename string, data []byte) string {
	sum := sha256.Sum256(data)
	priority := pkg.Priority
	if priority == "" {
		priority = "optional"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Package: %s\n", pkg.Name)
	fmt.Fprintf(&b, "Version: %s\n", pkg.Version)
	fmt.Fprintf(&b, "Architecture: %s\n", arch)
	fmt.Fprintf(&b, "Priority: %s\n", priority)
	if pkg.Essential {
		b.WriteString("Essential: yes\n")
	}
	if pkg.Depends != "" {
		fmt.Fprintf(&b, "Depends: %s\n", pkg.Depends)
	}
	if pkg.Provides != "" {
		fmt.Fprintf(&b, "Provides: %s\n", pkg.Provides)
	}
	fmt.Fprintf(&b, "Filename: %s\n", filename)
	fmt.Fprintf(&b, "Size: %d\n", len(data))
	fmt.Fprintf(&b, "SHA256: %s\n", hex.EncodeToString(sum[:]))
	return b.String()
}

func gzBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func xzBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}
