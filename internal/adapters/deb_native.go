package adapters

import (
	"archive/tar"
	"bufio"
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/rs/zerolog/log"
	"github.com/ulikunitz/xz"
	"golang.org/x/sys/unix"

	"debstage/internal/ports"
	"debstage/internal/types"
)

const (
	arMagic        = "!<arch>\n"
	arHeaderLength = 60
)

// NativeDebExtractor unpacks the data member of a .deb without dpkg-deb.
type NativeDebExtractor struct{}

func NewNativeDebExtractor() NativeDebExtractor {
	return NativeDebExtractor{}
}

func (NativeDebExtractor) Name() string {
	return string(types.ExtractorNative)
}

func (e NativeDebExtractor) Extract(ctx context.Context, archivePath string, destRoot string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to open archive").
			WithCause(err)
	}
	defer f.Close()

	member, data, err := findDataMember(bufio.NewReader(f))
	if err != nil {
		return err
	}
	reader, closeFn, err := decompressMember(member, data)
	if err != nil {
		return err
	}
	defer closeFn()
	return extractTar(ctx, tar.NewReader(reader), destRoot)
}

// findDataMember walks the ar container and stops at data.tar*. The
// returned reader is limited to that member.
func findDataMember(r io.Reader) (string, io.Reader, error) {
	magic := make([]byte, len(arMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != arMagic {
		return "", nil, invalidDeb("missing ar signature", err)
	}
	header := make([]byte, arHeaderLength)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF {
				return "", nil, invalidDeb("no data.tar member", nil)
			}
			return "", nil, invalidDeb("truncated ar header", err)
		}
		if string(header[58:60]) != "`\n" {
			return "", nil, invalidDeb("bad ar header terminator", nil)
		}
		name := strings.TrimRight(strings.TrimSpace(string(header[0:16])), "/")
		size, err := strconv.ParseInt(strings.TrimSpace(string(header[48:58])), 10, 64)
		if err != nil || size < 0 {
			return "", nil, invalidDeb("bad ar member size", err)
		}
		if strings.HasPrefix(name, "data.tar") {
			return name, io.LimitReader(r, size), nil
		}
		skip := size + size%2
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return "", nil, invalidDeb("truncated ar member "+name, err)
		}
	}
}

func decompressMember(name string, r io.Reader) (io.Reader, func(), error) {
	noop := func() {}
	switch name {
	case "data.tar":
		return r, noop, nil
	case "data.tar.gz":
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, noop, invalidDeb("bad gzip data member", err)
		}
		return gz, func() { _ = gz.Close() }, nil
	case "data.tar.xz":
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, noop, invalidDeb("bad xz data member", err)
		}
		return xr, noop, nil
	case "data.tar.zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, noop, invalidDeb("bad zstd data member", err)
		}
		return zr, zr.Close, nil
	case "data.tar.bz2":
		return bzip2.NewReader(r), noop, nil
	default:
		return nil, noop, invalidDeb("unsupported data member "+name, nil)
	}
}

// extractTar resolves every entry through an os.Root so that symlinks
// shipped earlier in the archive (or already on disk) never redirect a
// write outside destRoot.
func extractTar(ctx context.Context, tr *tar.Reader, destRoot string) error {
	root, err := os.OpenRoot(destRoot)
	if err != nil {
		return writeFailure(destRoot, err)
	}
	defer root.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return invalidDeb("corrupt data archive", err)
		}
		if hdr.Typeflag == tar.TypeXHeader || hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		rel, ok := memberPath(hdr.Name)
		if !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg(fmt.Sprintf("archive entry %q escapes the target root", hdr.Name))
		}
		if rel == "." {
			continue
		}
		if parent := filepath.Dir(rel); parent != "." {
			if err := root.MkdirAll(parent, 0755); err != nil {
				return writeFailure(filepath.Join(destRoot, rel), err)
			}
		}
		if err := extractEntry(tr, hdr, root, rel); err != nil {
			return err
		}
	}
}

func extractEntry(tr *tar.Reader, hdr *tar.Header, root *os.Root, rel string) error {
	target := filepath.Join(root.Name(), rel)
	mode := os.FileMode(hdr.Mode).Perm()
	switch hdr.Typeflag {
	case tar.TypeDir:
		if info, err := root.Lstat(rel); err == nil && !info.IsDir() {
			if err := root.Remove(rel); err != nil {
				return writeFailure(target, err)
			}
		}
		if err := root.MkdirAll(rel, mode|0700); err != nil {
			return writeFailure(target, err)
		}
		_ = root.Chtimes(rel, hdr.ModTime, hdr.ModTime)
	case tar.TypeReg:
		if err := replaceable(root, rel); err != nil {
			return err
		}
		out, err := root.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
		if err != nil {
			return writeFailure(target, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			_ = out.Close()
			return writeFailure(target, err)
		}
		if err := out.Close(); err != nil {
			return writeFailure(target, err)
		}
		_ = root.Chmod(rel, mode)
		_ = root.Chtimes(rel, hdr.ModTime, hdr.ModTime)
	case tar.TypeSymlink:
		if err := replaceable(root, rel); err != nil {
			return err
		}
		if err := root.Symlink(hdr.Linkname, rel); err != nil {
			return writeFailure(target, err)
		}
		if err := setSymlinkTimes(root, rel, hdr.ModTime.UnixNano()); err != nil {
			log.Debug().Err(err).Str("path", target).Msg("failed to set symlink times")
		}
	case tar.TypeLink:
		source, ok := memberPath(hdr.Linkname)
		if !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg(fmt.Sprintf("hard link %q escapes the target root", hdr.Linkname))
		}
		if err := replaceable(root, rel); err != nil {
			return err
		}
		if err := root.Link(source, rel); err != nil {
			return writeFailure(target, err)
		}
	default:
		log.Debug().Str("entry", hdr.Name).Msgf("skipping tar entry type %c", hdr.Typeflag)
	}
	return nil
}

// setSymlinkTimes stamps the link itself, addressed relative to its
// parent directory handle inside root.
func setSymlinkTimes(root *os.Root, rel string, nsec int64) error {
	dir, err := root.Open(filepath.Dir(rel))
	if err != nil {
		return err
	}
	defer dir.Close()
	ts := unix.NsecToTimespec(nsec)
	return unix.UtimesNanoAt(int(dir.Fd()), filepath.Base(rel), []unix.Timespec{ts, ts}, unix.AT_SYMLINK_NOFOLLOW)
}

// replaceable removes a non-directory entry so that extraction never
// writes through an existing symlink.
func replaceable(root *os.Root, rel string) error {
	target := filepath.Join(root.Name(), rel)
	info, err := root.Lstat(rel)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return writeFailure(target, err)
	}
	if info.IsDir() {
		return errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg(fmt.Sprintf("cannot replace directory %s", target))
	}
	if err := root.Remove(rel); err != nil {
		return writeFailure(target, err)
	}
	return nil
}

// memberPath turns an archive member name into a path relative to the
// target root. Names that climb above the archive root are rejected.
func memberPath(name string) (string, bool) {
	rel := filepath.Clean(strings.TrimLeft(name, "/"))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func invalidDeb(msg string, cause error) error {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(msg)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return builder
}

func writeFailure(path string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("failed to write %s", path)).
		WithCause(err)
}

var _ ports.ExtractorPort = NativeDebExtractor{}
