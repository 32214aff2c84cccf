package core

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"debstage/internal/types"
)

const DefaultRelease = "vivid"

// DefaultSourcesTemplate covers the main, updates and security pockets of
// every Ubuntu component.
const DefaultSourcesTemplate = `deb http://${prefix}.ubuntu.com/${suffix}/ ${release} main restricted
deb http://${prefix}.ubuntu.com/${suffix}/ ${release}-updates main restricted
deb http://${prefix}.ubuntu.com/${suffix}/ ${release} universe
deb http://${prefix}.ubuntu.com/${suffix}/ ${release}-updates universe
deb http://${prefix}.ubuntu.com/${suffix}/ ${release} multiverse
deb http://${prefix}.ubuntu.com/${suffix}/ ${release}-updates multiverse
deb http://${security}.ubuntu.com/${suffix} ${release}-security main restricted
deb http://${security}.ubuntu.com/${suffix} ${release}-security universe
deb http://${security}.ubuntu.com/${suffix} ${release}-security multiverse
`

var primaryArchitectures = map[string]struct{}{
	"amd64": {},
	"i386":  {},
}

// IsPrimaryArchitecture reports whether arch is served by the main archive
// rather than the ports mirror.
func IsPrimaryArchitecture(arch string) bool {
	_, ok := primaryArchitectures[strings.TrimSpace(arch)]
	return ok
}

// FormatSources substitutes the mirror parameters for arch and release
// into template. Every placeholder must be one of prefix, release, suffix
// or security.
func FormatSources(ctx context.Context, template string, arch string, release string, hint types.GeoHint) (string, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultSourcesTemplate
	}
	release = strings.TrimSpace(release)
	if release == "" {
		release = DefaultRelease
	}
	assert.NotEmpty(ctx, release, "release must be set")

	values := map[string]string{"release": release}
	if IsPrimaryArchitecture(arch) {
		values["prefix"] = archivePrefix(hint)
		values["suffix"] = "ubuntu"
		values["security"] = "security"
	} else {
		values["prefix"] = "ports"
		values["suffix"] = "ubuntu-ports"
		values["security"] = "ports"
	}

	var unknown []string
	out := os.Expand(template, func(key string) string {
		value, ok := values[key]
		if !ok {
			unknown = append(unknown, key)
			return ""
		}
		return value
	})
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown sources placeholder %s", strings.Join(uniqueStrings(unknown), ", ")))
	}
	log.Ctx(ctx).Debug().
		Str("arch", arch).
		Str("release", release).
		Str("prefix", values["prefix"]).
		Msg("sources formatted")
	return out, nil
}

// archivePrefix returns "<cc>.archive". Without a country code it returns
// "archive" rather than a bare ".archive": an empty hint would otherwise
// yield a host name starting with a dot, such as ".archive.ubuntu.com".
func archivePrefix(hint types.GeoHint) string {
	code := strings.ToLower(strings.TrimSpace(hint.Code))
	if !hint.Available || code == "" {
		return "archive"
	}
	return code + ".archive"
}

func uniqueStrings(values []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

var debianArchitectures = map[string]string{
	"amd64":   "amd64",
	"386":     "i386",
	"arm64":   "arm64",
	"arm":     "armhf",
	"ppc64le": "ppc64el",
	"s390x":   "s390x",
	"riscv64": "riscv64",
}

// HostArchitecture maps a Go architecture name to its Debian name. Unknown
// names are returned unchanged.
func HostArchitecture(goarch string) string {
	if arch, ok := debianArchitectures[goarch]; ok {
		return arch
	}
	return goarch
}
