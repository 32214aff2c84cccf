package adapters

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"debstage/internal/types"
)

const maxStanzaLine = 4 << 20

// parseAptPackages reads a deb822 Packages list. Continuation lines are
// folded into the preceding field; stanzas without Package or Version
// are dropped.
func parseAptPackages(reader io.Reader, baseURL string) ([]types.AptPackage, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64<<10), maxStanzaLine)

	var out []types.AptPackage
	fields := map[string]string{}
	lastKey := ""
	flush := func() {
		if pkg, ok := stanzaToPackage(fields, baseURL); ok {
			out = append(out, pkg)
		}
		fields = map[string]string{}
		lastKey = ""
	}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastKey != "" {
				fields[lastKey] += "\n" + strings.TrimSpace(line)
			}
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		lastKey = strings.ToLower(strings.TrimSpace(key))
		fields[lastKey] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read apt packages").
			WithCause(err)
	}
	flush()
	return out, nil
}

func stanzaToPackage(fields map[string]string, baseURL string) (types.AptPackage, bool) {
	name := fields["package"]
	version := fields["version"]
	if name == "" || version == "" {
		return types.AptPackage{}, false
	}
	pkg := types.AptPackage{
		Name:         name,
		Version:      version,
		Architecture: fields["architecture"],
		Priority:     types.Priority(strings.ToLower(fields["priority"])),
		Essential:    strings.EqualFold(fields["essential"], "yes"),
		Depends:      splitRelations(fields["depends"]),
		PreDepends:   splitRelations(fields["pre-depends"]),
		Recommends:   splitRelations(fields["recommends"]),
		Provides:     splitRelations(fields["provides"]),
		Filename:     fields["filename"],
		SHA256:       strings.ToLower(fields["sha256"]),
		BaseURL:      baseURL,
	}
	if size, err := strconv.ParseInt(fields["size"], 10, 64); err == nil {
		pkg.Size = size
	}
	return pkg, true
}

// splitRelations splits a comma separated relation field into its
// dependency groups.
func splitRelations(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.Join(strings.Fields(part), " ")
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
