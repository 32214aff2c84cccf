package adapters

import (
	"bufio"
	"bytes"
	_ "embed"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"debstage/internal/ports"
)

//go:embed manifest.txt
var defaultManifest []byte

// ManifestAdapter reads package manifests: one name per line, blank lines
// and "#" comments ignored. An empty path selects the built-in manifest.
type ManifestAdapter struct{}

func NewManifestAdapter() ManifestAdapter {
	return ManifestAdapter{}
}

func (a ManifestAdapter) Load(path string) ([]string, error) {
	data := defaultManifest
	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("manifest file not found").
				WithCause(err)
		}
		data = content
	}
	return parseManifest(data), nil
}

func parseManifest(data []byte) []string {
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names
}

var _ ports.ManifestPort = ManifestAdapter{}
