package adapters

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"debstage/internal/types"
)

// ParseSources extracts the binary "deb" entries of a sources.list
// document. Comments, blank lines and deb-src entries are skipped.
func ParseSources(document string) ([]types.SourceEntry, error) {
	var entries []types.SourceEntry
	scanner := bufio.NewScanner(strings.NewReader(document))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		fields := strings.Fields(stripSourceOptions(line))
		if len(fields) == 0 || fields[0] == "deb-src" {
			continue
		}
		if fields[0] != "deb" || len(fields) < 3 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid sources entry on line %d", lineNo))
		}
		entry := types.SourceEntry{
			URI:        strings.TrimRight(fields[1], "/"),
			Suite:      fields[2],
			Components: fields[3:],
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read sources").
			WithCause(err)
	}
	if len(entries) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("sources list has no deb entries")
	}
	return entries, nil
}

// stripSourceOptions removes a one-line-style "[arch=amd64 ...]" block.
func stripSourceOptions(line string) string {
	start := strings.Index(line, "[")
	if start < 0 {
		return line
	}
	end := strings.Index(line[start:], "]")
	if end < 0 {
		return line
	}
	return line[:start] + " " + line[start+end+1:]
}
