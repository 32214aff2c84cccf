package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/renameio"

	"debstage/internal/ports"
	"debstage/internal/types"
)

const (
	installLockName = "install.lock"
	keepReportName  = "keep.report"
)

// SelectionFileAdapter records a selection as plain text files: the
// install set as name=version lines and every forced keep as a
// package,reason,pulled line.
type SelectionFileAdapter struct {
	Dir string
}

func NewSelectionFileAdapter(dir string) SelectionFileAdapter {
	return SelectionFileAdapter{Dir: dir}
}

func (a SelectionFileAdapter) WriteSelection(selection types.Selection) error {
	if err := a.writeInstallLock(selection); err != nil {
		return err
	}
	return a.writeKeepReport(selection)
}

func (a SelectionFileAdapter) writeInstallLock(selection types.Selection) error {
	path, err := a.ensurePath(installLockName)
	if err != nil {
		return err
	}
	var lines []string
	for _, name := range selection.Installs() {
		lines = append(lines, fmt.Sprintf("%s=%s", name, selection.Versions[name]))
	}
	return writeLines(path, lines)
}

func (a SelectionFileAdapter) writeKeepReport(selection types.Selection) error {
	path, err := a.ensurePath(keepReportName)
	if err != nil {
		return err
	}
	var lines []string
	for _, event := range selection.Events {
		lines = append(lines, fmt.Sprintf("%s,%s,%t", event.Package, event.Reason, event.Pulled))
	}
	return writeLines(path, lines)
}

func (a SelectionFileAdapter) ensurePath(filename string) (string, error) {
	if a.Dir == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is empty")
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output directory").
			WithCause(err)
	}
	return filepath.Join(a.Dir, filename), nil
}

func writeLines(path string, lines []string) error {
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := renameio.WriteFile(path, []byte(content), 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write " + filepath.Base(path)).
			WithCause(err)
	}
	return nil
}

var _ ports.SelectionWriterPort = SelectionFileAdapter{}
