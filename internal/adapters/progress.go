package adapters

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"debstage/internal/ports"
)

// ProgressBarAdapter renders progress as terminal bars.
type ProgressBarAdapter struct {
	Out io.Writer
}

func NewProgressBarAdapter(out io.Writer) ProgressBarAdapter {
	if out == nil {
		out = os.Stderr
	}
	return ProgressBarAdapter{Out: out}
}

func (a ProgressBarAdapter) Start(label string, total int) ports.ProgressTask {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(a.Out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return progressBarTask{bar: bar}
}

type progressBarTask struct {
	bar *progressbar.ProgressBar
}

func (t progressBarTask) Increment(string) {
	_ = t.bar.Add(1)
}

func (t progressBarTask) Finish() {
	_ = t.bar.Finish()
}

// NoopProgress discards progress updates.
type NoopProgress struct{}

func (NoopProgress) Start(string, int) ports.ProgressTask {
	return noopTask{}
}

type noopTask struct{}

func (noopTask) Increment(string) {}
func (noopTask) Finish()          {}

func startProgress(progress ports.ProgressPort, label string, total int) ports.ProgressTask {
	if progress == nil {
		return noopTask{}
	}
	return progress.Start(label, total)
}

var _ ports.ProgressPort = ProgressBarAdapter{}
var _ ports.ProgressPort = NoopProgress{}
