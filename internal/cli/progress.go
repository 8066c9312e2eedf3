package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Progress renders a counting progress bar for long batch operations.
type Progress struct {
	bar    *progressbar.ProgressBar
	writer io.Writer
	done   int
}

// NewProgress creates a progress bar for total items written to w.
func NewProgress(w io.Writer, total int, description string) *Progress {
	if w == nil {
		w = os.Stderr
	}
	p := &Progress{writer: w}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Update moves the bar to done out of total. It matches the importer's
// progress callback signature.
func (p *Progress) Update(done, _ int) {
	if done <= p.done {
		return
	}
	if err := p.bar.Add(done - p.done); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
	p.done = done
}

// Done reports how many items have been counted.
func (p *Progress) Done() int {
	return p.done
}
