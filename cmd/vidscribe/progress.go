package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"vidscribe/internal/logging"
	"vidscribe/internal/pipeline"
)

// progressPrinter renders pipeline progress as a single rewritten line on a
// terminal, or as sampled log lines otherwise.
type progressPrinter struct {
	out     io.Writer
	live    bool
	sampler *logging.ProgressSampler
	logger  *slog.Logger
	width   int
}

func newProgressPrinter(out io.Writer, logger *slog.Logger) *progressPrinter {
	return &progressPrinter{
		out:     out,
		live:    isTerminal(out),
		sampler: logging.NewProgressSampler(10),
		logger:  logger,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *progressPrinter) update(ev pipeline.Progress) {
	if !p.live {
		if p.sampler.ShouldLog(ev.Percent, ev.Stage) {
			p.logger.Info("progress",
				logging.String(logging.FieldStage, ev.Stage),
				logging.Float64("percent", ev.Percent),
				logging.String("message", ev.Message),
			)
		}
		return
	}
	line := fmt.Sprintf("%-9s %5.1f%%  %s", ev.Stage, ev.Percent, ev.Message)
	pad := ""
	if n := len(line); n < p.width {
		pad = strings.Repeat(" ", p.width-n)
	}
	p.width = max(p.width, len(line))
	fmt.Fprintf(p.out, "\r%s%s", line, pad)
}

// finish clears the live line so following output starts on a clean row.
func (p *progressPrinter) finish() {
	if p.live && p.width > 0 {
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", p.width))
	}
}
