package dailycrawl

import (
	"fmt"
	"strings"
	"time"

	"navwatch/internal/application/service"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type Formatter struct {
	// Color disables ANSI sequences when false (log files, tests).
	Color bool
}

func NewFormatter(color bool) *Formatter {
	return &Formatter{Color: color}
}

func (f *Formatter) paint(s, c string) string {
	if !f.Color {
		return s
	}
	return colorize(s, c)
}

// RenderLive draws one overwrite-in-place progress line.
func (f *Formatter) RenderLive(snap Snapshot) string {
	var sb strings.Builder
	sb.WriteString("\r")
	sb.WriteString(f.paint("[NAVWATCH] ", ansiDim))

	done, total := snap.Progress()
	sb.WriteString(fmt.Sprintf("%d/%d ", done, total))

	for i, code := range snap.Order {
		if i > 0 {
			sb.WriteString(f.paint(" | ", ansiDim))
		}
		fs := snap.Funds[code]
		switch fs.status {
		case StatusOK:
			sb.WriteString(f.paint(fmt.Sprintf("%s +%d", code, fs.added), ansiGreen))
		case StatusFailed:
			sb.WriteString(f.paint(string(code)+" x", ansiRed))
		default:
			sb.WriteString(f.paint(string(code)+" ..", ansiYellow))
		}
	}

	if f.Color {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}

// RenderSummary is the one-line outcome of a batch.
func (f *Formatter) RenderSummary(r service.BatchReport) string {
	var sb strings.Builder
	sb.WriteString(f.paint("[NAVWATCH] ", ansiDim))
	sb.WriteString(fmt.Sprintf("run %s: ", shortID(r.RunID)))
	sb.WriteString(f.paint(fmt.Sprintf("%d ok", r.Succeeded), ansiGreen))
	sb.WriteString(", ")
	failCol := ansiDim
	if r.Failed > 0 {
		failCol = ansiRed
	}
	sb.WriteString(f.paint(fmt.Sprintf("%d failed", r.Failed), failCol))
	sb.WriteString(fmt.Sprintf(" in %s", r.Duration.Round(time.Millisecond)))
	return sb.String()
}

// RenderResult is one line per fund for the crawl command.
func (f *Formatter) RenderResult(r service.FundResult) string {
	if !r.OK {
		return f.paint(fmt.Sprintf("%-8s FAILED  %s", r.Code, r.Error), ansiRed)
	}
	line := fmt.Sprintf("%-8s new=%d total=%d added=%d", r.Code, r.NewCount, r.TotalCount, r.Added)
	if r.Return12M != nil {
		line += fmt.Sprintf(" 12M=%+.2f%%", *r.Return12M)
	}
	return f.paint(line, ansiGreen)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
