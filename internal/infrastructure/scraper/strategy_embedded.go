package scraper

import (
	"context"
	"encoding/json"
	"regexp"

	"navwatch/internal/domain/model"
)

// Each pattern ends right before the opening bracket of the literal.
var keyedLiteralPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:var|let|const)\s+\w*[Dd]ata\w*\s*=\s*\[`),
	regexp.MustCompile(`(?:chartData|navData|seriesData|data)\s*[:=]\s*\[`),
	regexp.MustCompile(`points\s*:\s*\[`),
}

var reBareTuples = regexp.MustCompile(`\[\s*\[`)

// EmbeddedStrategy scans inline scripts for array literals bound to data-like
// names and for bare arrays of two-element tuples.
type EmbeddedStrategy struct {
	minLen int
	maxLen int
}

func (s *EmbeddedStrategy) Name() string    { return "embedded" }
func (s *EmbeddedStrategy) NeedsPage() bool { return true }

func (s *EmbeddedStrategy) Extract(ctx context.Context, in *Input) ([]model.NavPoint, error) {
	var out []model.NavPoint
	for _, script := range in.Page.Scripts {
		for _, lit := range s.literals(script) {
			var items []any
			if err := json.Unmarshal([]byte(relaxJSON(lit)), &items); err != nil {
				continue
			}
			for _, item := range items {
				if p, ok := in.Filter.AcceptItem(item); ok {
					out = append(out, p)
				}
			}
		}
	}
	return out, nil
}

// literals returns candidate array literals in script order. Literals
// nested inside one already taken are skipped.
func (s *EmbeddedStrategy) literals(script string) []string {
	type span struct{ start, end int }
	var spans []span
	var out []string
	taken := func(offset int) bool {
		for _, sp := range spans {
			if offset >= sp.start && offset < sp.end {
				return true
			}
		}
		return false
	}

	for _, re := range keyedLiteralPatterns {
		for _, loc := range re.FindAllStringIndex(script, -1) {
			start := loc[1] - 1
			if taken(start) {
				continue
			}
			lit, ok := balancedArray(script, start, s.maxLen)
			if !ok || len(lit) < s.minLen {
				continue
			}
			spans = append(spans, span{start, start + len(lit)})
			out = append(out, lit)
		}
	}

	for _, loc := range reBareTuples.FindAllStringIndex(script, -1) {
		start := loc[0]
		if taken(start) {
			continue
		}
		lit, ok := balancedArray(script, start, s.maxLen)
		if !ok {
			continue
		}
		spans = append(spans, span{start, start + len(lit)})
		out = append(out, lit)
	}
	return out
}
