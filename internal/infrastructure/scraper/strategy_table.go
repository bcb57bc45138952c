package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"navwatch/internal/domain/model"
)

// TableStrategy reads static HTML tables. For each row the first adjacent
// cell pair that looks like (date, value) wins.
type TableStrategy struct{}

func (s *TableStrategy) Name() string    { return "table" }
func (s *TableStrategy) NeedsPage() bool { return true }

func (s *TableStrategy) Extract(ctx context.Context, in *Input) ([]model.NavPoint, error) {
	var out []model.NavPoint
	in.Page.Doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		n := cells.Length()
		for i := 0; i+1 < n; i++ {
			left := strings.TrimSpace(cells.Eq(i).Text())
			right := strings.TrimSpace(cells.Eq(i + 1).Text())
			if p, ok := in.Filter.Accept(left, right); ok {
				out = append(out, p)
				return
			}
		}
	})
	return out, nil
}
