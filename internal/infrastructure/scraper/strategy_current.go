package scraper

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"navwatch/internal/domain/model"
	"navwatch/internal/domain/normalize"
)

var currentMarkers = []string{"Giá gần nhất", "Cập nhật ngày"}

var (
	reVNDPrice = regexp.MustCompile(`(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d+)?)\s*VND`)
	reDMYDate  = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`)
)

// CurrentValueStrategy reads the single "latest price" block as a last
// resort. A missing date falls back to today.
type CurrentValueStrategy struct {
	now func() time.Time
}

func (s *CurrentValueStrategy) Name() string    { return "current" }
func (s *CurrentValueStrategy) NeedsPage() bool { return true }

func (s *CurrentValueStrategy) Extract(ctx context.Context, in *Input) ([]model.NavPoint, error) {
	region := s.region(in.Page.Doc)
	if region == "" {
		return nil, nil
	}

	m := reVNDPrice.FindStringSubmatch(region)
	if m == nil {
		return nil, nil
	}
	var date string
	if d := reDMYDate.FindStringSubmatch(region); d != nil {
		date = d[1]
	} else {
		date = s.now().Format(normalize.DateLayout)
	}

	p, ok := in.Filter.Accept(date, m[1])
	if !ok {
		return nil, nil
	}
	return []model.NavPoint{p}, nil
}

// region returns the text of the smallest element that holds a marker and a
// VND price. The body text is used when no such element exists.
func (s *CurrentValueStrategy) region(doc *goquery.Document) string {
	var best string
	doc.Find("body *").Each(func(_ int, el *goquery.Selection) {
		if best != "" {
			return
		}
		txt := el.Text()
		if !containsMarker(txt) {
			return
		}
		// descend to the innermost element carrying the marker
		if el.Children().FilterFunction(func(_ int, c *goquery.Selection) bool {
			return containsMarker(c.Text())
		}).Length() > 0 {
			return
		}
		for cur := el; cur.Length() > 0 && !cur.Is("html"); cur = cur.Parent() {
			if t := cur.Text(); reVNDPrice.MatchString(t) {
				best = t
				return
			}
		}
	})
	if best != "" {
		return best
	}

	body := doc.Find("body").Text()
	if containsMarker(body) {
		return body
	}
	return ""
}

func containsMarker(s string) bool {
	for _, m := range currentMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
