package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"navwatch/internal/domain/normalize"
)

const label12M = "12 tháng"

var rePercent = regexp.MustCompile(`([+-]?\s*\d+(?:[.,]\d+)?)\s*%`)

// Return12M reads the 12-month performance badge. The chart's own filter is
// consulted first so an unrelated badge elsewhere is not picked up. nil means
// no plausible figure was found.
func Return12M(doc *goquery.Document, min, max float64) *float64 {
	if doc == nil {
		return nil
	}
	read := func(sel *goquery.Selection) *float64 {
		v, ok := badgeValue(sel)
		if !ok || v < min || v > max {
			return nil
		}
		return &v
	}

	var found *float64
	first := func(sel *goquery.Selection) *float64 {
		found = nil
		sel.EachWithBreak(func(_ int, b *goquery.Selection) bool {
			found = read(b)
			return found == nil
		})
		return found
	}

	chart := doc.Find(".fund__chart").First()
	if chart.Length() > 0 {
		active := chart.Find(".fund__chart--filter .item.active")
		if strings.Contains(active.Text(), label12M) {
			if v := first(chart.Find(".benefit.showDesktop")); v != nil {
				return v
			}
		}
	}

	if v := first(doc.Find(".benefit.showDesktop")); v != nil {
		return v
	}

	doc.Find("body *").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.Children().Length() > 0 || strings.TrimSpace(sel.Text()) != label12M {
			return true
		}
		for cur, hops := sel.Parent(), 0; cur.Length() > 0 && hops < 3; cur, hops = cur.Parent(), hops+1 {
			cur.Find(`.benefit, [class*="benefit"]`).EachWithBreak(func(_ int, b *goquery.Selection) bool {
				found = read(b)
				return found == nil
			})
			if found != nil {
				return false
			}
		}
		return true
	})
	return found
}

// badgeValue parses the percentage in a badge. An unsigned numeral takes its
// sign from up/down styling on the badge or its descendants.
func badgeValue(sel *goquery.Selection) (float64, bool) {
	if sel.Length() == 0 {
		return 0, false
	}
	m := rePercent.FindStringSubmatch(sel.Text())
	if m == nil {
		return 0, false
	}
	v, ok := normalize.Percent(m[1])
	if !ok {
		return 0, false
	}

	raw := strings.TrimSpace(m[1])
	signed := strings.HasPrefix(raw, "+") || strings.HasPrefix(raw, "-")
	if !signed && hasTrendClass(sel, "down") && v > 0 {
		v = -v
	}
	return v, true
}

func hasTrendClass(sel *goquery.Selection, trend string) bool {
	if cls, _ := sel.Attr("class"); containsClassWord(cls, trend) {
		return true
	}
	found := false
	sel.Find("[class]").EachWithBreak(func(_ int, c *goquery.Selection) bool {
		cls, _ := c.Attr("class")
		found = containsClassWord(cls, trend)
		return !found
	})
	return found
}

// containsClassWord matches "down", "is-down", "trend-down" and similar.
func containsClassWord(classes, word string) bool {
	for _, c := range strings.Fields(classes) {
		c = strings.ToLower(c)
		if c == word || strings.HasSuffix(c, "-"+word) || strings.HasSuffix(c, "_"+word) || strings.HasPrefix(c, word+"-") {
			return true
		}
	}
	return false
}
