// Package normalize turns source-formatted dates and Vietnamese-locale numbers
// into canonical values. Every function reports failure with a false flag and
// never panics.
package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar date layout.
const DateLayout = "2006-01-02"

// SourceLocation is the wall clock of the source site (UTC+7, no DST). Epoch
// timestamps take their calendar date here, so both UTC midnight and local
// midnight stamps land on the intended day.
var SourceLocation = time.FixedZone("ICT", 7*60*60)

var (
	reDMY      = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	reEpoch    = regexp.MustCompile(`^\d{10}(\d{3})?$`)
	reNumeric  = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
	reDotGroup = regexp.MustCompile(`^\d{3}$`)
)

var isoLayouts = []string{
	DateLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-01-2006",
	time.RFC1123,
	time.RFC1123Z,
}

// Date accepts DD/MM/YYYY first, then common ISO-like layouts (dated in UTC),
// then epoch seconds or milliseconds (dated in SourceLocation), and returns
// YYYY-MM-DD.
func Date(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if m := reDMY.FindStringSubmatch(s); m != nil {
		t, err := time.Parse("02/01/2006", s)
		if err != nil {
			return "", false
		}
		return t.Format(DateLayout), true
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(DateLayout), true
		}
	}

	if reEpoch.MatchString(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return "", false
		}
		return epochDate(float64(n))
	}
	return "", false
}

// epochDate treats values above 1e11 as milliseconds, otherwise seconds.
func epochDate(n float64) (string, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return "", false
	}
	var t time.Time
	if n > 1e11 {
		t = time.UnixMilli(int64(n))
	} else {
		t = time.Unix(int64(n), 0)
	}
	return t.In(SourceLocation).Format(DateLayout), true
}

// Decimal parses a Vietnamese-locale number. Separator rules, in order:
//  1. comma but no dot: commas are thousands separators
//  2. both: the last separator is the decimal point
//  3. dot only: dots are thousands separators when every group after the
//     first has three digits, otherwise the single dot is the decimal point
//
// The result is rounded to two decimals.
func Decimal(raw string) (float64, bool) {
	s := stripSpace(raw)
	if s == "" {
		return 0, false
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && !hasDot:
		s = strings.ReplaceAll(s, ",", "")
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasDot:
		if dotsAreThousands(s) {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	return round2(s)
}

func dotsAreThousands(s string) bool {
	groups := strings.Split(strings.TrimLeft(s, "+-"), ".")
	if len(groups) < 2 || groups[0] == "" {
		return false
	}
	for _, g := range groups[1:] {
		if !reDotGroup.MatchString(g) {
			return false
		}
	}
	return true
}

// Percent parses a badge figure such as "+28,1 %" or "-3.25%". A comma is
// always the decimal separator here.
func Percent(raw string) (float64, bool) {
	s := stripSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", ".")
	return round2(s)
}

// DateValue normalizes a decoded JSON value: numbers are epoch seconds or
// milliseconds, strings go through Date.
func DateValue(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return Date(x)
	case float64:
		return epochDate(x)
	case int64:
		return epochDate(float64(x))
	case int:
		return epochDate(float64(x))
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return epochDate(f)
		}
		return Date(x.String())
	default:
		return "", false
	}
}

// NumberValue normalizes a decoded JSON value: numbers are taken as-is and
// rounded, strings go through Decimal.
func NumberValue(v any) (float64, bool) {
	switch x := v.(type) {
	case string:
		return Decimal(x)
	case float64:
		return roundFloat(x)
	case int64:
		return roundFloat(float64(x))
	case int:
		return roundFloat(float64(x))
	case json.Number:
		return round2(x.String())
	default:
		return 0, false
	}
}

func roundFloat(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return decimal.NewFromFloat(f).Round(2).InexactFloat64(), true
}

func round2(s string) (float64, bool) {
	s = strings.TrimPrefix(s, "+")
	if !reNumeric.MatchString(s) {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.Round(2).InexactFloat64(), true
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)
}
