// Package price converts locale-formatted price text into exact minor-unit
// integers and renders them back for humans.
package price

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// CurrencySuffix is appended by Format.
const CurrencySuffix = "zł"

const groupSeparator = "\u00a0"

var numberRun = regexp.MustCompile(`\d[\d\s\x{00A0}\x{202F}.,]*`)

// Normalize parses price text such as "2 399,00 zł" or "2399.00" into minor
// units (1/100 of the currency). The second return value is false when the
// text holds no usable amount.
func Normalize(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}

	t := strings.ToLower(text)
	t = strings.Replace(t, "zł", "", 1)
	t = strings.Replace(t, "pln", "", 1)
	t = strings.TrimSpace(t)

	run := numberRun.FindString(t)
	if run == "" {
		return 0, false
	}
	num := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, run)

	hasComma := strings.Contains(num, ",")
	hasDot := strings.Contains(num, ".")

	var whole, frac string
	switch {
	case hasComma && !hasDot:
		whole, frac = splitFraction(num, ",")
	case hasDot && !hasComma:
		whole, frac = splitFraction(num, ".")
	case hasComma && hasDot:
		// dots group thousands, the first comma separates the fraction
		num = strings.ReplaceAll(num, ".", "")
		parts := strings.SplitN(num, ",", 2)
		whole, frac = parts[0], parts[1]
	default:
		whole = num
	}

	return combine(digitsOnly(whole), digitsOnly(frac))
}

// splitFraction mirrors a plain split on sep: the first piece is the whole
// part and only the second piece is read as the fraction.
func splitFraction(num, sep string) (string, string) {
	parts := strings.Split(num, sep)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func combine(whole, frac string) (int64, bool) {
	if whole == "" {
		return 0, false
	}
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || major > math.MaxInt64/100 {
		return 0, false
	}
	minor, _ := strconv.ParseInt(frac, 10, 64)
	if major == math.MaxInt64/100 && minor > math.MaxInt64%100 {
		return 0, false
	}
	return major*100 + minor, true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Format renders minor units as "2 399,00 zł" with grouped major units.
// The output is meant for people; Normalize accepts it back.
func Format(minorUnits int64) string {
	sign := ""
	if minorUnits < 0 {
		sign = "-"
		minorUnits = -minorUnits
	}
	major := minorUnits / 100
	grouped := strings.ReplaceAll(humanize.Comma(major), ",", groupSeparator)
	return fmt.Sprintf("%s%s,%02d %s", sign, grouped, minorUnits%100, CurrencySuffix)
}

// FormatDelta renders a signed difference, e.g. "-200,00 zł" or "+15,50 zł".
func FormatDelta(delta int64) string {
	switch {
	case delta > 0:
		return "+" + Format(delta)
	case delta < 0:
		return Format(delta)
	default:
		return "±" + Format(0)
	}
}
