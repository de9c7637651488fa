package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The listings mix ISO dates, day-first numeric dates and Spanish prose
// dates, so parsing tries a fixed set of layouts and finally a prose match.

var numericLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
	"January 2, 2006",
}

var spanishMonths = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"setiembre": time.September, "octubre": time.October,
	"noviembre": time.November, "diciembre": time.December,
}

var proseDateRe = regexp.MustCompile(`(\d{1,2})\s+de\s+([a-záéíóú]+)\s+(?:de\s+)?(\d{4})`)
var bareYearRe = regexp.MustCompile(`(19|20)\d{2}`)

// ParseDocumentDate parses a free-text publication date. ok=false means no
// format matched; callers must not fabricate a date.
func ParseDocumentDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range numericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	lower := strings.ToLower(s)
	if m := proseDateRe.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if month, ok := spanishMonths[m[2]]; ok && day >= 1 && day <= 31 {
			return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
		}
	}

	// A bare year still orders documents usefully.
	if m := bareYearRe.FindString(s); m != "" {
		year, _ := strconv.Atoi(m)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}
