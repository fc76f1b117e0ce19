package extract

import (
	"strings"
	"time"
)

// DisplayLayout renders ledger timestamps, e.g. "Aug 29, 2017 04:12:17 AM".
const DisplayLayout = "Jan 02, 2006 03:04:05 PM"

// dateLayouts are tried in order. Layouts without a zone parse as UTC.
var dateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05",
}

// namedZones maps the RFC 5322 obsolete zone names to numeric offsets.
// time.Parse gives any unknown abbreviation a zero offset, so names are
// rewritten before parsing.
var namedZones = map[string]string{
	"UT":  "+0000",
	"UTC": "+0000",
	"GMT": "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

// FormatTimestamp converts an email Date header to DisplayLayout in loc.
// When no layout matches, or the zone is a name other than those in
// namedZones, raw is returned unchanged.
func FormatTimestamp(raw string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	value, ok := numericZone(strings.TrimSpace(raw))
	if !ok {
		return raw
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		return t.In(loc).Format(DisplayLayout)
	}
	return raw
}

// numericZone replaces a trailing zone name with its offset. It reports
// false when the trailing word is alphabetic but not a known zone.
func numericZone(value string) (string, bool) {
	i := strings.LastIndexByte(value, ' ')
	if i < 0 {
		return value, true
	}
	last := value[i+1:]
	if !isLetters(last) {
		return value, true
	}
	offset, ok := namedZones[strings.ToUpper(last)]
	if !ok {
		return "", false
	}
	return value[:i+1] + offset, true
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
