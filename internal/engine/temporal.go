package engine

import (
	"regexp"
	"strings"
	"time"

	"morselsql/internal/engineerrors"
)

// TemporalRange is the date window a `FOR ...` clause selects, stripped
// from the SQL text before the parser ever sees it (§6).
type TemporalRange struct {
	Start, End time.Time
	Keyword    string // set for named ranges (TODAY, YESTERDAY, ...); empty for explicit dates
}

var namedRanges = map[string]func(now time.Time) TemporalRange{
	"TODAY": func(now time.Time) TemporalRange {
		d := dayStart(now)
		return TemporalRange{Start: d, End: d, Keyword: "TODAY"}
	},
	"YESTERDAY": func(now time.Time) TemporalRange {
		d := dayStart(now.AddDate(0, 0, -1))
		return TemporalRange{Start: d, End: d, Keyword: "YESTERDAY"}
	},
	"THIS_MONTH": func(now time.Time) TemporalRange {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 1, -1)
		return TemporalRange{Start: start, End: end, Keyword: "THIS_MONTH"}
	},
	"LAST_MONTH": func(now time.Time) TemporalRange {
		firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		start := firstOfThisMonth.AddDate(0, -1, 0)
		end := firstOfThisMonth.AddDate(0, 0, -1)
		return TemporalRange{Start: start, End: end, Keyword: "LAST_MONTH"}
	},
	"PREVIOUS_MONTH": func(now time.Time) TemporalRange {
		return namedRanges["LAST_MONTH"](now)
	},
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

var (
	forDatesBetween = regexp.MustCompile(`(?i)\s+FOR\s+DATES\s+BETWEEN\s+'([^']+)'\s+AND\s+'([^']+)'\s*`)
	forDate         = regexp.MustCompile(`(?i)\s+FOR\s+'([^']+)'\s*`)
	forKeyword      = regexp.MustCompile(`(?i)\s+FOR\s+([A-Z_]+)\s*`)
	forDatesInLast  = regexp.MustCompile(`(?i)\s+FOR\s+DATES\s+IN\s+(LAST_MONTH|PREVIOUS_MONTH|THIS_MONTH)\s*`)
)

// ExtractTemporalRange strips a `FOR <date>` / `FOR DATES BETWEEN a AND
// b` / `FOR TODAY|YESTERDAY|...` clause from sql, returning the range
// and the remainder the parser actually sees. sql with no FOR clause is
// returned unchanged with a nil range. now is injected rather than read
// from the clock so callers (and tests) can pin it.
func ExtractTemporalRange(sql string, now time.Time) (*TemporalRange, string, error) {
	if m := forDatesBetween.FindStringSubmatch(sql); m != nil {
		start, err := time.Parse("2006-01-02", m[1])
		if err != nil {
			return nil, "", engineerrors.Wrap(engineerrors.InvalidTemporalRangeFilterError, err, "malformed FOR DATES BETWEEN start")
		}
		end, err := time.Parse("2006-01-02", m[2])
		if err != nil {
			return nil, "", engineerrors.Wrap(engineerrors.InvalidTemporalRangeFilterError, err, "malformed FOR DATES BETWEEN end")
		}
		if end.Before(start) {
			return nil, "", engineerrors.New(engineerrors.InvalidTemporalRangeFilterError, "FOR DATES BETWEEN end precedes start")
		}
		return &TemporalRange{Start: start, End: end}, strip(sql, forDatesBetween), nil
	}
	if m := forDatesInLast.FindStringSubmatch(sql); m != nil {
		fn, ok := namedRanges[strings.ToUpper(m[1])]
		if !ok {
			return nil, "", engineerrors.New(engineerrors.InvalidTemporalRangeFilterError, "unknown FOR DATES IN range: "+m[1])
		}
		r := fn(now)
		return &r, strip(sql, forDatesInLast), nil
	}
	if m := forDate.FindStringSubmatch(sql); m != nil {
		d, err := time.Parse("2006-01-02", m[1])
		if err != nil {
			return nil, "", engineerrors.Wrap(engineerrors.InvalidTemporalRangeFilterError, err, "malformed FOR <date>")
		}
		return &TemporalRange{Start: d, End: d}, strip(sql, forDate), nil
	}
	if m := forKeyword.FindStringSubmatch(sql); m != nil {
		fn, ok := namedRanges[strings.ToUpper(m[1])]
		if !ok {
			return nil, "", engineerrors.New(engineerrors.InvalidTemporalRangeFilterError, "unknown FOR keyword: "+m[1])
		}
		r := fn(now)
		return &r, strip(sql, forKeyword), nil
	}
	return nil, sql, nil
}

func strip(sql string, re *regexp.Regexp) string {
	return strings.TrimSpace(re.ReplaceAllString(sql, " "))
}
