package validation

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Receipts dated outside this range are treated as misreads.
const (
	minReceiptYear = 2020
	maxReceiptYear = 2030
)

// Date is a calendar day with no time or location attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date, reporting false for days that do not exist in the
// Gregorian calendar such as 31/04 or 29/02 of a common year.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) After(other Date) bool {
	if d.Year != other.Year {
		return d.Year > other.Year
	}
	if d.Month != other.Month {
		return d.Month > other.Month
	}
	return d.Day > other.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText encodes the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD date.
func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	t, err := time.Parse("2006-01-02", string(text))
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", text, err)
	}
	*d = DateOf(t)
	return nil
}

// months maps lowercase Portuguese and English month names, full and
// abbreviated, to their month number.
var months = map[string]time.Month{
	// Portuguese
	"jan": 1, "fev": 2, "mar": 3, "abr": 4, "mai": 5, "jun": 6,
	"jul": 7, "ago": 8, "set": 9, "out": 10, "nov": 11, "dez": 12,
	"janeiro": 1, "fevereiro": 2, "março": 3, "marco": 3, "abril": 4, "maio": 5, "junho": 6,
	"julho": 7, "agosto": 8, "setembro": 9, "outubro": 10, "novembro": 11, "dezembro": 12,
	// English
	"feb": 2, "apr": 4, "may": 5, "aug": 8, "sep": 9, "oct": 10, "dec": 12,
	"january": 1, "february": 2, "march": 3, "april": 4, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

// monthAlternation returns the month names as a regexp alternation, longest
// names first.
func monthAlternation() string {
	names := make([]string, 0, len(months))
	for name := range months {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	for i, name := range names {
		names[i] = regexp.QuoteMeta(name)
	}
	return strings.Join(names, "|")
}

var dateRules = []rule[Date]{
	{
		name:    "day-month-name-year",
		pattern: regexp.MustCompile(`(?i)(\d{1,2})\s*(?:de\s+)?(` + monthAlternation() + `)\.?\s*(?:de\s+)?(\d{4})`),
		parse:   dayMonthYear,
	},
	{
		name:    "day/month/year",
		pattern: regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`),
		parse:   dayMonthYear,
	},
	{
		name:    "day-month-year",
		pattern: regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`),
		parse:   dayMonthYear,
	},
	{
		name:    "day.month.year",
		pattern: regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`),
		parse:   dayMonthYear,
	},
	{
		name:    "year-month-day",
		pattern: regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`),
		parse:   yearMonthDay,
	},
	{
		name:    "day/month/short-year",
		pattern: regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{2})\b`),
		parse:   dayMonthShortYear,
	},
}

func dayMonthYear(groups []string) (Date, bool) {
	return buildDate(groups[1], groups[2], groups[3])
}

func yearMonthDay(groups []string) (Date, bool) {
	return buildDate(groups[3], groups[2], groups[1])
}

func dayMonthShortYear(groups []string) (Date, bool) {
	return buildDate(groups[1], groups[2], "20"+groups[3])
}

// buildDate checks the parts for a plausible receipt date before constructing it.
func buildDate(dayPart, monthPart, yearPart string) (Date, bool) {
	day, err := strconv.Atoi(dayPart)
	if err != nil {
		return Date{}, false
	}
	month, ok := monthNumber(monthPart)
	if !ok {
		return Date{}, false
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return Date{}, false
	}
	if day < 1 || day > 31 || month < 1 || month > 12 || year < minReceiptYear || year > maxReceiptYear {
		return Date{}, false
	}
	return NewDate(year, month, day)
}

func monthNumber(token string) (time.Month, bool) {
	token = strings.ToLower(token)
	if m, ok := months[token]; ok {
		return m, true
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return time.Month(n), true
}

// DateStrategy decides which date wins when a receipt mentions several.
type DateStrategy int

const (
	// FirstMatch picks the first valid date in rule order.
	FirstMatch DateStrategy = iota
	// Latest picks the most recent valid date found by any rule.
	Latest
)

// ParseDateStrategy accepts "first" or "latest".
func ParseDateStrategy(s string) (DateStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return FirstMatch, nil
	case "latest":
		return Latest, nil
	default:
		return FirstMatch, fmt.Errorf("unknown date strategy %q (valid: first, latest)", s)
	}
}

func (s DateStrategy) String() string {
	if s == Latest {
		return "latest"
	}
	return "first"
}

// Extract finds the receipt date in text according to the strategy.
func (s DateStrategy) Extract(text string) (Date, bool) {
	var (
		found Date
		ok    bool
	)
	matchRules(dateRules, text, func(r rule[Date], candidate Date) bool {
		slog.Debug("date candidate", "rule", r.name, "date", candidate)
		if !ok || (s == Latest && candidate.After(found)) {
			found, ok = candidate, true
		}
		return s == Latest
	})
	return found, ok
}

// ExtractDate returns the first valid receipt date in text.
func ExtractDate(text string) (Date, bool) {
	return FirstMatch.Extract(text)
}
