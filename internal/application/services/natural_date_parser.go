package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/notes2gogo/backend/pkg/clock"
)

// DateOperator is the comparator in front of a date expression
type DateOperator string

const (
	DateOpEqual         DateOperator = "="
	DateOpAfter         DateOperator = ">"
	DateOpAfterOrEqual  DateOperator = ">="
	DateOpBefore        DateOperator = "<"
	DateOpBeforeOrEqual DateOperator = "<="
)

// IsLowerBound reports whether the operator constrains the start of a range
func (o DateOperator) IsLowerBound() bool {
	return o == DateOpAfter || o == DateOpAfterOrEqual
}

// IsUpperBound reports whether the operator constrains the end of a range
func (o DateOperator) IsUpperBound() bool {
	return o == DateOpBefore || o == DateOpBeforeOrEqual
}

const isoDateLayout = "2006-01-02"

var (
	lastPeriodPattern = regexp.MustCompile(`^last-(week|month|year)$`)
	thisPeriodPattern = regexp.MustCompile(`^this-(week|month|year)$`)
	operatorPattern   = regexp.MustCompile(`^([><]=?)?(.+)$`)

	// The hyphenated form lets "3-days-ago" survive the query tokenizer.
	agoPattern = regexp.MustCompile(`^(\d+)[\s-]+(day|week|month|year)s?[\s-]+ago$`)
)

// NaturalDateParser resolves relative date expressions against a clock.
// Months are 30 days and years 365 days.
type NaturalDateParser struct {
	clock clock.Clock
}

// NewNaturalDateParser creates a parser reading "now" from c
func NewNaturalDateParser(c clock.Clock) *NaturalDateParser {
	if c == nil {
		c = clock.System{}
	}
	return &NaturalDateParser{clock: c}
}

// Parse resolves expression to an instant. ok is false when the expression
// is not a recognized natural date; that is not an error.
func (p *NaturalDateParser) Parse(expression string) (time.Time, bool) {
	expr := strings.ToLower(strings.TrimSpace(expression))
	if expr == "" {
		return time.Time{}, false
	}

	today := p.today()

	switch expr {
	case "today":
		return today, true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	}

	if m := lastPeriodPattern.FindStringSubmatch(expr); m != nil {
		return today.AddDate(0, 0, -periodDays(m[1], 1)), true
	}

	if m := thisPeriodPattern.FindStringSubmatch(expr); m != nil {
		switch m[1] {
		case "week":
			// time.Weekday is Sunday=0; weeks start on Monday.
			sinceMonday := (int(today.Weekday()) + 6) % 7
			return today.AddDate(0, 0, -sinceMonday), true
		case "month":
			return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), true
		case "year":
			return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location()), true
		}
	}

	if m := agoPattern.FindStringSubmatch(expr); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		return today.AddDate(0, 0, -periodDays(m[2], n)), true
	}

	return time.Time{}, false
}

// ParseWithOperator splits a leading comparator from expression and resolves
// the rest, trying natural language first and then YYYY-MM-DD.
func (p *NaturalDateParser) ParseWithOperator(expression string) (DateOperator, time.Time, bool) {
	m := operatorPattern.FindStringSubmatch(strings.TrimSpace(expression))
	if m == nil {
		return "", time.Time{}, false
	}

	op := DateOperator(m[1])
	if op == "" {
		op = DateOpEqual
	}
	datePart := strings.TrimSpace(m[2])

	if t, ok := p.Parse(datePart); ok {
		return op, t, true
	}
	if t, ok := p.ParseISODate(datePart); ok {
		return op, t, true
	}
	return "", time.Time{}, false
}

// ParseISODate parses a strict YYYY-MM-DD date at local midnight
func (p *NaturalDateParser) ParseISODate(value string) (time.Time, bool) {
	t, err := time.ParseInLocation(isoDateLayout, value, p.clock.Now().Location())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (p *NaturalDateParser) today() time.Time {
	now := p.clock.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func periodDays(unit string, n int) int {
	switch unit {
	case "week":
		return 7 * n
	case "month":
		return 30 * n
	case "year":
		return 365 * n
	}
	return n
}
