package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/notes2gogo/backend/internal/domain/entities"
)

const defaultNearDistance = 10

const wordClass = `[\p{L}\p{N}_]+`

var (
	intitlePattern    = regexp.MustCompile(`(?i)intitle:(` + wordClass + `|"[^"]+")`)
	tagPattern        = regexp.MustCompile(`(?i)(?:^|\s)(tag:(` + wordClass + `))`)
	excludeTagPattern = regexp.MustCompile(`(?i)(?:^|\s)(-tag:(` + wordClass + `))`)
	createdPattern    = regexp.MustCompile(`(?i)created:([<>]=?)?([a-zA-Z0-9\-]+)`)
	updatedPattern    = regexp.MustCompile(`(?i)updated:([<>]=?)?([a-zA-Z0-9\-]+)`)
	hasPattern        = regexp.MustCompile(`(?i)has:(` + wordClass + `)`)
	todoPattern       = regexp.MustCompile(`(?i)todo:(complete|incomplete)`)
	quotedPattern     = regexp.MustCompile(`"([^"]+)"`)
	nearPattern       = regexp.MustCompile(`(?i)(` + wordClass + `)\s+NEAR(?:/(\d+))?\s+(` + wordClass + `)`)
	logicalPattern    = regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}_])(AND|OR|NOT)($|[^\p{L}\p{N}_])`)
)

// parseStage consumes one operator family from leftover and records what it
// found in out. It returns the leftover for the next stage.
type parseStage struct {
	name string
	run  func(leftover string, out *entities.ParsedQuery) string
}

// StageTrace is the leftover text after a named stage ran
type StageTrace struct {
	Stage    string `yaml:"stage"`
	Leftover string `yaml:"leftover"`
}

// SearchQueryParser turns a raw query string into a ParsedQuery. It never
// fails: operators it cannot interpret are dropped.
type SearchQueryParser struct {
	dates  *NaturalDateParser
	stages []parseStage
}

// NewSearchQueryParser creates a parser that resolves date literals with dates
func NewSearchQueryParser(dates *NaturalDateParser) *SearchQueryParser {
	p := &SearchQueryParser{dates: dates}
	p.stages = []parseStage{
		{name: "intitle", run: extractTitleTerms},
		{name: "tag", run: extractTags},
		{name: "exclude-tag", run: extractExcludeTags},
		{name: "created", run: p.dateStage(createdPattern, func(q *entities.ParsedQuery) *entities.DateFilters { return &q.Created })},
		{name: "updated", run: p.dateStage(updatedPattern, func(q *entities.ParsedQuery) *entities.DateFilters { return &q.Updated })},
		{name: "has", run: extractHasFilters},
		{name: "todo", run: extractTodoStatus},
		{name: "quoted", run: extractQuotedPhrases},
		{name: "near", run: extractNearQueries},
		{name: "logical", run: stripLogicalOperators},
	}
	return p
}

// Parse runs every stage in order and splits the final leftover into content terms
func (p *SearchQueryParser) Parse(raw string) *entities.ParsedQuery {
	parsed, _ := p.run(raw, false)
	return parsed
}

// Trace is Parse with the leftover after each stage
func (p *SearchQueryParser) Trace(raw string) (*entities.ParsedQuery, []StageTrace) {
	return p.run(raw, true)
}

func (p *SearchQueryParser) run(raw string, trace bool) (*entities.ParsedQuery, []StageTrace) {
	out := &entities.ParsedQuery{}
	var traces []StageTrace

	leftover := raw
	for _, stage := range p.stages {
		leftover = stage.run(leftover, out)
		if trace {
			traces = append(traces, StageTrace{Stage: stage.name, Leftover: leftover})
		}
	}

	out.ContentTerms = strings.Fields(leftover)
	return out, traces
}

// consume calls fn for every match of re in a snapshot of leftover and
// blanks the first occurrence of each match's text, one match at a time.
func consume(leftover string, re *regexp.Regexp, fn func(groups []string)) string {
	current := leftover
	for _, groups := range re.FindAllStringSubmatch(leftover, -1) {
		fn(groups)
		current = strings.Replace(current, groups[0], " ", 1)
	}
	return current
}

func extractTitleTerms(leftover string, out *entities.ParsedQuery) string {
	return consume(leftover, intitlePattern, func(g []string) {
		if term := strings.Trim(g[1], `"`); term != "" {
			out.TitleTerms = append(out.TitleTerms, term)
		}
	})
}

func extractTags(leftover string, out *entities.ParsedQuery) string {
	return consume(leftover, tagPattern, func(g []string) {
		out.Tags = appendDistinct(out.Tags, strings.ToLower(g[2]))
	})
}

func extractExcludeTags(leftover string, out *entities.ParsedQuery) string {
	return consume(leftover, excludeTagPattern, func(g []string) {
		out.ExcludeTags = appendDistinct(out.ExcludeTags, strings.ToLower(g[2]))
	})
}

func (p *SearchQueryParser) dateStage(re *regexp.Regexp, target func(*entities.ParsedQuery) *entities.DateFilters) func(string, *entities.ParsedQuery) string {
	return func(leftover string, out *entities.ParsedQuery) string {
		return consume(leftover, re, func(g []string) {
			at, ok := p.resolveDate(g[2])
			if !ok {
				return
			}
			filters := target(out)
			switch op := DateOperator(g[1]); {
			case op.IsLowerBound():
				filters.After = &at
			case op.IsUpperBound():
				filters.Before = &at
			default:
				filters.Exact = &at
			}
		})
	}
}

// resolveDate tries YYYY-MM-DD before natural language
func (p *SearchQueryParser) resolveDate(value string) (time.Time, bool) {
	if t, ok := p.dates.ParseISODate(value); ok {
		return t, true
	}
	return p.dates.Parse(value)
}

func extractHasFilters(leftover string, out *entities.ParsedQuery) string {
	return consume(leftover, hasPattern, func(g []string) {
		out.HasFilters = appendDistinct(out.HasFilters, strings.ToLower(g[1]))
	})
}

func extractTodoStatus(leftover string, out *entities.ParsedQuery) string {
	g := todoPattern.FindStringSubmatch(leftover)
	if g == nil {
		return leftover
	}
	out.TodoStatus = entities.TodoStatus(strings.ToLower(g[1]))
	return strings.Replace(leftover, g[0], " ", 1)
}

func extractQuotedPhrases(leftover string, out *entities.ParsedQuery) string {
	return consume(leftover, quotedPattern, func(g []string) {
		out.QuotedPhrases = append(out.QuotedPhrases, g[1])
	})
}

func extractNearQueries(leftover string, out *entities.ParsedQuery) string {
	return consume(leftover, nearPattern, func(g []string) {
		distance := defaultNearDistance
		if g[2] != "" {
			d, err := strconv.Atoi(g[2])
			if err != nil {
				return
			}
			distance = d
		}
		out.NearQueries = append(out.NearQueries, entities.NearQuery{Left: g[1], Distance: distance, Right: g[3]})
	})
}

// stripLogicalOperators keeps the separators around each operator. Adjacent
// operators share a separator, so it repeats until nothing matches.
func stripLogicalOperators(leftover string, _ *entities.ParsedQuery) string {
	for logicalPattern.MatchString(leftover) {
		leftover = logicalPattern.ReplaceAllString(leftover, "${1} ${3}")
	}
	return leftover
}

func appendDistinct(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
