package services

import (
	"strings"
	"unicode"
)

const (
	defaultSnippetLength = 200
	ellipsis             = "..."
)

// GenerateSnippet returns an excerpt of content around the earliest
// case-insensitive occurrence of any term, keeping maxLength/2 characters
// of context on each side. Without a hit it returns the leading maxLength
// characters. Lengths count runes.
func GenerateSnippet(content string, terms []string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = defaultSnippetLength
	}

	text := []rune(content)
	if len(terms) == 0 || len(text) == 0 {
		return leadingSnippet(text, maxLength)
	}

	earliest := len(text)
	var found []rune
	for _, term := range terms {
		needle := []rune(term)
		if len(needle) == 0 {
			continue
		}
		if pos := indexFold(text, needle); pos != -1 && pos < earliest {
			earliest = pos
			found = needle
		}
	}
	if found == nil {
		return leadingSnippet(text, maxLength)
	}

	context := maxLength / 2
	start := max(0, earliest-context)
	end := min(len(text), earliest+len(found)+context)

	snippet := string(text[start:end])
	if start > 0 {
		snippet = ellipsis + snippet
	}
	if end < len(text) {
		snippet += ellipsis
	}
	return strings.TrimSpace(snippet)
}

func leadingSnippet(text []rune, maxLength int) string {
	if len(text) <= maxLength {
		return string(text)
	}
	return string(text[:maxLength]) + ellipsis
}

// indexFold is a rune-index, case-insensitive strings.Index
func indexFold(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != unicode.ToLower(r) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// containsFold reports whether needle occurs in haystack ignoring case
func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return indexFold([]rune(haystack), []rune(needle)) != -1
}
