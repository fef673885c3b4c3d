package domain

import (
	"regexp"
	"slices"
	"strings"
)

// Rule is the detection profile of one label. Every matching stage reads only
// the fields it needs; absent pattern groups are empty slices.
type Rule struct {
	Label            string
	FilenamePatterns []*regexp.Regexp
	FuzzyKeywords    []string
	Content          ContentPatterns
}

type ContentPatterns struct {
	Required   []*regexp.Regexp
	Supporting []*regexp.Regexp
	Negative   []*regexp.Regexp
}

// RuleSet is ordered by declaration; the order is the first-match priority of
// every stage. It is never mutated after compilation.
type RuleSet []Rule

func (rs RuleSet) Labels() []string {
	labels := make([]string, 0, len(rs))
	for _, rule := range rs {
		labels = append(labels, rule.Label)
	}
	return labels
}

// UnknownContentType is what detectors report when the bytes match no known
// signature.
const UnknownContentType = "application/octet-stream"

// FiletypeMap maps a lowercase extension with its leading dot to the content
// types accepted for it.
type FiletypeMap map[string][]string

func (m FiletypeMap) Supports(ext string) bool {
	_, ok := m[strings.ToLower(ext)]
	return ok
}

func (m FiletypeMap) Allows(ext, contentType string) bool {
	return slices.Contains(m[strings.ToLower(ext)], contentType)
}

func (m FiletypeMap) Extensions() []string {
	exts := make([]string, 0, len(m))
	for ext := range m {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
