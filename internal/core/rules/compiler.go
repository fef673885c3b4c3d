package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

const (
	fieldLabel           = "label"
	fieldFilenameRegex   = "filename_regex"
	fieldFuzzyKeywords   = "fuzzy_keywords"
	fieldContentRegex    = "content_regex"
	contentKeyRequired   = "required"
	contentKeySupporting = "supporting"
	contentKeyNegative   = "negative"
)

var contentKeys = []string{contentKeyRequired, contentKeySupporting, contentKeyNegative}

// RawRule is one rule record as decoded from configuration, before validation.
type RawRule map[string]any

// Compile validates every raw rule and compiles it. The first invalid rule
// aborts compilation; no partial RuleSet is ever returned.
func Compile(raw []RawRule) (domain.RuleSet, error) {
	set := make(domain.RuleSet, 0, len(raw))
	for i, r := range raw {
		rule, err := compileRule(i, r)
		if err != nil {
			return nil, err
		}
		set = append(set, rule)
	}
	return set, nil
}

func compileRule(index int, raw RawRule) (domain.Rule, error) {
	label, err := validateRule(index, raw)
	if err != nil {
		return domain.Rule{}, err
	}

	filenamePatterns, err := compilePatterns(label, fieldFilenameRegex, stringList(raw[fieldFilenameRegex]))
	if err != nil {
		return domain.Rule{}, err
	}

	keywords := lo.Uniq(lo.Map(stringList(raw[fieldFuzzyKeywords]), func(keyword string, _ int) string {
		return strings.ToLower(keyword)
	}))

	content, err := compileContent(label, raw[fieldContentRegex])
	if err != nil {
		return domain.Rule{}, err
	}

	return domain.Rule{
		Label:            label,
		FilenamePatterns: filenamePatterns,
		FuzzyKeywords:    keywords,
		Content:          content,
	}, nil
}

// validateRule checks the shape of a raw rule and returns its trimmed label.
func validateRule(index int, raw RawRule) (string, error) {
	labelValue, _ := raw[fieldLabel].(string)
	label := strings.TrimSpace(labelValue)
	if label == "" {
		return "", &domain.ConfigError{
			Field: fmt.Sprintf("rules[%d].%s", index, fieldLabel),
			Msg:   "missing a valid label (must be non-empty string)",
		}
	}

	for _, key := range sortedKeys(raw) {
		value := raw[key]
		if key == fieldLabel || value == nil {
			continue
		}
		if key == fieldContentRegex {
			if err := validateContentRegex(label, value); err != nil {
				return "", err
			}
			continue
		}
		if err := validateStringList(label, key, value); err != nil {
			return "", err
		}
	}
	return label, nil
}

func validateContentRegex(label string, value any) error {
	groups, ok := value.(map[string]any)
	if !ok {
		return &domain.ConfigError{Label: label, Field: fieldContentRegex, Msg: "must be a mapping"}
	}
	for _, key := range sortedKeys(groups) {
		sub := groups[key]
		if !lo.Contains(contentKeys, key) {
			return &domain.ConfigError{
				Label: label,
				Field: fieldContentRegex,
				Msg:   fmt.Sprintf("contains invalid field %q", key),
			}
		}
		if sub == nil {
			continue
		}
		if err := validateStringList(label, fieldContentRegex+"."+key, sub); err != nil {
			return err
		}
	}
	return nil
}

func validateStringList(label, field string, value any) error {
	items, ok := value.([]any)
	if !ok {
		return &domain.ConfigError{Label: label, Field: field, Msg: "must be a list"}
	}
	for _, item := range items {
		if _, ok := item.(string); !ok {
			return &domain.ConfigError{Label: label, Field: field, Msg: "must be a list of strings"}
		}
	}
	return nil
}

func compileContent(label string, value any) (domain.ContentPatterns, error) {
	groups, _ := value.(map[string]any)

	var (
		out domain.ContentPatterns
		err error
	)
	if out.Required, err = compilePatterns(label, fieldContentRegex+"."+contentKeyRequired, stringList(groups[contentKeyRequired])); err != nil {
		return domain.ContentPatterns{}, err
	}
	if out.Supporting, err = compilePatterns(label, fieldContentRegex+"."+contentKeySupporting, stringList(groups[contentKeySupporting])); err != nil {
		return domain.ContentPatterns{}, err
	}
	if out.Negative, err = compilePatterns(label, fieldContentRegex+"."+contentKeyNegative, stringList(groups[contentKeyNegative])); err != nil {
		return domain.ContentPatterns{}, err
	}
	return out, nil
}

func compilePatterns(label, field string, patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, &domain.ConfigError{
				Label: label,
				Field: field,
				Msg:   fmt.Sprintf("invalid pattern %q: %v", pattern, err),
			}
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// stringList converts an already validated list value; nil yields an empty list.
func stringList(value any) []string {
	items, _ := value.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
