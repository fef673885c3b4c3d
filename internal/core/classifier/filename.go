package classifier

import (
	"math"
	"strings"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// FuzzyThreshold is the minimum partial-ratio score (0-100) a keyword needs
// before a fuzzy filename match is reported.
const FuzzyThreshold = 80.0

// ClassifyFilename labels a file from its name alone. Exact patterns are tried
// for every rule before any fuzzy keyword; within each phase the first rule in
// declaration order that matches wins. It returns nil when nothing matches.
func ClassifyFilename(filename string, rules domain.RuleSet) *domain.Success {
	name := strings.ToLower(filename)

	for _, rule := range rules {
		for _, pattern := range rule.FilenamePatterns {
			if loc := pattern.FindStringIndex(name); loc != nil {
				return &domain.Success{
					Label:          rule.Label,
					Step:           domain.StepFilenameRegex,
					BasedOn:        domain.BasedOnFilename,
					MatchType:      domain.MatchTypeRegex,
					AdditionalInfo: map[string]any{"matching_text": name[loc[0]:loc[1]]},
					Confidence:     1.0,
				}
			}
		}
	}

	for _, rule := range rules {
		if len(rule.FuzzyKeywords) == 0 {
			continue
		}
		keyword, score := bestKeyword(name, rule.FuzzyKeywords)
		if score < FuzzyThreshold {
			continue
		}
		return &domain.Success{
			Label:          rule.Label,
			Step:           domain.StepFilenameFuzzy,
			BasedOn:        domain.BasedOnFilename,
			MatchType:      domain.MatchTypeFuzzy,
			AdditionalInfo: map[string]any{"best_matching_text": keyword},
			Confidence:     roundTo(score/100, 2),
		}
	}
	return nil
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
