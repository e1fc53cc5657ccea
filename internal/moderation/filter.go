package moderation

import (
	"regexp"
	"strings"

	"livegate/pkg/interfaces"
)

// pattern pairs a compiled expression with the severity tier it triggers.
type pattern struct {
	re       *regexp.Regexp
	severity string
}

// KeywordFilter is the fast first stage of the moderation pipeline: a small
// pattern list mapped to severity tiers, checked before the classifier runs.
// FUNCTIONAL DISCOVERY: Patterns match on a lowercased copy so obfuscation by
// casing does not bypass the filter.
type KeywordFilter struct {
	patterns []pattern
}

// NewKeywordFilter creates a filter with the built-in pattern set.
// A production deployment replaces this list from its policy source; the
// gateway only acts on the returned severity tier.
func NewKeywordFilter() *KeywordFilter {
	return &KeywordFilter{
		patterns: []pattern{
			// Critical: direct threats and doxxing attempts
			{regexp.MustCompile(`\bkill\s+your(self)?\b`), interfaces.SeverityCritical},
			{regexp.MustCompile(`\bi\s+will\s+find\s+you\b`), interfaces.SeverityCritical},
			{regexp.MustCompile(`\b\d{1,5}\s+\w+\s+(street|avenue|drive|road)\b`), interfaces.SeverityCritical},
			// High: slurs and harassment stand-ins
			{regexp.MustCompile(`\byou\s+(all\s+)?deserve\s+to\s+die\b`), interfaces.SeverityHigh},
			{regexp.MustCompile(`\bworthless\s+(idiot|trash|garbage)\b`), interfaces.SeverityHigh},
			// Medium: spam markers, allowed through but tiered for audit
			{regexp.MustCompile(`\bfree\s+followers\b`), interfaces.SeverityMedium},
			{regexp.MustCompile(`(https?://\S+){3,}`), interfaces.SeverityMedium},
			// Low: mild profanity
			{regexp.MustCompile(`\bdamn\b`), interfaces.SeverityLow},
		},
	}
}

// Check returns the highest severity tier any pattern matches.
func (f *KeywordFilter) Check(text string) interfaces.FilterVerdict {
	lowered := strings.ToLower(text)

	highest := interfaces.SeverityNone
	for _, p := range f.patterns {
		if !p.re.MatchString(lowered) {
			continue
		}
		if severityRank(p.severity) > severityRank(highest) {
			highest = p.severity
		}
	}
	return interfaces.FilterVerdict{Severity: highest}
}

func severityRank(severity string) int {
	switch severity {
	case interfaces.SeverityCritical:
		return 4
	case interfaces.SeverityHigh:
		return 3
	case interfaces.SeverityMedium:
		return 2
	case interfaces.SeverityLow:
		return 1
	default:
		return 0
	}
}

// BlocksBroadcast reports whether a severity tier bars the comment.
// Only critical and high block; lower tiers pass through.
func BlocksBroadcast(severity string) bool {
	return severity == interfaces.SeverityCritical || severity == interfaces.SeverityHigh
}
