package moderation

import (
	"log"
	"regexp"
	"strings"

	"livegate/pkg/interfaces"
	"livegate/pkg/types"
)

// Gate runs the two-stage moderation pipeline for text-bearing events and
// sanitizes accepted text for broadcast.
// ARCHITECTURAL DISCOVERY: Sanitization happens after both checks so the
// filter and classifier see the literal text, including any markup-based
// obfuscation a client attempts.
type Gate struct {
	filter     interfaces.TextFilter
	classifier interfaces.ToxicityClassifier
}

// NewGate creates a moderation gate over the given collaborators.
func NewGate(filter interfaces.TextFilter, classifier interfaces.ToxicityClassifier) *Gate {
	return &Gate{
		filter:     filter,
		classifier: classifier,
	}
}

// Review applies both moderation stages to raw comment text and, when both
// pass, returns the sanitized text ready for broadcast.
// FUNCTIONAL DISCOVERY: Rejections log the tier for audit but the returned
// error carries only the generic guideline message - the matched term is
// never echoed to the client.
func (g *Gate) Review(text string) (string, error) {
	verdict := g.filter.Check(text)
	if BlocksBroadcast(verdict.Severity) {
		log.Printf("Comment blocked by keyword filter: severity=%s", verdict.Severity)
		return "", types.ErrModerationRejected
	}

	classification := g.classifier.Classify(text)
	if classification.Action == interfaces.ClassifierBlock {
		log.Printf("Comment blocked by toxicity classifier")
		return "", types.ErrModerationRejected
	}

	return Sanitize(text), nil
}

// FUNCTIONAL DISCOVERY: Script and style bodies are dropped whole - stripping
// only the tags would leak executable text into the broadcast payload.
var (
	scriptBlockRegex = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?</\s*(script|style)\s*>`)
	markupTagRegex   = regexp.MustCompile(`<[^>]*>`)
)

// Sanitize strips HTML-like markup from text and trims surrounding space.
func Sanitize(text string) string {
	text = scriptBlockRegex.ReplaceAllString(text, "")
	text = markupTagRegex.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
