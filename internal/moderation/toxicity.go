package moderation

import (
	"strings"

	"livegate/pkg/interfaces"
)

// HeuristicClassifier is the built-in toxicity stage: a weighted term list
// with a block threshold. The real classification engine is an external
// collaborator; this implementation keeps the gate functional without it and
// is replaced by wiring a different interfaces.ToxicityClassifier.
type HeuristicClassifier struct {
	weights   map[string]int
	threshold int
}

// NewHeuristicClassifier creates a classifier with the built-in term weights.
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{
		weights: map[string]int{
			"hate":      2,
			"stupid":    1,
			"idiot":     2,
			"trash":     1,
			"loser":     2,
			"pathetic":  2,
			"disgusting": 2,
		},
		threshold: 4,
	}
}

// Classify scores the text and returns block when the score crosses the
// threshold, pass otherwise.
// TECHNICAL DISCOVERY: Scoring on whitespace-split tokens keeps the heuristic
// cheap enough to run inline on every comment.
func (c *HeuristicClassifier) Classify(text string) interfaces.ClassifierVerdict {
	score := 0
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,!?;:\"'")
		score += c.weights[token]
	}

	if score >= c.threshold {
		return interfaces.ClassifierVerdict{Action: interfaces.ClassifierBlock}
	}
	return interfaces.ClassifierVerdict{Action: interfaces.ClassifierPass}
}
