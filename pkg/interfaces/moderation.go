package interfaces

// Severity tiers returned by the keyword/pattern filter.
const (
	SeverityNone     = "none"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Classifier actions returned by the toxicity engine.
const (
	ClassifierPass  = "pass"
	ClassifierBlock = "block"
)

// FilterVerdict is the keyword filter's result for one text.
type FilterVerdict struct {
	Severity string
}

// ClassifierVerdict is the toxicity classifier's result for one text.
type ClassifierVerdict struct {
	Action string
}

// TextFilter is the fast keyword/pattern stage of the moderation pipeline.
// Consumed as a black box; the gateway only acts on the severity tier.
type TextFilter interface {
	Check(text string) FilterVerdict
}

// ToxicityClassifier is the second moderation stage.
// FUNCTIONAL DISCOVERY: Interface boundary lets a remote classification
// service replace the built-in heuristic without touching the gate.
type ToxicityClassifier interface {
	Classify(text string) ClassifierVerdict
}
