package services

import (
	"regexp"
	"strings"

	"parcelvoice/internal/models"
)

// Classification is the outcome of running one command text through the
// ordered rule list.
type Classification struct {
	CommandType models.CommandType
	Intent      string
	Matched     bool
	Submatches  []string // capture groups of the winning rule; "" for groups that did not participate
	Coverage    float64  // fraction of the text consumed by the winning match
}

// Intent labels assigned by the classifier.
const (
	IntentNavigationGoto        = "navigation.goto"
	IntentAssessmentValue       = "assessment.value"
	IntentAssessmentComparables = "assessment.comparables"
	IntentQueryProperties       = "query.properties"
	IntentSystemHelp            = "system.help"
	IntentSystemCreateShortcut  = "system.create_shortcut"
	IntentWorkflowStart         = "workflow.start"
	IntentCodingGenerate        = "coding.generate"
	IntentCodingExplain         = "coding.explain"
	IntentCodingFix             = "coding.fix"
	IntentCodingOptimize        = "coding.optimize"
)

type classificationRule struct {
	pattern     *regexp.Regexp
	commandType models.CommandType
	intent      string
}

// IntentClassifier maps expanded command text to a command type and intent
// via an explicit, priority-ordered decision list. The first rule whose
// pattern matches wins; when nothing matches the command falls back to the
// system category with no intent, which is never treated as a confident hit.
type IntentClassifier struct {
	rules []classificationRule
}

// NewIntentClassifier builds the classifier with its canonical rule order:
// navigation, property assessment (comparables before value), data query,
// system (help, shortcut creation), workflow, coding assistance.
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{
		rules: []classificationRule{
			{
				pattern:     regexp.MustCompile(`(?i)^(?:go to|navigate to|take me to|open|show me the)\b\s*(.*?)[.!?]?\s*$`),
				commandType: models.CommandTypeNavigation,
				intent:      IntentNavigationGoto,
			},
			{
				// comparables before value so "comps" phrasing is not shadowed
				pattern:     regexp.MustCompile(`(?i)\b(?:comparables|comparable sales|comps)\b(?:\s+(?:for|of))?(?:\s+(?:property|parcel|home|house))?\s*#?\s*([\w-]*\d[\w-]*)?`),
				commandType: models.CommandTypeAssessment,
				intent:      IntentAssessmentComparables,
			},
			{
				pattern:     regexp.MustCompile(`(?i)\b(?:assess|appraise|appraisal|valuation|value)\b(?:\s+(?:of|for))?(?:\s+(?:property|parcel|home|house|this))?\s*#?\s*([\w-]*\d[\w-]*)?`),
				commandType: models.CommandTypeAssessment,
				intent:      IntentAssessmentValue,
			},
			{
				pattern:     regexp.MustCompile(`(?i)^(?:show|list|find|search|get|display)\b(?:\s+me)?(?:\s+all)?(?:\s+the)?\s+(?:properties|parcels|listings)\b\s*(.*?)[.!?]?\s*$`),
				commandType: models.CommandTypeDataQuery,
				intent:      IntentQueryProperties,
			},
			{
				pattern:     regexp.MustCompile(`(?i)^(?:help|what can (?:i|you)\s+(?:do|say)|show (?:me\s+)?(?:available\s+|the\s+)?commands|list commands)\b(?:\s+(?:with|about|on|for))?\s*(.*?)[.!?]?\s*$`),
				commandType: models.CommandTypeSystem,
				intent:      IntentSystemHelp,
			},
			{
				pattern:     regexp.MustCompile(`(?i)^(?:create|add|make|define)\s+(?:a\s+|new\s+)?shortcut\b.*$`),
				commandType: models.CommandTypeSystem,
				intent:      IntentSystemCreateShortcut,
			},
			{
				pattern:     regexp.MustCompile(`(?i)^(?:start|run|begin|launch|execute)\s+(?:the\s+)?([\w-]+)\s+workflow\b.*$`),
				commandType: models.CommandTypeWorkflow,
				intent:      IntentWorkflowStart,
			},
			{
				pattern:     regexp.MustCompile(`(?i)^(?:generate|write|create|build)\s+(?:a\s+|some\s+|me\s+)?(function|class|component|method|script|test|module|code)\b\s*(?:(?:for|to|that)\s+)?(.*?)[.!?]?\s*$`),
				commandType: models.CommandTypeCoding,
				intent:      IntentCodingGenerate,
			},
			{
				pattern:     regexp.MustCompile(`(?i)^(?:explain|describe|what does)\b\s*(.*?)(?:\s+(?:do|does|mean))?[.!?]?\s*$`),
				commandType: models.CommandTypeCoding,
				intent:      IntentCodingExplain,
			},
			{
				pattern:     regexp.MustCompile(`(?i)^(?:fix|debug|resolve|solve)\b\s*(.*?)[.!?]?\s*$`),
				commandType: models.CommandTypeCoding,
				intent:      IntentCodingFix,
			},
			{
				pattern:     regexp.MustCompile(`(?i)^(?:optimize|improve|refactor|speed up)\b\s*(.*?)[.!?]?\s*$`),
				commandType: models.CommandTypeCoding,
				intent:      IntentCodingOptimize,
			},
		},
	}
}

// Classify runs the text through the rule list top to bottom.
func (c *IntentClassifier) Classify(text string) Classification {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Classification{CommandType: models.CommandTypeSystem}
	}

	for _, rule := range c.rules {
		idx := rule.pattern.FindStringSubmatchIndex(trimmed)
		if idx == nil {
			continue
		}

		groups := rule.pattern.NumSubexp()
		submatches := make([]string, groups)
		for g := 1; g <= groups; g++ {
			lo, hi := idx[2*g], idx[2*g+1]
			if lo >= 0 && hi >= 0 {
				submatches[g-1] = strings.TrimSpace(trimmed[lo:hi])
			}
		}

		coverage := float64(idx[1]-idx[0]) / float64(len(trimmed))
		if coverage > 1 {
			coverage = 1
		}

		return Classification{
			CommandType: rule.commandType,
			Intent:      rule.intent,
			Matched:     true,
			Submatches:  submatches,
			Coverage:    coverage,
		}
	}

	// Unmatched commands default to the system category with no intent.
	return Classification{CommandType: models.CommandTypeSystem}
}

// RuleInfo describes one classification rule for inspection and testing.
type RuleInfo struct {
	Pattern     string             `json:"pattern"`
	CommandType models.CommandType `json:"command_type"`
	Intent      string             `json:"intent"`
}

// Rules exposes the decision list in evaluation order.
func (c *IntentClassifier) Rules() []RuleInfo {
	infos := make([]RuleInfo, 0, len(c.rules))
	for _, r := range c.rules {
		infos = append(infos, RuleInfo{
			Pattern:     r.pattern.String(),
			CommandType: r.commandType,
			Intent:      r.intent,
		})
	}
	return infos
}
