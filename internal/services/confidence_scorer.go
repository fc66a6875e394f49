package services

import "parcelvoice/internal/models"

// Parameter names produced by the extractor.
const (
	ParamDestination  = "destination"
	ParamPropertyID   = "propertyId"
	ParamCriteria     = "criteria"
	ParamWorkflowType = "workflowType"
	ParamDescription  = "description"
	ParamCodeType     = "codeType"
)

// RequiredParameter returns the parameter a command type cannot be dispatched
// without. Only navigation and property assessment have a hard requirement.
func RequiredParameter(ct models.CommandType) (string, bool) {
	switch ct {
	case models.CommandTypeNavigation:
		return ParamDestination, true
	case models.CommandTypeAssessment:
		return ParamPropertyID, true
	default:
		return "", false
	}
}

// ConfidenceScorer rates how reliable a classification is, in [0,1].
//
// The score combines three signals: whether any rule matched at all (no match
// pins the score near zero), how much of the command text the winning pattern
// consumed (trailing unstructured text lowers it), and whether the command
// type's required parameter was extractable. The weights are calibrated so a
// matched command with a missing required parameter still clears the default
// 0.3 gate and reaches the missing-parameter recovery path instead of being
// reported as unrecognized.
type ConfidenceScorer struct{}

// NewConfidenceScorer creates a new scorer.
func NewConfidenceScorer() *ConfidenceScorer {
	return &ConfidenceScorer{}
}

const (
	unmatchedScore = 0.10
	matchBase      = 0.35
	coverageWeight = 0.45
	paramBonus     = 0.15
	paramPenalty   = 0.10
)

// Score rates one classified command. params is the extractor output for the
// same classification.
func (s *ConfidenceScorer) Score(cls Classification, params map[string]string) float64 {
	if !cls.Matched {
		return unmatchedScore
	}

	score := matchBase + coverageWeight*cls.Coverage

	if required, ok := RequiredParameter(cls.CommandType); ok {
		if params[required] != "" {
			score += paramBonus
		} else {
			score -= paramPenalty
		}
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
