package services

import "parcelvoice/internal/models"

// ParamExtractor derives structured parameters from the capture groups of a
// classification. A group that did not match yields an absent key, never an
// error; the orchestrator decides whether absence matters.
type ParamExtractor struct{}

// NewParamExtractor creates a new extractor.
func NewParamExtractor() *ParamExtractor {
	return &ParamExtractor{}
}

// Extract pulls the per-command-type fields out of a classification.
func (e *ParamExtractor) Extract(cls Classification) map[string]string {
	params := make(map[string]string)
	if !cls.Matched {
		return params
	}

	group := func(i int) string {
		if i < len(cls.Submatches) {
			return cls.Submatches[i]
		}
		return ""
	}

	switch cls.CommandType {
	case models.CommandTypeNavigation:
		if dest := group(0); dest != "" {
			params[ParamDestination] = dest
		}
	case models.CommandTypeAssessment:
		if id := group(0); id != "" {
			params[ParamPropertyID] = id
		}
	case models.CommandTypeDataQuery:
		// criteria is always present for a matched query; empty means
		// no filter ("show all properties" is a valid unfiltered query).
		params[ParamCriteria] = group(0)
	case models.CommandTypeWorkflow:
		if wf := group(0); wf != "" {
			params[ParamWorkflowType] = wf
		}
	case models.CommandTypeCoding:
		if cls.Intent == IntentCodingGenerate {
			if ct := group(0); ct != "" {
				params[ParamCodeType] = ct
			}
			if desc := group(1); desc != "" {
				params[ParamDescription] = desc
			}
		} else {
			if desc := group(0); desc != "" {
				params[ParamDescription] = desc
			}
		}
	}

	return params
}
