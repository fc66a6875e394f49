package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"parcelvoice/internal/dispatch"
	"parcelvoice/internal/models"
)

// ErrorRecoveryService converts every pipeline failure condition into a
// structured, user-facing CommandResult with recovery guidance. It consults
// the help repository so users are steered toward phrasing that works rather
// than shown a bare error string.
type ErrorRecoveryService struct {
	help *HelpService
}

// NewErrorRecoveryService creates a new error recovery handler.
func NewErrorRecoveryService(help *HelpService) *ErrorRecoveryService {
	return &ErrorRecoveryService{help: help}
}

// NotRecognized handles commands that no rule matched, that scored below the
// confidence threshold, or that resolved to no handler.
func (s *ErrorRecoveryService) NotRecognized(ctx context.Context, command string, cmdCtx models.CommandContext) *models.CommandResult {
	result := &models.CommandResult{
		Success:     false,
		Status:      models.ResultStatusNotRecognized,
		CommandType: models.CommandTypeSystem,
		Error:       fmt.Sprintf("Sorry, I didn't understand %q.", strings.TrimSpace(command)),
		Suggestions: []string{
			"Try a shorter, more direct phrase",
			"Say \"help\" to see what you can ask for",
			"Use a shortcut for commands you repeat often",
		},
	}

	help := s.contextualHelp(ctx, cmdCtx.ContextID)
	result.HelpContent = help
	result.AlternativeCommands = alternativesFrom(help, 3)
	return result
}

// MissingParameter handles a classified command whose required field could
// not be extracted.
func (s *ErrorRecoveryService) MissingParameter(ctx context.Context, cls Classification, param string, cmdCtx models.CommandContext) *models.CommandResult {
	result := &models.CommandResult{
		Success:     false,
		Status:      models.ResultStatusMissingParameter,
		CommandType: cls.CommandType,
		Intent:      cls.Intent,
		Error:       fmt.Sprintf("This command needs a %s.", paramDisplayName(param)),
		Suggestions: parameterGuidance(param),
	}

	if s.help != nil {
		entries, err := s.help.ListByCommandType(ctx, cls.CommandType)
		if err != nil {
			log.Printf("⚠️  [RECOVERY] Failed to load help for %s: %v", cls.CommandType, err)
		} else {
			result.HelpContent = capHelp(entries, 3)
			result.AlternativeCommands = alternativesFrom(result.HelpContent, 3)
		}
	}
	return result
}

// PermissionDenied handles a handler-reported permission failure.
func (s *ErrorRecoveryService) PermissionDenied(cls Classification, herr *dispatch.Error) *models.CommandResult {
	message := herr.Message
	if herr.Permission != "" {
		message = fmt.Sprintf("You need the %q permission to do that.", herr.Permission)
	}
	return &models.CommandResult{
		Success:     false,
		Status:      models.ResultStatusPermissionDenied,
		CommandType: cls.CommandType,
		Intent:      cls.Intent,
		Error:       message,
		Suggestions: []string{"Ask an administrator to grant you access"},
	}
}

// RateLimited handles a handler-reported rate limit. The pipeline never
// retries on the caller's behalf.
func (s *ErrorRecoveryService) RateLimited(cls Classification, herr *dispatch.Error) *models.CommandResult {
	return &models.CommandResult{
		Success:     false,
		Status:      models.ResultStatusRateLimited,
		CommandType: cls.CommandType,
		Intent:      cls.Intent,
		Error:       herr.Message,
		Suggestions: []string{"Wait a few seconds and try again"},
	}
}

// InvalidParameter handles a handler-reported bad parameter value.
func (s *ErrorRecoveryService) InvalidParameter(cls Classification, herr *dispatch.Error) *models.CommandResult {
	message := herr.Message
	if herr.Param != "" {
		message = fmt.Sprintf("%q is not a valid %s.", herr.Value, paramDisplayName(herr.Param))
	}
	suggestions := []string{"Check the value and try again"}
	if len(herr.ValidValues) > 0 {
		suggestions = []string{"Valid values: " + strings.Join(herr.ValidValues, ", ")}
	}
	return &models.CommandResult{
		Success:     false,
		Status:      models.ResultStatusInvalidParameter,
		CommandType: cls.CommandType,
		Intent:      cls.Intent,
		Error:       message,
		Suggestions: suggestions,
	}
}

// HandlerFailed handles a handler failure with no recognized error kind.
func (s *ErrorRecoveryService) HandlerFailed(cls Classification, message string) *models.CommandResult {
	if message == "" {
		message = "The command could not be completed."
	}
	return &models.CommandResult{
		Success:     false,
		Status:      models.ResultStatusError,
		CommandType: cls.CommandType,
		Intent:      cls.Intent,
		Error:       message,
		Suggestions: []string{"Try again, or say \"help\" for available commands"},
	}
}

// SystemError handles any uncaught panic in the pipeline. The caller never
// sees internals, only a generic message with recovery suggestions.
func (s *ErrorRecoveryService) SystemError(cls Classification) *models.CommandResult {
	return &models.CommandResult{
		Success:     false,
		Status:      models.ResultStatusError,
		CommandType: cls.CommandType,
		Intent:      cls.Intent,
		Error:       "Something went wrong while processing your command.",
		Suggestions: []string{
			"Try again in a moment",
			"Rephrase the command if the problem persists",
		},
	}
}

func (s *ErrorRecoveryService) contextualHelp(ctx context.Context, contextID string) []models.HelpContent {
	if s.help == nil {
		return nil
	}
	entries, err := s.help.Contextual(ctx, contextID)
	if err != nil {
		log.Printf("⚠️  [RECOVERY] Failed to load contextual help: %v", err)
		return nil
	}
	return capHelp(entries, 5)
}

func capHelp(entries []*models.HelpContent, limit int) []models.HelpContent {
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]models.HelpContent, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	return out
}

// alternativesFrom collects the first example phrase of each help entry.
func alternativesFrom(entries []models.HelpContent, limit int) []string {
	var alternatives []string
	for _, entry := range entries {
		if len(entry.ExamplePhrases) == 0 {
			continue
		}
		alternatives = append(alternatives, entry.ExamplePhrases[0])
		if len(alternatives) == limit {
			break
		}
	}
	return alternatives
}

func paramDisplayName(param string) string {
	switch param {
	case ParamDestination:
		return "destination"
	case ParamPropertyID:
		return "property id"
	case ParamWorkflowType:
		return "workflow name"
	default:
		return param
	}
}

func parameterGuidance(param string) []string {
	switch param {
	case ParamDestination:
		return []string{
			"Name the screen you want, e.g. \"go to dashboard\"",
			"Say \"help\" to list the places you can navigate to",
		}
	case ParamPropertyID:
		return []string{
			"Include the property number, e.g. \"assess property 12045\"",
			"Find property ids with \"show all properties\"",
		}
	default:
		return []string{fmt.Sprintf("Include a %s in the command", paramDisplayName(param))}
	}
}
