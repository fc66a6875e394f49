package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"parcelvoice/internal/dispatch"
	"parcelvoice/internal/logging"
	"parcelvoice/internal/models"
)

// CommandProcessor runs the full interpretation pipeline for one command:
// shortcut expansion, intent classification, parameter extraction, confidence
// scoring, dispatch to the domain handler, and error recovery. Process never
// returns an error and never panics; every outcome is a CommandResult.
type CommandProcessor struct {
	shortcuts  *ShortcutService
	classifier *IntentClassifier
	extractor  *ParamExtractor
	scorer     *ConfidenceScorer
	recovery   *ErrorRecoveryService
	help       *HelpService
	registry   *dispatch.Registry
	analytics  *AnalyticsService
	metrics    *Metrics

	threshold float64
}

// NewCommandProcessor wires the pipeline. analytics and metrics may be nil;
// the processor degrades to interpretation-only behavior without them.
func NewCommandProcessor(
	shortcuts *ShortcutService,
	classifier *IntentClassifier,
	extractor *ParamExtractor,
	scorer *ConfidenceScorer,
	recovery *ErrorRecoveryService,
	help *HelpService,
	registry *dispatch.Registry,
	analytics *AnalyticsService,
	metrics *Metrics,
	threshold float64,
) *CommandProcessor {
	return &CommandProcessor{
		shortcuts:  shortcuts,
		classifier: classifier,
		extractor:  extractor,
		scorer:     scorer,
		recovery:   recovery,
		help:       help,
		registry:   registry,
		analytics:  analytics,
		metrics:    metrics,
		threshold:  threshold,
	}
}

// Process interprets and executes one raw command on behalf of the caller.
func (p *CommandProcessor) Process(ctx context.Context, rawCommand string, cmdCtx models.CommandContext) (result *models.CommandResult) {
	start := time.Now()

	var (
		cls       Classification
		params    map[string]string
		score     float64
		processed string
	)

	// One command must never take the server down. Anything that escapes the
	// pipeline stages is converted into a generic system error result.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️  [PROCESSOR] Recovered from panic processing command: %v", r)
			result = p.recovery.SystemError(cls)
		}
		p.finalize(result, start, rawCommand, processed, cls, params, score, cmdCtx)
	}()

	raw := strings.TrimSpace(rawCommand)

	expanded := raw
	if p.shortcuts != nil {
		var err error
		expanded, err = p.shortcuts.ExpandCommand(ctx, cmdCtx.UserID, raw)
		if err != nil {
			// Expansion is best-effort; interpret the literal text instead.
			log.Printf("⚠️  [PROCESSOR] Shortcut expansion failed: %v", err)
			expanded = raw
		}
	}
	if expanded != raw {
		processed = expanded
		if p.metrics != nil {
			p.metrics.ShortcutExpansions.Inc()
		}
	}

	cls = p.classifier.Classify(expanded)
	params = p.extractor.Extract(cls)
	score = p.scorer.Score(cls, params)

	if !cls.Matched || score < p.threshold {
		return p.recovery.NotRecognized(ctx, raw, cmdCtx)
	}

	if required, ok := RequiredParameter(cls.CommandType); ok {
		if params[required] == "" {
			return p.recovery.MissingParameter(ctx, cls, required, cmdCtx)
		}
	}

	// Help requests are answered in-process; they never reach a handler.
	if cls.Intent == IntentSystemHelp {
		return p.answerHelp(ctx, cls, cmdCtx)
	}

	handler, ok := p.registry.Resolve(cls.CommandType)
	if !ok {
		return p.recovery.NotRecognized(ctx, raw, cmdCtx)
	}

	resp, err := handler.Handle(ctx, dispatch.Request{
		Command:     expanded,
		CommandType: cls.CommandType,
		Intent:      cls.Intent,
		Parameters:  params,
		Context:     cmdCtx,
	})
	if err != nil {
		return p.recoverHandlerError(cls, err)
	}
	// Handlers can decline without an error; that is still a failure.
	if !resp.Success {
		return p.recovery.HandlerFailed(cls, resp.Message)
	}

	result = &models.CommandResult{
		Success:     true,
		Status:      models.ResultStatusSuccess,
		CommandType: cls.CommandType,
		Intent:      cls.Intent,
		Message:     resp.Message,
		Suggestions: resp.Suggestions,
	}
	if resp.Result != nil {
		result.Result = resp.Result
	}
	return result
}

func (p *CommandProcessor) recoverHandlerError(cls Classification, err error) *models.CommandResult {
	var herr *dispatch.Error
	if errors.As(err, &herr) {
		switch herr.Kind {
		case dispatch.KindPermission:
			return p.recovery.PermissionDenied(cls, herr)
		case dispatch.KindRateLimit:
			return p.recovery.RateLimited(cls, herr)
		case dispatch.KindInvalidParameter:
			return p.recovery.InvalidParameter(cls, herr)
		}
		return p.recovery.HandlerFailed(cls, herr.Message)
	}
	log.Printf("⚠️  [PROCESSOR] Handler for %s failed: %v", cls.CommandType, err)
	return p.recovery.HandlerFailed(cls, "")
}

// answerHelp resolves a help request against the help repository, scoped to
// the caller's UI context when one is set.
func (p *CommandProcessor) answerHelp(ctx context.Context, cls Classification, cmdCtx models.CommandContext) *models.CommandResult {
	result := &models.CommandResult{
		Success:     true,
		Status:      models.ResultStatusSuccess,
		CommandType: cls.CommandType,
		Intent:      cls.Intent,
		Message:     "Here's what you can do.",
	}

	topic := ""
	if len(cls.Submatches) > 0 {
		topic = strings.TrimSpace(cls.Submatches[0])
	}

	var (
		entries []*models.HelpContent
		err     error
	)
	switch {
	case p.help == nil:
		return result
	case topic != "":
		entries, err = p.help.Search(ctx, topic)
	default:
		entries, err = p.help.Contextual(ctx, cmdCtx.ContextID)
	}
	if err != nil {
		log.Printf("⚠️  [PROCESSOR] Help lookup failed: %v", err)
		return result
	}

	result.HelpContent = capHelp(entries, 10)
	result.AlternativeCommands = alternativesFrom(result.HelpContent, 5)
	if topic != "" && len(result.HelpContent) == 0 {
		result.Message = "No help found for \"" + topic + "\"."
	}
	return result
}

// finalize stamps timing and confidence onto the result, records metrics, and
// hands the execution off to the analytics aggregator. The rollup recompute
// runs off the request path; only the log insert happens inline.
func (p *CommandProcessor) finalize(result *models.CommandResult, start time.Time, raw, processed string, cls Classification, params map[string]string, score float64, cmdCtx models.CommandContext) {
	if result == nil {
		return
	}

	elapsed := time.Since(start)
	result.ConfidenceScore = score
	result.ResponseTimeMs = int(elapsed.Milliseconds())

	logging.WithCommand(cmdCtx.SessionID, cmdCtx.UserID).Debug("command processed",
		"command_type", result.CommandType,
		"intent", result.Intent,
		"status", result.Status,
		"confidence", score,
		"elapsed_ms", result.ResponseTimeMs,
	)

	if p.metrics != nil {
		p.metrics.CommandsProcessed.WithLabelValues(string(result.CommandType), string(result.Status)).Inc()
		p.metrics.CommandLatency.Observe(elapsed.Seconds())
		p.metrics.CommandConfidence.Observe(score)
	}

	if p.analytics == nil {
		return
	}

	entry := &models.CommandLog{
		SessionID:        cmdCtx.SessionID,
		UserID:           cmdCtx.UserID,
		RawCommand:       raw,
		ProcessedCommand: processed,
		CommandType:      result.CommandType,
		Intent:           result.Intent,
		ConfidenceScore:  score,
		Parameters:       params,
		Status:           result.Status.LogStatus(),
		ErrorMessage:     result.Error,
		ResponseTimeMs:   result.ResponseTimeMs,
		DeviceInfo:       cmdCtx.DeviceInfo,
		Timestamp:        time.Now().UTC(),
	}
	entry.ContextData = commandContextData(cmdCtx)

	logCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.analytics.LogCommand(logCtx, entry); err != nil {
		log.Printf("⚠️  [PROCESSOR] Failed to log command: %v", err)
	}
}

// commandContextData flattens the non-empty context fields into the log
// entry's context_data payload. Returns nil when no field is set so the
// column stays NULL instead of storing an empty object.
func commandContextData(cmdCtx models.CommandContext) map[string]interface{} {
	fields := map[string]string{
		"context_id":        cmdCtx.ContextID,
		"current_file":      cmdCtx.CurrentFile,
		"selected_code":     cmdCtx.SelectedCode,
		"project_language":  cmdCtx.ProjectLanguage,
		"error_message":     cmdCtx.ErrorMessage,
		"clipboard_content": cmdCtx.ClipboardContent,
	}

	var data map[string]interface{}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if data == nil {
			data = map[string]interface{}{}
		}
		data[key] = value
	}
	return data
}
