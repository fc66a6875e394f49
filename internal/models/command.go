package models

import "time"

// CommandType is the coarse routing category assigned by the classifier.
type CommandType string

const (
	CommandTypeNavigation CommandType = "navigation"
	CommandTypeAssessment CommandType = "property_assessment"
	CommandTypeDataQuery  CommandType = "data_query"
	CommandTypeSystem     CommandType = "system"
	CommandTypeWorkflow   CommandType = "workflow"
	CommandTypeCoding     CommandType = "coding_assistance"
)

// LogStatus is the terminal status recorded on a command log row.
type LogStatus string

const (
	LogStatusSuccess   LogStatus = "SUCCESS"
	LogStatusFailed    LogStatus = "FAILED"
	LogStatusAmbiguous LogStatus = "AMBIGUOUS"
)

// ResultStatus is the fine-grained outcome reported back to the caller.
type ResultStatus string

const (
	ResultStatusSuccess          ResultStatus = "success"
	ResultStatusNotRecognized    ResultStatus = "not_recognized"
	ResultStatusMissingParameter ResultStatus = "missing_parameter"
	ResultStatusPermissionDenied ResultStatus = "permission_denied"
	ResultStatusRateLimited      ResultStatus = "rate_limited"
	ResultStatusInvalidParameter ResultStatus = "invalid_parameter"
	ResultStatusError            ResultStatus = "error"
)

// LogStatus maps a result status onto the coarse SUCCESS/FAILED/AMBIGUOUS
// bucket used by the analytics rollups. Low-confidence rejections are
// AMBIGUOUS; every other failure mode is FAILED.
func (s ResultStatus) LogStatus() LogStatus {
	switch s {
	case ResultStatusSuccess:
		return LogStatusSuccess
	case ResultStatusNotRecognized:
		return LogStatusAmbiguous
	default:
		return LogStatusFailed
	}
}

// CommandContext carries the caller's identity and UI context through the
// pipeline. The coding fields are consumed only by the coding-assistance path.
type CommandContext struct {
	UserID     int                    `json:"user_id"`
	SessionID  string                 `json:"session_id"`
	ContextID  string                 `json:"context_id,omitempty"`
	DeviceInfo map[string]interface{} `json:"device_info,omitempty"`

	CurrentFile      string `json:"current_file,omitempty"`
	SelectedCode     string `json:"selected_code,omitempty"`
	ProjectLanguage  string `json:"project_language,omitempty"`
	ErrorMessage     string `json:"error_message,omitempty"`
	ClipboardContent string `json:"clipboard_content,omitempty"`
}

// CommandResult is the uniform response for one processed command.
// The pipeline always produces one of these; it never surfaces raw errors.
type CommandResult struct {
	Success             bool          `json:"success"`
	Status              ResultStatus  `json:"status"`
	CommandType         CommandType   `json:"command_type"`
	Intent              string        `json:"intent,omitempty"`
	Result              interface{}   `json:"result,omitempty"`
	Message             string        `json:"message,omitempty"`
	Error               string        `json:"error,omitempty"`
	Suggestions         []string      `json:"suggestions,omitempty"`
	AlternativeCommands []string      `json:"alternative_commands,omitempty"`
	HelpContent         []HelpContent `json:"help_content,omitempty"`
	ConfidenceScore     float64       `json:"confidence_score"`
	ResponseTimeMs      int           `json:"response_time_ms"`
}

// CommandLog is one immutable row per processed command. Rows are written by
// the analytics aggregator at the end of a pipeline execution and never
// updated afterwards.
type CommandLog struct {
	ID               int64                  `json:"id"`
	SessionID        string                 `json:"session_id"`
	UserID           int                    `json:"user_id"`
	RawCommand       string                 `json:"raw_command"`
	ProcessedCommand string                 `json:"processed_command,omitempty"` // empty when expansion changed nothing
	CommandType      CommandType            `json:"command_type"`
	Intent           string                 `json:"intent,omitempty"`
	ConfidenceScore  float64                `json:"confidence_score"`
	Parameters       map[string]string      `json:"parameters,omitempty"`
	Status           LogStatus              `json:"status"`
	ErrorMessage     string                 `json:"error_message,omitempty"`
	ResponseTimeMs   int                    `json:"response_time_ms"`
	ContextData      map[string]interface{} `json:"context_data,omitempty"`
	DeviceInfo       map[string]interface{} `json:"device_info,omitempty"`
	Timestamp        time.Time              `json:"timestamp"`
}

// ProcessCommandRequest is the request body for POST /api/commands.
type ProcessCommandRequest struct {
	Text    string         `json:"text"`
	Context CommandContext `json:"context"`
}
