package models

// RankedCommand is one entry of a top-commands or top-error-triggers list.
type RankedCommand struct {
	Command string `json:"command"`
	Count   int    `json:"count"`
}

// DailyAnalytic is the recomputed per-(date,user) rollup derived from that
// day's command logs. UserID 0 is the global aggregate across all users.
// Every field is rebuilt from scratch on each recompute, never incremented.
type DailyAnalytic struct {
	Date              string              `json:"date"` // YYYY-MM-DD
	UserID            int                 `json:"user_id,omitempty"`
	TotalCommands     int                 `json:"total_commands"`
	SuccessfulCmds    int                 `json:"successful_commands"`
	FailedCmds        int                 `json:"failed_commands"`
	AmbiguousCmds     int                 `json:"ambiguous_commands"`
	AvgResponseTimeMs *float64            `json:"avg_response_time_ms,omitempty"`
	AvgConfidence     *float64            `json:"avg_confidence_score,omitempty"`
	CommandTypeCounts map[string]int      `json:"command_type_counts"`
	TopCommands       []RankedCommand     `json:"top_commands"`
	TopErrorTriggers  []RankedCommand     `json:"top_error_triggers"`
}

// OverviewStats is the aggregate snapshot served on the analytics overview
// endpoint, computed over a trailing window of daily global rollups.
type OverviewStats struct {
	Days           int             `json:"days"`
	TotalCommands  int             `json:"total_commands"`
	SuccessfulCmds int             `json:"successful_commands"`
	FailedCmds     int             `json:"failed_commands"`
	AmbiguousCmds  int             `json:"ambiguous_commands"`
	TopCommands    []RankedCommand `json:"top_commands"`
	TimeSeries     []DailyAnalytic `json:"time_series"`
}
