package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"parcelvoice/internal/database"
	"parcelvoice/internal/models"
)

// AnalyticsService owns the command log and the daily rollups derived from
// it. It is the only writer of command_logs rows; rows are immutable once
// written and are read back only for rollups and audit.
type AnalyticsService struct {
	db  *database.DB
	pub *RedisService // optional; nil disables rollup event publishing
	wg  sync.WaitGroup
}

// NewAnalyticsService creates a new analytics aggregator. pub may be nil.
func NewAnalyticsService(db *database.DB, pub *RedisService) *AnalyticsService {
	return &AnalyticsService{db: db, pub: pub}
}

// LogCommand appends one immutable log row and kicks off the per-user and
// global daily rollup recomputes in the background. The recomputes never
// block the caller; failures there are logged and discarded.
func (s *AnalyticsService) LogCommand(ctx context.Context, entry *models.CommandLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	parameters, _ := json.Marshal(entry.Parameters)
	contextData, _ := json.Marshal(entry.ContextData)
	deviceInfo, _ := json.Marshal(entry.DeviceInfo)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_logs
			(session_id, user_id, raw_command, processed_command, command_type,
			 intent, confidence_score, parameters, status, error_message,
			 response_time_ms, context_data, device_info, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID, entry.UserID, entry.RawCommand, nullIfEmpty(entry.ProcessedCommand),
		string(entry.CommandType), nullIfEmpty(entry.Intent), entry.ConfidenceScore,
		string(parameters), string(entry.Status), nullIfEmpty(entry.ErrorMessage),
		entry.ResponseTimeMs, string(contextData), string(deviceInfo), entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert command log: %w", err)
	}

	date := entry.Timestamp.UTC().Format("2006-01-02")
	s.wg.Add(1)
	go func(date string, userID int) {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("⚠️  [ANALYTICS] Rollup recompute panicked: %v", r)
			}
		}()

		rctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := s.RecomputeDaily(rctx, date, userID); err != nil {
			log.Printf("⚠️  [ANALYTICS] Failed to recompute rollup for user %d on %s: %v", userID, date, err)
		}
		if _, err := s.RecomputeDaily(rctx, date, 0); err != nil {
			log.Printf("⚠️  [ANALYTICS] Failed to recompute global rollup on %s: %v", date, err)
		}
	}(date, entry.UserID)

	return nil
}

// Wait blocks until all in-flight background recomputes have finished.
// Used during shutdown and in tests.
func (s *AnalyticsService) Wait() {
	s.wg.Wait()
}

// RecomputeDaily rebuilds every field of the (date, userID) rollup from that
// day's log rows and upserts it. userID 0 recomputes the global aggregate
// over all users. Two concurrent recomputes of the same row race and the
// later write wins, reflecting only the logs visible at its own read time;
// that is the documented recompute-on-write behavior, not a bug to patch here.
func (s *AnalyticsService) RecomputeDaily(ctx context.Context, date string, userID int) (*models.DailyAnalytic, error) {
	dayStart, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid rollup date %q: %w", date, err)
	}
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `
		SELECT raw_command, command_type, status, response_time_ms, confidence_score
		FROM command_logs
		WHERE timestamp >= ? AND timestamp < ?`
	args := []interface{}{dayStart, dayEnd}
	if userID != 0 {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read command logs: %w", err)
	}
	defer rows.Close()

	analytic := &models.DailyAnalytic{
		Date:              date,
		UserID:            userID,
		CommandTypeCounts: make(map[string]int),
		TopCommands:       []models.RankedCommand{},
		TopErrorTriggers:  []models.RankedCommand{},
	}

	var totalResponseMs, totalConfidence float64
	commandCounts := make(map[string]int)
	errorCounts := make(map[string]int)

	for rows.Next() {
		var rawCommand, commandType, status string
		var responseTimeMs int
		var confidence float64
		if err := rows.Scan(&rawCommand, &commandType, &status, &responseTimeMs, &confidence); err != nil {
			return nil, fmt.Errorf("failed to scan command log: %w", err)
		}

		analytic.TotalCommands++
		switch models.LogStatus(status) {
		case models.LogStatusSuccess:
			analytic.SuccessfulCmds++
		case models.LogStatusFailed:
			analytic.FailedCmds++
			errorCounts[rawCommand]++
		case models.LogStatusAmbiguous:
			analytic.AmbiguousCmds++
		}
		analytic.CommandTypeCounts[commandType]++
		commandCounts[rawCommand]++
		totalResponseMs += float64(responseTimeMs)
		totalConfidence += confidence
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate command logs: %w", err)
	}

	if analytic.TotalCommands > 0 {
		avgResponse := totalResponseMs / float64(analytic.TotalCommands)
		avgConfidence := totalConfidence / float64(analytic.TotalCommands)
		analytic.AvgResponseTimeMs = &avgResponse
		analytic.AvgConfidence = &avgConfidence
	}
	analytic.TopCommands = rankCommands(commandCounts, 10)
	analytic.TopErrorTriggers = rankCommands(errorCounts, 10)

	if err := s.upsertDaily(ctx, analytic); err != nil {
		return nil, err
	}

	s.publishRollup(ctx, analytic)
	return analytic, nil
}

// GetDaily returns the stored rollup for (date, userID), or nil when no
// commands have been logged for that pair. userID 0 is the global aggregate.
func (s *AnalyticsService) GetDaily(ctx context.Context, date string, userID int) (*models.DailyAnalytic, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT date, user_id, total_commands, successful_commands, failed_commands,
		       ambiguous_commands, avg_response_time_ms, avg_confidence_score,
		       command_type_counts, top_commands, top_error_triggers
		FROM daily_analytics
		WHERE date = ? AND user_id = ?`,
		date, userID,
	)
	analytic, err := scanDailyAnalytic(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily analytics: %w", err)
	}
	return analytic, nil
}

// Overview aggregates the trailing global rollups into one snapshot.
func (s *AnalyticsService) Overview(ctx context.Context, days int) (*models.OverviewStats, error) {
	if days <= 0 {
		days = 30
	}
	startDate := time.Now().UTC().AddDate(0, 0, -days+1).Format("2006-01-02")

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, user_id, total_commands, successful_commands, failed_commands,
		       ambiguous_commands, avg_response_time_ms, avg_confidence_score,
		       command_type_counts, top_commands, top_error_triggers
		FROM daily_analytics
		WHERE user_id = 0 AND date >= ?
		ORDER BY date ASC`,
		startDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overview: %w", err)
	}
	defer rows.Close()

	stats := &models.OverviewStats{Days: days, TopCommands: []models.RankedCommand{}}
	commandCounts := make(map[string]int)

	for rows.Next() {
		analytic, err := scanDailyAnalytic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overview row: %w", err)
		}
		stats.TotalCommands += analytic.TotalCommands
		stats.SuccessfulCmds += analytic.SuccessfulCmds
		stats.FailedCmds += analytic.FailedCmds
		stats.AmbiguousCmds += analytic.AmbiguousCmds
		for _, ranked := range analytic.TopCommands {
			commandCounts[ranked.Command] += ranked.Count
		}
		stats.TimeSeries = append(stats.TimeSeries, *analytic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate overview rows: %w", err)
	}

	stats.TopCommands = rankCommands(commandCounts, 10)
	return stats, nil
}

// PurgeOlderThan deletes command logs older than the given number of days and
// returns how many rows were removed. Closed-out daily rollups are kept.
func (s *AnalyticsService) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	result, err := s.db.ExecContext(ctx, "DELETE FROM command_logs WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge command logs: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// DistinctUserIDs returns the users that logged commands on a given date.
func (s *AnalyticsService) DistinctUserIDs(ctx context.Context, date string) ([]int, error) {
	dayStart, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT user_id FROM command_logs WHERE timestamp >= ? AND timestamp < ?",
		dayStart, dayStart.Add(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *AnalyticsService) upsertDaily(ctx context.Context, analytic *models.DailyAnalytic) error {
	typeCounts, _ := json.Marshal(analytic.CommandTypeCounts)
	topCommands, _ := json.Marshal(analytic.TopCommands)
	topErrors, _ := json.Marshal(analytic.TopErrorTriggers)
	now := time.Now().UTC()

	assignments := `total_commands = ?, successful_commands = ?, failed_commands = ?,
		ambiguous_commands = ?, avg_response_time_ms = ?, avg_confidence_score = ?,
		command_type_counts = ?, top_commands = ?, top_error_triggers = ?, updated_at = ?`

	query := `
		INSERT INTO daily_analytics
			(date, user_id, total_commands, successful_commands, failed_commands,
			 ambiguous_commands, avg_response_time_ms, avg_confidence_score,
			 command_type_counts, top_commands, top_error_triggers, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ` +
		s.db.UpsertClause("date, user_id", assignments)

	_, err := s.db.ExecContext(ctx, query,
		analytic.Date, analytic.UserID, analytic.TotalCommands, analytic.SuccessfulCmds,
		analytic.FailedCmds, analytic.AmbiguousCmds, analytic.AvgResponseTimeMs,
		analytic.AvgConfidence, string(typeCounts), string(topCommands), string(topErrors), now,
		analytic.TotalCommands, analytic.SuccessfulCmds, analytic.FailedCmds,
		analytic.AmbiguousCmds, analytic.AvgResponseTimeMs, analytic.AvgConfidence,
		string(typeCounts), string(topCommands), string(topErrors), now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily analytics: %w", err)
	}
	return nil
}

func (s *AnalyticsService) publishRollup(ctx context.Context, analytic *models.DailyAnalytic) {
	if s.pub == nil {
		return
	}
	event := map[string]interface{}{
		"date":           analytic.Date,
		"user_id":        analytic.UserID,
		"total_commands": analytic.TotalCommands,
	}
	if err := s.pub.Publish(ctx, "parcelvoice:analytics:rollup", event); err != nil {
		log.Printf("⚠️  [ANALYTICS] Failed to publish rollup event: %v", err)
	}
}

func scanDailyAnalytic(row rowScanner) (*models.DailyAnalytic, error) {
	var analytic models.DailyAnalytic
	var avgResponse, avgConfidence sql.NullFloat64
	var typeCounts, topCommands, topErrors sql.NullString

	err := row.Scan(&analytic.Date, &analytic.UserID, &analytic.TotalCommands,
		&analytic.SuccessfulCmds, &analytic.FailedCmds, &analytic.AmbiguousCmds,
		&avgResponse, &avgConfidence, &typeCounts, &topCommands, &topErrors)
	if err != nil {
		return nil, err
	}

	if avgResponse.Valid {
		analytic.AvgResponseTimeMs = &avgResponse.Float64
	}
	if avgConfidence.Valid {
		analytic.AvgConfidence = &avgConfidence.Float64
	}
	analytic.CommandTypeCounts = make(map[string]int)
	if typeCounts.Valid && typeCounts.String != "" {
		json.Unmarshal([]byte(typeCounts.String), &analytic.CommandTypeCounts)
	}
	if topCommands.Valid && topCommands.String != "" {
		json.Unmarshal([]byte(topCommands.String), &analytic.TopCommands)
	}
	if topErrors.Valid && topErrors.String != "" {
		json.Unmarshal([]byte(topErrors.String), &analytic.TopErrorTriggers)
	}
	return &analytic, nil
}

// rankCommands turns a count map into a ranked list, count descending with
// command text breaking ties, capped at limit entries.
func rankCommands(counts map[string]int, limit int) []models.RankedCommand {
	ranked := make([]models.RankedCommand, 0, len(counts))
	for command, count := range counts {
		ranked = append(ranked, models.RankedCommand{Command: command, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Command < ranked[j].Command
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
