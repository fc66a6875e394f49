package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"parcelvoice/internal/database"
	"parcelvoice/internal/models"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
)

// ErrHelpContentNotFound is returned when a help entry id does not exist.
var ErrHelpContentNotFound = errors.New("help content not found")

// HelpService manages contextual and searchable help entries. The content is
// read-heavy and rarely mutated after seeding, so contextual lookups are
// cached and the cache is flushed on every write.
type HelpService struct {
	db           *database.DB
	contextCache *cache.Cache
}

// NewHelpService creates a new help content service.
func NewHelpService(db *database.DB) *HelpService {
	return &HelpService{
		db:           db,
		contextCache: cache.New(15*time.Minute, 30*time.Minute),
	}
}

// Create stores a new help entry.
func (s *HelpService) Create(ctx context.Context, req *models.CreateHelpContentRequest) (*models.HelpContent, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("help content title is required")
	}

	now := time.Now().UTC()
	entry := &models.HelpContent{
		ID:              uuid.NewString(),
		CommandType:     req.CommandType,
		ContextID:       req.ContextID,
		Title:           strings.TrimSpace(req.Title),
		ExamplePhrases:  req.ExamplePhrases,
		Description:     req.Description,
		Parameters:      req.Parameters,
		ResponseExample: req.ResponseExample,
		Priority:        req.Priority,
		IsHidden:        req.IsHidden,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	phrases, params, err := marshalHelpFields(entry)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO help_content
			(id, command_type, context_id, title, example_phrases, description,
			 parameters, response_example, priority, is_hidden, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.CommandType), nullIfEmpty(entry.ContextID), entry.Title,
		phrases, entry.Description, params, entry.ResponseExample,
		entry.Priority, entry.IsHidden, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create help content: %w", err)
	}

	s.contextCache.Flush()
	return entry, nil
}

// Update replaces an existing entry's content.
func (s *HelpService) Update(ctx context.Context, id string, req *models.CreateHelpContentRequest) (*models.HelpContent, error) {
	entry, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	entry.CommandType = req.CommandType
	entry.ContextID = req.ContextID
	entry.Title = strings.TrimSpace(req.Title)
	entry.ExamplePhrases = req.ExamplePhrases
	entry.Description = req.Description
	entry.Parameters = req.Parameters
	entry.ResponseExample = req.ResponseExample
	entry.Priority = req.Priority
	entry.IsHidden = req.IsHidden
	entry.UpdatedAt = time.Now().UTC()

	phrases, params, err := marshalHelpFields(entry)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE help_content
		SET command_type = ?, context_id = ?, title = ?, example_phrases = ?,
		    description = ?, parameters = ?, response_example = ?, priority = ?,
		    is_hidden = ?, updated_at = ?
		WHERE id = ?`,
		string(entry.CommandType), nullIfEmpty(entry.ContextID), entry.Title, phrases,
		entry.Description, params, entry.ResponseExample, entry.Priority,
		entry.IsHidden, entry.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update help content: %w", err)
	}

	s.contextCache.Flush()
	return entry, nil
}

// Delete removes a help entry by id.
func (s *HelpService) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM help_content WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete help content: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrHelpContentNotFound
	}
	s.contextCache.Flush()
	return nil
}

// GetByID returns a help entry by id.
func (s *HelpService) GetByID(ctx context.Context, id string) (*models.HelpContent, error) {
	row := s.db.QueryRowContext(ctx, selectHelpColumns+" WHERE id = ?", id)
	entry, err := scanHelpContent(row)
	if err == sql.ErrNoRows {
		return nil, ErrHelpContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get help content: %w", err)
	}
	return entry, nil
}

// List returns all help entries, excluding hidden ones unless requested.
func (s *HelpService) List(ctx context.Context, includeHidden bool) ([]*models.HelpContent, error) {
	query := selectHelpColumns
	if !includeHidden {
		query += " WHERE is_hidden = FALSE"
	}
	query += helpOrderClause
	return s.queryHelp(ctx, query)
}

// ListByCommandType returns visible entries for one command type.
func (s *HelpService) ListByCommandType(ctx context.Context, ct models.CommandType) ([]*models.HelpContent, error) {
	return s.queryHelp(ctx,
		selectHelpColumns+" WHERE is_hidden = FALSE AND command_type = ?"+helpOrderClause,
		string(ct),
	)
}

// Contextual returns visible entries whose context matches the caller's
// current context, merged with the always-included global entries.
func (s *HelpService) Contextual(ctx context.Context, contextID string) ([]*models.HelpContent, error) {
	cacheKey := "ctx:" + contextID
	if cached, found := s.contextCache.Get(cacheKey); found {
		if entries, ok := cached.([]*models.HelpContent); ok {
			return entries, nil
		}
	}

	entries, err := s.queryHelp(ctx,
		selectHelpColumns+" WHERE is_hidden = FALSE AND (context_id = ? OR context_id IS NULL)"+helpOrderClause,
		contextID,
	)
	if err != nil {
		return nil, err
	}

	s.contextCache.Set(cacheKey, entries, cache.DefaultExpiration)
	return entries, nil
}

// Search matches the query against title, description and example phrases of
// visible entries.
func (s *HelpService) Search(ctx context.Context, query string) ([]*models.HelpContent, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return s.queryHelp(ctx,
		selectHelpColumns+` WHERE is_hidden = FALSE
			AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(example_phrases) LIKE ?)`+helpOrderClause,
		pattern, pattern, pattern,
	)
}

func (s *HelpService) queryHelp(ctx context.Context, query string, args ...interface{}) ([]*models.HelpContent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query help content: %w", err)
	}
	defer rows.Close()

	var entries []*models.HelpContent
	for rows.Next() {
		entry, err := scanHelpContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan help content: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

const selectHelpColumns = `
	SELECT id, command_type, context_id, title, example_phrases, description,
	       parameters, response_example, priority, is_hidden, created_at, updated_at
	FROM help_content`

// Display order everywhere: priority desc, then command type, then title.
const helpOrderClause = " ORDER BY priority DESC, command_type ASC, title ASC"

func scanHelpContent(row rowScanner) (*models.HelpContent, error) {
	var entry models.HelpContent
	var commandType string
	var contextID, phrases, description, params, responseExample sql.NullString

	err := row.Scan(&entry.ID, &commandType, &contextID, &entry.Title, &phrases,
		&description, &params, &responseExample, &entry.Priority, &entry.IsHidden,
		&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}

	entry.CommandType = models.CommandType(commandType)
	entry.ContextID = contextID.String
	entry.Description = description.String
	entry.ResponseExample = responseExample.String
	if phrases.Valid && phrases.String != "" {
		if err := json.Unmarshal([]byte(phrases.String), &entry.ExamplePhrases); err != nil {
			return nil, fmt.Errorf("failed to decode example phrases: %w", err)
		}
	}
	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &entry.Parameters); err != nil {
			return nil, fmt.Errorf("failed to decode parameters: %w", err)
		}
	}
	return &entry, nil
}

func marshalHelpFields(entry *models.HelpContent) (string, string, error) {
	phrases, err := json.Marshal(entry.ExamplePhrases)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode example phrases: %w", err)
	}
	params, err := json.Marshal(entry.Parameters)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode parameters: %w", err)
	}
	return string(phrases), string(params), nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
