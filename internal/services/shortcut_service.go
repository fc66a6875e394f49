package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"parcelvoice/internal/database"
	"parcelvoice/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrDuplicatePhrase is returned when an enabled shortcut with the same
	// phrase already exists in the same scope.
	ErrDuplicatePhrase = errors.New("a shortcut with this phrase already exists")
	// ErrShortcutNotFound is returned when a shortcut id does not exist.
	ErrShortcutNotFound = errors.New("shortcut not found")
)

// ShortcutService manages user-defined and global command shortcuts and
// performs pre-classification phrase expansion.
type ShortcutService struct {
	db *database.DB
}

// NewShortcutService creates a new shortcut service.
func NewShortcutService(db *database.DB) *ShortcutService {
	return &ShortcutService{db: db}
}

// Create stores a new shortcut. The phrase must not collide with an enabled
// shortcut visible in the same scope; the caller's personal set is checked
// before the global set.
func (s *ShortcutService) Create(ctx context.Context, req *models.CreateShortcutRequest) (*models.Shortcut, error) {
	phrase := strings.TrimSpace(req.ShortcutPhrase)
	if phrase == "" {
		return nil, fmt.Errorf("shortcut phrase is required")
	}
	if strings.TrimSpace(req.ExpandedCommand) == "" {
		return nil, fmt.Errorf("expanded command is required")
	}

	ownerID := req.OwnerUserID
	if req.IsGlobal {
		ownerID = 0
	}

	if err := s.checkPhraseAvailable(ctx, ownerID, phrase, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	shortcut := &models.Shortcut{
		ID:              uuid.NewString(),
		OwnerUserID:     ownerID,
		ShortcutPhrase:  phrase,
		ExpandedCommand: strings.TrimSpace(req.ExpandedCommand),
		CommandType:     req.CommandType,
		Description:     req.Description,
		Priority:        req.Priority,
		IsEnabled:       true,
		IsGlobal:        req.IsGlobal,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shortcuts
			(id, owner_user_id, shortcut_phrase, expanded_command, command_type,
			 description, priority, is_enabled, is_global, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		shortcut.ID, shortcut.OwnerUserID, shortcut.ShortcutPhrase, shortcut.ExpandedCommand,
		string(shortcut.CommandType), shortcut.Description, shortcut.Priority,
		shortcut.IsEnabled, shortcut.IsGlobal, shortcut.CreatedAt, shortcut.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create shortcut: %w", err)
	}

	return shortcut, nil
}

// Update applies a partial patch. When the phrase changes, uniqueness is
// re-validated within the shortcut's scope.
func (s *ShortcutService) Update(ctx context.Context, id string, patch *models.UpdateShortcutRequest) (*models.Shortcut, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.ShortcutPhrase != nil {
		phrase := strings.TrimSpace(*patch.ShortcutPhrase)
		if phrase == "" {
			return nil, fmt.Errorf("shortcut phrase is required")
		}
		if !strings.EqualFold(phrase, existing.ShortcutPhrase) {
			if err := s.checkPhraseAvailable(ctx, existing.OwnerUserID, phrase, id); err != nil {
				return nil, err
			}
		}
		existing.ShortcutPhrase = phrase
	}
	if patch.ExpandedCommand != nil {
		existing.ExpandedCommand = strings.TrimSpace(*patch.ExpandedCommand)
	}
	if patch.CommandType != nil {
		existing.CommandType = *patch.CommandType
	}
	if patch.Description != nil {
		existing.Description = *patch.Description
	}
	if patch.Priority != nil {
		existing.Priority = *patch.Priority
	}
	if patch.IsEnabled != nil {
		existing.IsEnabled = *patch.IsEnabled
	}
	existing.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE shortcuts
		SET shortcut_phrase = ?, expanded_command = ?, command_type = ?,
		    description = ?, priority = ?, is_enabled = ?, updated_at = ?
		WHERE id = ?`,
		existing.ShortcutPhrase, existing.ExpandedCommand, string(existing.CommandType),
		existing.Description, existing.Priority, existing.IsEnabled, existing.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update shortcut: %w", err)
	}

	return existing, nil
}

// Delete removes a shortcut by id.
func (s *ShortcutService) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM shortcuts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete shortcut: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrShortcutNotFound
	}
	return nil
}

// Get returns a shortcut by id.
func (s *ShortcutService) Get(ctx context.Context, id string) (*models.Shortcut, error) {
	row := s.db.QueryRowContext(ctx, selectShortcutColumns+" WHERE id = ?", id)
	shortcut, err := scanShortcut(row)
	if err == sql.ErrNoRows {
		return nil, ErrShortcutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shortcut: %w", err)
	}
	return shortcut, nil
}

// ListVisible returns the shortcuts visible to a user: their own plus all
// global ones.
func (s *ShortcutService) ListVisible(ctx context.Context, userID int) ([]*models.Shortcut, error) {
	rows, err := s.db.QueryContext(ctx,
		selectShortcutColumns+" WHERE owner_user_id = ? OR is_global = TRUE ORDER BY priority DESC, shortcut_phrase ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list shortcuts: %w", err)
	}
	defer rows.Close()

	var shortcuts []*models.Shortcut
	for rows.Next() {
		shortcut, err := scanShortcut(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shortcut: %w", err)
		}
		shortcuts = append(shortcuts, shortcut)
	}
	return shortcuts, rows.Err()
}

// FindByPhrase looks up a shortcut by its exact phrase, checking the user's
// personal scope first and falling back to the global scope.
func (s *ShortcutService) FindByPhrase(ctx context.Context, userID int, phrase string) (*models.Shortcut, error) {
	phrase = strings.TrimSpace(phrase)

	row := s.db.QueryRowContext(ctx,
		selectShortcutColumns+" WHERE owner_user_id = ? AND LOWER(shortcut_phrase) = LOWER(?) AND is_enabled = TRUE",
		userID, phrase,
	)
	shortcut, err := scanShortcut(row)
	if err == nil {
		return shortcut, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find shortcut: %w", err)
	}

	row = s.db.QueryRowContext(ctx,
		selectShortcutColumns+" WHERE is_global = TRUE AND LOWER(shortcut_phrase) = LOWER(?) AND is_enabled = TRUE",
		phrase,
	)
	shortcut, err = scanShortcut(row)
	if err == sql.ErrNoRows {
		return nil, ErrShortcutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find shortcut: %w", err)
	}
	return shortcut, nil
}

// ExpandCommand replaces every occurrence of each matching enabled shortcut
// phrase in the text with its expansion. Candidates are ordered by phrase
// length descending, then priority descending, so longer more specific
// phrases are never shadowed by shorter ones. Matching is case-insensitive
// on whole-word boundaries. Returns the input unchanged when no shortcut
// matches.
func (s *ShortcutService) ExpandCommand(ctx context.Context, userID int, text string) (string, error) {
	shortcuts, err := s.ListVisible(ctx, userID)
	if err != nil {
		return text, err
	}

	candidates := make([]*models.Shortcut, 0, len(shortcuts))
	for _, sc := range shortcuts {
		if sc.IsEnabled {
			candidates = append(candidates, sc)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		li, lj := len(candidates[i].ShortcutPhrase), len(candidates[j].ShortcutPhrase)
		if li != lj {
			return li > lj
		}
		return candidates[i].Priority > candidates[j].Priority
	})

	expanded := text
	for _, sc := range candidates {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(sc.ShortcutPhrase) + `\b`)
		if err != nil {
			continue
		}
		if !re.MatchString(expanded) {
			continue
		}
		expanded = re.ReplaceAllLiteralString(expanded, sc.ExpandedCommand)
		s.recordUsage(ctx, sc.ID)
	}

	return expanded, nil
}

// recordUsage bumps the usage counter with a single in-database increment so
// concurrent expansions never lose updates.
func (s *ShortcutService) recordUsage(ctx context.Context, id string) {
	_, err := s.db.ExecContext(ctx,
		"UPDATE shortcuts SET usage_count = usage_count + 1, last_used = ?, updated_at = ? WHERE id = ?",
		time.Now().UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		log.Printf("⚠️  [SHORTCUTS] Failed to record usage for %s: %v", id, err)
	}
}

// checkPhraseAvailable enforces per-scope phrase uniqueness among enabled
// shortcuts. The owner scope is checked before the global one; owner 0 is a
// real scope here so system-owned shortcuts cannot collide with each other.
// excludeID skips the shortcut being updated.
func (s *ShortcutService) checkPhraseAvailable(ctx context.Context, ownerID int, phrase, excludeID string) error {
	scopes := [][]interface{}{
		{"owner_user_id = ?", ownerID},
		{"is_global = TRUE", nil},
	}

	for _, scope := range scopes {
		query := "SELECT COUNT(*) FROM shortcuts WHERE " + scope[0].(string) +
			" AND is_enabled = TRUE AND LOWER(shortcut_phrase) = LOWER(?) AND id != ?"
		args := []interface{}{}
		if scope[1] != nil {
			args = append(args, scope[1])
		}
		args = append(args, phrase, excludeID)

		var count int
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
			return fmt.Errorf("failed to check phrase uniqueness: %w", err)
		}
		if count > 0 {
			return ErrDuplicatePhrase
		}
	}
	return nil
}

const selectShortcutColumns = `
	SELECT id, owner_user_id, shortcut_phrase, expanded_command, command_type,
	       description, priority, is_enabled, is_global, usage_count, last_used,
	       created_at, updated_at
	FROM shortcuts`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanShortcut(row rowScanner) (*models.Shortcut, error) {
	var sc models.Shortcut
	var commandType string
	var description sql.NullString
	var lastUsed sql.NullTime

	err := row.Scan(&sc.ID, &sc.OwnerUserID, &sc.ShortcutPhrase, &sc.ExpandedCommand,
		&commandType, &description, &sc.Priority, &sc.IsEnabled, &sc.IsGlobal,
		&sc.UsageCount, &lastUsed, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sc.CommandType = models.CommandType(commandType)
	sc.Description = description.String
	if lastUsed.Valid {
		sc.LastUsed = &lastUsed.Time
	}
	return &sc, nil
}
