package models

import "time"

// Shortcut is a user- or globally-defined trigger phrase that expands to a
// longer command before classification. Within one scope (a user's personal
// set, or the global set) no two enabled shortcuts share a phrase.
type Shortcut struct {
	ID              string      `json:"id"`
	OwnerUserID     int         `json:"owner_user_id,omitempty"` // 0 for global shortcuts
	ShortcutPhrase  string      `json:"shortcut_phrase"`
	ExpandedCommand string      `json:"expanded_command"`
	CommandType     CommandType `json:"command_type"`
	Description     string      `json:"description,omitempty"`
	Priority        int         `json:"priority"`
	IsEnabled       bool        `json:"is_enabled"`
	IsGlobal        bool        `json:"is_global"`
	UsageCount      int         `json:"usage_count"`
	LastUsed        *time.Time  `json:"last_used,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// CreateShortcutRequest is the request body for creating a shortcut.
type CreateShortcutRequest struct {
	OwnerUserID     int         `json:"owner_user_id"`
	ShortcutPhrase  string      `json:"shortcut_phrase"`
	ExpandedCommand string      `json:"expanded_command"`
	CommandType     CommandType `json:"command_type"`
	Description     string      `json:"description"`
	Priority        int         `json:"priority"`
	IsGlobal        bool        `json:"is_global"`
}

// UpdateShortcutRequest is a partial update; nil fields are left unchanged.
type UpdateShortcutRequest struct {
	ShortcutPhrase  *string      `json:"shortcut_phrase,omitempty"`
	ExpandedCommand *string      `json:"expanded_command,omitempty"`
	CommandType     *CommandType `json:"command_type,omitempty"`
	Description     *string      `json:"description,omitempty"`
	Priority        *int         `json:"priority,omitempty"`
	IsEnabled       *bool        `json:"is_enabled,omitempty"`
}
