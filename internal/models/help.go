package models

import "time"

// HelpContent is one contextual help entry. Entries with an empty ContextID
// are global and included in every contextual lookup.
type HelpContent struct {
	ID              string            `json:"id"`
	CommandType     CommandType       `json:"command_type"`
	ContextID       string            `json:"context_id,omitempty"`
	Title           string            `json:"title"`
	ExamplePhrases  []string          `json:"example_phrases"`
	Description     string            `json:"description"`
	Parameters      map[string]string `json:"parameters,omitempty"` // name -> description
	ResponseExample string            `json:"response_example,omitempty"`
	Priority        int               `json:"priority"`
	IsHidden        bool              `json:"is_hidden"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// CreateHelpContentRequest is the request body for creating a help entry.
type CreateHelpContentRequest struct {
	CommandType     CommandType       `json:"command_type"`
	ContextID       string            `json:"context_id"`
	Title           string            `json:"title"`
	ExamplePhrases  []string          `json:"example_phrases"`
	Description     string            `json:"description"`
	Parameters      map[string]string `json:"parameters"`
	ResponseExample string            `json:"response_example"`
	Priority        int               `json:"priority"`
	IsHidden        bool              `json:"is_hidden"`
}
