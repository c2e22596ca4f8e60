package models

import (
	"time"

	"github.com/google/uuid"
)

type PromptStatus string

const (
	StatusDraft    PromptStatus = "draft"
	StatusLive     PromptStatus = "live"
	StatusArchived PromptStatus = "archived"
)

// Valid reports whether s is one of the known lifecycle states.
func (s PromptStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusLive, StatusArchived:
		return true
	}
	return false
}

// PromptVersion is one concrete version of a named prompt. The
// (name, version) pair is unique across the whole store, and at most one
// version per name carries IsLive=true at any time.
type PromptVersion struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Version     string         `json:"version" db:"version"`
	Content     string         `json:"content" db:"content"`
	Description string         `json:"description,omitempty" db:"description"`
	Status      PromptStatus   `json:"status" db:"status"`
	IsLive      bool           `json:"is_live" db:"is_live"`
	Tags        []string       `json:"tags" db:"tags"`
	Metadata    map[string]any `json:"metadata" db:"metadata"`
	CreatedBy   string         `json:"created_by" db:"created_by"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// PromptHistory is an immutable audit snapshot written once per mutation.
// PromptID is kept as plain data, not a foreign key, so history survives a
// hard delete of the version it describes.
type PromptHistory struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	PromptID     uuid.UUID      `json:"prompt_id" db:"prompt_id"`
	Version      string         `json:"version" db:"version"`
	Content      string         `json:"content" db:"content"`
	Description  string         `json:"description,omitempty" db:"description"`
	Status       PromptStatus   `json:"status" db:"status"`
	Tags         []string       `json:"tags" db:"tags"`
	Metadata     map[string]any `json:"metadata" db:"metadata"`
	ChangedBy    string         `json:"changed_by" db:"changed_by"`
	ChangeReason string         `json:"change_reason,omitempty" db:"change_reason"`
	ChangedAt    time.Time      `json:"changed_at" db:"changed_at"`
}
