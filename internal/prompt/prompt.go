// Package prompt implements the versioning and lifecycle engine for named
// prompt artifacts: versioned records, a single live version per name,
// transactional lifecycle hand-off, and an append-only change history.
//
// Two backends implement the same Service contract: Postgres (pgx) for
// production and SQLite (modernc) for local use. Every mutation commits the
// record change and its history entry in one transaction, or neither.
package prompt

import (
	"context"

	"github.com/google/uuid"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/models"
)

// History action labels. One history row is written per mutation, inside
// the same transaction as the mutation itself.
const (
	actionCreate       = "create"
	actionUpdate       = "update"
	actionDelete       = "delete"
	actionAutoArchived = "auto_archived"
	actionSetLive      = "set_as_live_version"
)

// SystemActor is recorded as the changer on mutations the engine performs
// on its own, such as archiving a superseded live version.
const SystemActor = "system"

const defaultPageSize = 100

// CreateInput carries the caller-supplied fields for a brand new version.
// New versions always start as draft and never live.
type CreateInput struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Content     string         `json:"content"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedBy   string         `json:"-"`
}

// Patch is a partial update. Nil fields are left untouched; status is never
// settable through a patch, the lifecycle controller owns it.
type Patch struct {
	Content     *string        `json:"content,omitempty"`
	Description *string        `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SearchQuery filters the version listing. Text matches name, content or
// description with case-insensitive substring semantics; Tag requires exact
// membership in the version's tag list.
type SearchQuery struct {
	Text      string
	Status    models.PromptStatus
	Tag       string
	CreatedBy string
	Offset    int
	Limit     int
}

// Criteria selects the most recently created version matching all supplied
// filters. Name is a case-insensitive substring; MetadataKey alone requires
// key presence, with MetadataValue it requires exact value equality.
type Criteria struct {
	Name          string
	Tag           string
	MetadataKey   string
	MetadataValue string
}

// ReferencedFunc reports whether a version is referenced by some external
// resource and therefore must not be hard-deleted. A nil predicate means
// nothing is ever referenced.
type ReferencedFunc func(ctx context.Context, id uuid.UUID) (bool, error)

// Service is the engine contract exposed to the API layer. Lookups report
// missing rows through NotFoundError; all write paths either fully commit,
// history entry included, or leave the store untouched.
type Service interface {
	// Record store.
	CreateVersion(ctx context.Context, in CreateInput) (*models.PromptVersion, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PromptVersion, error)
	GetByNameVersion(ctx context.Context, name, version string) (*models.PromptVersion, error)
	GetLatestByName(ctx context.Context, name string) (*models.PromptVersion, error)
	GetLatestByVersionOrder(ctx context.Context, name string) (*models.PromptVersion, error)
	GetLiveByName(ctx context.Context, name string) (*models.PromptVersion, error)
	ListLive(ctx context.Context) ([]models.PromptVersion, error)
	ListVersions(ctx context.Context, name string, offset, limit int) ([]models.PromptVersion, int, error)
	UpdateFields(ctx context.Context, id uuid.UUID, patch Patch, updatedBy string) (*models.PromptVersion, error)
	SoftDelete(ctx context.Context, id uuid.UUID, deletedBy string) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	GetHistory(ctx context.Context, promptID uuid.UUID, offset, limit int) ([]models.PromptHistory, int, error)

	// Query engine.
	Search(ctx context.Context, q SearchQuery) ([]models.PromptVersion, int, error)
	FindLatestByCriteria(ctx context.Context, c Criteria) (*models.PromptVersion, error)

	// Lifecycle controller.
	Activate(ctx context.Context, id uuid.UUID, actor string) (*models.PromptVersion, error)
	CreateNewVersion(ctx context.Context, baseID uuid.UUID, version string, overrides Patch, createdBy string) (*models.PromptVersion, error)
	CreateAutoIncrementedVersion(ctx context.Context, baseID uuid.UUID, overrides Patch, createdBy string) (*models.PromptVersion, error)
}

func validateCreate(in CreateInput) error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if in.Version == "" {
		return &ValidationError{Field: "version", Reason: "must not be empty"}
	}
	if in.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	return nil
}

func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	return offset, limit
}
