package prompt

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/models"
)

// NextVersion derives a successor for the given version string. A clean
// major.minor.patch triplet gets its patch bumped; any other shape gets a
// literal ".1" suffix. The scheme is deliberately naive and must not be
// tightened without a product decision.
func NextVersion(current string) string {
	parts := strings.Split(current, ".")
	if len(parts) == 3 {
		if patch, err := strconv.Atoi(parts[2]); err == nil {
			return fmt.Sprintf("%s.%s.%d", parts[0], parts[1], patch+1)
		}
	}
	return current + ".1"
}

type fieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// diffPatch returns the per-field old/new pairs a patch would cause against
// the current record. An empty map means the update is a no-op: no history
// entry and no updated_at bump.
func diffPatch(cur *models.PromptVersion, p Patch) map[string]fieldChange {
	changes := make(map[string]fieldChange)
	if p.Content != nil && *p.Content != cur.Content {
		changes["content"] = fieldChange{Old: cur.Content, New: *p.Content}
	}
	if p.Description != nil && *p.Description != cur.Description {
		changes["description"] = fieldChange{Old: cur.Description, New: *p.Description}
	}
	if p.Tags != nil && !sameTagSet(p.Tags, cur.Tags) {
		changes["tags"] = fieldChange{Old: cur.Tags, New: p.Tags}
	}
	if p.Metadata != nil && !reflect.DeepEqual(p.Metadata, cur.Metadata) {
		changes["metadata"] = fieldChange{Old: cur.Metadata, New: p.Metadata}
	}
	return changes
}

// applyPatch writes the patched fields onto the record in place.
func applyPatch(cur *models.PromptVersion, p Patch) {
	if p.Content != nil {
		cur.Content = *p.Content
	}
	if p.Description != nil {
		cur.Description = *p.Description
	}
	if p.Tags != nil {
		cur.Tags = p.Tags
	}
	if p.Metadata != nil {
		cur.Metadata = p.Metadata
	}
}

// overrideCreate fills a CreateInput from a base version, letting patch
// fields win where set. Used when cutting a new version of an existing name.
func overrideCreate(base *models.PromptVersion, version string, p Patch, createdBy string) CreateInput {
	in := CreateInput{
		Name:        base.Name,
		Version:     version,
		Content:     base.Content,
		Description: base.Description,
		Tags:        base.Tags,
		Metadata:    base.Metadata,
		CreatedBy:   createdBy,
	}
	if p.Content != nil {
		in.Content = *p.Content
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Tags != nil {
		in.Tags = p.Tags
	}
	if p.Metadata != nil {
		in.Metadata = p.Metadata
	}
	return in
}

// sameTagSet compares tags as sets, matching how updates decide whether a
// tag change is real.
func sameTagSet(a, b []string) bool {
	as := make(map[string]struct{}, len(a))
	for _, t := range a {
		as[t] = struct{}{}
	}
	bs := make(map[string]struct{}, len(b))
	for _, t := range b {
		bs[t] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for t := range as {
		if _, ok := bs[t]; !ok {
			return false
		}
	}
	return true
}

// changeReason renders the free-text reason stored on a history row:
// the action label, plus a compact JSON rendering of any detail.
func changeReason(action string, detail any) string {
	if detail == nil {
		return action
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return action
	}
	return action + ": " + string(data)
}

// snapshotOf freezes a version's current state into a history row. The
// caller supplies the actor, action and timestamp; the row id is fresh.
func snapshotOf(v *models.PromptVersion, changedBy, reason string, at time.Time) models.PromptHistory {
	return models.PromptHistory{
		ID:           uuid.New(),
		PromptID:     v.ID,
		Version:      v.Version,
		Content:      v.Content,
		Description:  v.Description,
		Status:       v.Status,
		Tags:         v.Tags,
		Metadata:     v.Metadata,
		ChangedBy:    changedBy,
		ChangeReason: reason,
		ChangedAt:    at,
	}
}
