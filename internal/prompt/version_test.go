package prompt

import (
	"testing"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/models"
)

func TestNextVersion(t *testing.T) {
	cases := []struct {
		current string
		want    string
	}{
		{"2.3.4", "2.3.5"},
		{"1.0.0", "1.0.1"},
		{"0.0.9", "0.0.10"},
		{"beta", "beta.1"},
		{"1.2", "1.2.1"},
		{"1.2.3.4", "1.2.3.4.1"},
		{"1.2.x", "1.2.x.1"},
		{"", ".1"},
	}
	for _, c := range cases {
		if got := NextVersion(c.current); got != c.want {
			t.Errorf("NextVersion(%q) = %q, want %q", c.current, got, c.want)
		}
	}
}

func strPtr(s string) *string { return &s }

func TestDiffPatchNoop(t *testing.T) {
	cur := &models.PromptVersion{
		Content:     "hello",
		Description: "desc",
		Tags:        []string{"a", "b"},
		Metadata:    map[string]any{"k": "v"},
	}

	// Identical values, including tag order changes, must not count as a change.
	changes := diffPatch(cur, Patch{
		Content:     strPtr("hello"),
		Description: strPtr("desc"),
		Tags:        []string{"b", "a"},
		Metadata:    map[string]any{"k": "v"},
	})
	if len(changes) != 0 {
		t.Fatalf("expected no changes, got %v", changes)
	}

	// Nil fields are untouched.
	if changes := diffPatch(cur, Patch{}); len(changes) != 0 {
		t.Fatalf("expected no changes for empty patch, got %v", changes)
	}
}

func TestDiffPatchChanges(t *testing.T) {
	cur := &models.PromptVersion{
		Content:  "hello",
		Tags:     []string{"a"},
		Metadata: map[string]any{"k": "v"},
	}

	changes := diffPatch(cur, Patch{
		Content:  strPtr("bye"),
		Tags:     []string{"a", "b"},
		Metadata: map[string]any{"k": "w"},
	})
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d: %v", len(changes), changes)
	}
	if c, ok := changes["content"]; !ok || c.Old != "hello" || c.New != "bye" {
		t.Errorf("content change = %+v", c)
	}
}

func TestOverrideCreateCopiesBase(t *testing.T) {
	base := &models.PromptVersion{
		Name:        "helper",
		Version:     "1.0.0",
		Content:     "base content",
		Description: "base desc",
		Tags:        []string{"x"},
		Metadata:    map[string]any{"team": "core"},
	}

	in := overrideCreate(base, "1.1.0", Patch{Content: strPtr("new content")}, "alice@example.com")
	if in.Name != "helper" || in.Version != "1.1.0" {
		t.Fatalf("unexpected identity: %s@%s", in.Name, in.Version)
	}
	if in.Content != "new content" {
		t.Errorf("content override not applied: %q", in.Content)
	}
	if in.Description != "base desc" {
		t.Errorf("description should copy from base, got %q", in.Description)
	}
	if len(in.Tags) != 1 || in.Tags[0] != "x" {
		t.Errorf("tags should copy from base, got %v", in.Tags)
	}
	if in.CreatedBy != "alice@example.com" {
		t.Errorf("createdBy = %q", in.CreatedBy)
	}
}

func TestChangeReason(t *testing.T) {
	if got := changeReason(actionSetLive, nil); got != "set_as_live_version" {
		t.Errorf("plain reason = %q", got)
	}
	got := changeReason(actionCreate, map[string]any{"status": "draft"})
	if got != `create: {"status":"draft"}` {
		t.Errorf("detailed reason = %q", got)
	}
}
