package prompt

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/models"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "prompts.db")
	s, err := NewSQLite(context.Background(), dbPath, nil)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *SQLite, name, version string) *models.PromptVersion {
	t.Helper()
	p, err := s.CreateVersion(context.Background(), CreateInput{
		Name:      name,
		Version:   version,
		Content:   "content of " + name + " " + version,
		Tags:      []string{"base"},
		Metadata:  map[string]any{"env": "test"},
		CreatedBy: "tester@example.com",
	})
	if err != nil {
		t.Fatalf("create %s@%s: %v", name, version, err)
	}
	// Keep created_at strictly ordered between successive creates.
	time.Sleep(2 * time.Millisecond)
	return p
}

func TestCreateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustCreate(t, s, "support", "1.0.0")

	got, err := s.GetByNameVersion(ctx, "support", "1.0.0")
	if err != nil {
		t.Fatalf("get by name/version: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("id mismatch: %s vs %s", got.ID, created.ID)
	}
	if got.Status != models.StatusDraft {
		t.Errorf("new version status = %s, want draft", got.Status)
	}
	if got.IsLive {
		t.Error("new version must not be live")
	}
	if got.CreatedBy != "tester@example.com" {
		t.Errorf("created_by = %q", got.CreatedBy)
	}

	// Creation writes exactly one history row.
	hist, total, err := s.GetHistory(ctx, created.ID, 0, 10)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if total != 1 || len(hist) != 1 {
		t.Fatalf("history count = %d (%d items), want 1", total, len(hist))
	}
	if !strings.HasPrefix(hist[0].ChangeReason, "create") {
		t.Errorf("history reason = %q", hist[0].ChangeReason)
	}
	if hist[0].ChangedBy != "tester@example.com" {
		t.Errorf("history actor = %q", hist[0].ChangedBy)
	}
}

func TestCreateValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateVersion(ctx, CreateInput{Version: "1.0.0", Content: "x", CreatedBy: "a"})
	if !IsValidation(err) {
		t.Errorf("empty name: got %v, want ValidationError", err)
	}
	_, err = s.CreateVersion(ctx, CreateInput{Name: "p", Content: "x", CreatedBy: "a"})
	if !IsValidation(err) {
		t.Errorf("empty version: got %v, want ValidationError", err)
	}
	_, err = s.CreateVersion(ctx, CreateInput{Name: "p", Version: "1.0.0", CreatedBy: "a"})
	if !IsValidation(err) {
		t.Errorf("empty content: got %v, want ValidationError", err)
	}
}

func TestCreateDuplicateVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := mustCreate(t, s, "support", "1.0.0")

	_, err := s.CreateVersion(ctx, CreateInput{
		Name: "support", Version: "1.0.0", Content: "other", CreatedBy: "x",
	})
	if !IsDuplicateVersion(err) {
		t.Fatalf("duplicate create: got %v, want DuplicateVersionError", err)
	}

	// The first version is unaffected.
	got, err := s.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("get first: %v", err)
	}
	if got.Content != first.Content {
		t.Errorf("first version content changed to %q", got.Content)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetByID(context.Background(), uuid.New())
	if !IsNotFound(err) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
}

func TestLatestByCreationVsVersionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, "router", "2.0.0")
	mustCreate(t, s, "router", "10.0.0")

	// Creation order says 10.0.0 is latest; lexical version order says 2.0.0.
	byCreation, err := s.GetLatestByName(ctx, "router")
	if err != nil {
		t.Fatalf("latest by creation: %v", err)
	}
	if byCreation.Version != "10.0.0" {
		t.Errorf("latest by creation = %s, want 10.0.0", byCreation.Version)
	}

	byVersion, err := s.GetLatestByVersionOrder(ctx, "router")
	if err != nil {
		t.Fatalf("latest by version order: %v", err)
	}
	if byVersion.Version != "2.0.0" {
		t.Errorf("latest by version order = %s, want 2.0.0", byVersion.Version)
	}
}

func TestActivateHandoff(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "support", "1.0.0")
	b := mustCreate(t, s, "support", "1.1.0")

	if _, err := s.Activate(ctx, a.ID, "alice@example.com"); err != nil {
		t.Fatalf("activate a: %v", err)
	}

	_, aHistBefore, _ := s.GetHistory(ctx, a.ID, 0, 100)
	_, bHistBefore, _ := s.GetHistory(ctx, b.ID, 0, 100)

	got, err := s.Activate(ctx, b.ID, "bob@example.com")
	if err != nil {
		t.Fatalf("activate b: %v", err)
	}
	if got.Status != models.StatusLive || !got.IsLive {
		t.Fatalf("b after activation: status=%s is_live=%v", got.Status, got.IsLive)
	}

	aNow, err := s.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	if aNow.Status != models.StatusArchived || aNow.IsLive {
		t.Fatalf("a after hand-off: status=%s is_live=%v, want archived/false", aNow.Status, aNow.IsLive)
	}

	live, err := s.GetLiveByName(ctx, "support")
	if err != nil {
		t.Fatalf("get live: %v", err)
	}
	if live.ID != b.ID {
		t.Errorf("live version is %s, want %s", live.ID, b.ID)
	}

	// Exactly one new history row per side: auto_archived for a,
	// set_as_live_version for b.
	aHist, aTotal, _ := s.GetHistory(ctx, a.ID, 0, 100)
	if aTotal != aHistBefore+1 {
		t.Fatalf("a history rows = %d, want %d", aTotal, aHistBefore+1)
	}
	if !strings.HasPrefix(aHist[0].ChangeReason, "auto_archived") {
		t.Errorf("a latest reason = %q", aHist[0].ChangeReason)
	}
	if aHist[0].ChangedBy != SystemActor {
		t.Errorf("auto-archive actor = %q, want system", aHist[0].ChangedBy)
	}
	if !strings.Contains(aHist[0].ChangeReason, "1.1.0") {
		t.Errorf("auto-archive reason should name the superseding version: %q", aHist[0].ChangeReason)
	}

	bHist, bTotal, _ := s.GetHistory(ctx, b.ID, 0, 100)
	if bTotal != bHistBefore+1 {
		t.Fatalf("b history rows = %d, want %d", bTotal, bHistBefore+1)
	}
	if bHist[0].ChangeReason != "set_as_live_version" {
		t.Errorf("b latest reason = %q", bHist[0].ChangeReason)
	}
	if bHist[0].ChangedBy != "bob@example.com" {
		t.Errorf("activation actor = %q", bHist[0].ChangedBy)
	}
}

func TestActivateIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := mustCreate(t, s, "support", "1.0.0")
	first, err := s.Activate(ctx, p.ID, "alice@example.com")
	if err != nil {
		t.Fatalf("first activate: %v", err)
	}
	_, totalBefore, _ := s.GetHistory(ctx, p.ID, 0, 100)

	time.Sleep(2 * time.Millisecond)
	second, err := s.Activate(ctx, p.ID, "alice@example.com")
	if err != nil {
		t.Fatalf("second activate: %v", err)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("updated_at changed on idempotent activation: %v vs %v", second.UpdatedAt, first.UpdatedAt)
	}
	_, totalAfter, _ := s.GetHistory(ctx, p.ID, 0, 100)
	if totalAfter != totalBefore {
		t.Errorf("idempotent activation wrote history: %d -> %d", totalBefore, totalAfter)
	}
}

func TestActivateNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Activate(context.Background(), uuid.New(), "alice@example.com")
	if !IsNotFound(err) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
}

func TestSingleLiveInvariantUnderConcurrentActivation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	versions := make([]*models.PromptVersion, 4)
	for i, v := range []string{"1.0.0", "1.1.0", "1.2.0", "1.3.0"} {
		versions[i] = mustCreate(t, s, "support", v)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Activate(ctx, versions[i%len(versions)].ID, "racer"); err != nil {
				t.Errorf("activate: %v", err)
			}
		}(i)
	}
	wg.Wait()

	var liveCount int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM prompts WHERE name=? AND is_live=1`, "support").Scan(&liveCount)
	if err != nil {
		t.Fatalf("count live: %v", err)
	}
	if liveCount != 1 {
		t.Fatalf("live count = %d, want exactly 1", liveCount)
	}

	// Invariant B: the live row reports status live, everything else
	// is draft or archived.
	live, err := s.GetLiveByName(ctx, "support")
	if err != nil {
		t.Fatalf("get live: %v", err)
	}
	if live.Status != models.StatusLive {
		t.Errorf("live row status = %s", live.Status)
	}
}

func TestListVersionsPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, v := range []string{"1.0.0", "1.0.1", "1.0.2", "1.0.3", "1.0.4"} {
		mustCreate(t, s, "paged", v)
	}

	items, total, err := s.ListVersions(ctx, "paged", 0, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || total != 5 {
		t.Fatalf("page 1: %d items, total %d; want 2 and 5", len(items), total)
	}
	// Newest first.
	if items[0].Version != "1.0.4" {
		t.Errorf("first item = %s, want 1.0.4", items[0].Version)
	}

	items, total, err = s.ListVersions(ctx, "paged", 4, 2)
	if err != nil {
		t.Fatalf("list tail: %v", err)
	}
	if len(items) != 1 || total != 5 {
		t.Fatalf("tail page: %d items, total %d; want 1 and 5", len(items), total)
	}
}

func TestUpdateFieldsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := mustCreate(t, s, "support", "1.0.0")
	_, totalBefore, _ := s.GetHistory(ctx, p.ID, 0, 100)

	time.Sleep(2 * time.Millisecond)
	got, err := s.UpdateFields(ctx, p.ID, Patch{
		Content: strPtr(p.Content),
		Tags:    []string{"base"},
	}, "editor@example.com")
	if err != nil {
		t.Fatalf("noop update: %v", err)
	}
	if !got.UpdatedAt.Equal(p.UpdatedAt) {
		t.Errorf("updated_at bumped on noop: %v vs %v", got.UpdatedAt, p.UpdatedAt)
	}
	_, totalAfter, _ := s.GetHistory(ctx, p.ID, 0, 100)
	if totalAfter != totalBefore {
		t.Errorf("noop update wrote history: %d -> %d", totalBefore, totalAfter)
	}
}

func TestUpdateFieldsWritesDiff(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := mustCreate(t, s, "support", "1.0.0")

	got, err := s.UpdateFields(ctx, p.ID, Patch{
		Content:  strPtr("rewritten"),
		Metadata: map[string]any{"env": "prod"},
	}, "editor@example.com")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Content != "rewritten" {
		t.Errorf("content = %q", got.Content)
	}
	if got.Metadata["env"] != "prod" {
		t.Errorf("metadata = %v", got.Metadata)
	}
	if !got.UpdatedAt.After(p.UpdatedAt) {
		t.Errorf("updated_at not bumped: %v <= %v", got.UpdatedAt, p.UpdatedAt)
	}

	hist, total, _ := s.GetHistory(ctx, p.ID, 0, 10)
	if total != 2 {
		t.Fatalf("history rows = %d, want 2", total)
	}
	if !strings.HasPrefix(hist[0].ChangeReason, "update: ") {
		t.Errorf("update reason = %q", hist[0].ChangeReason)
	}
	if !strings.Contains(hist[0].ChangeReason, `"old"`) || !strings.Contains(hist[0].ChangeReason, `"new"`) {
		t.Errorf("update reason lacks old/new diff: %q", hist[0].ChangeReason)
	}
	// The snapshot carries the post-update state.
	if hist[0].Content != "rewritten" {
		t.Errorf("snapshot content = %q", hist[0].Content)
	}
}

func TestSoftDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := mustCreate(t, s, "support", "1.0.0")
	if _, err := s.Activate(ctx, p.ID, "alice"); err != nil {
		t.Fatalf("activate: %v", err)
	}

	if err := s.SoftDelete(ctx, p.ID, "alice"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	got, err := s.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get after soft delete: %v", err)
	}
	if got.Status != models.StatusArchived || got.IsLive {
		t.Fatalf("after soft delete: status=%s is_live=%v", got.Status, got.IsLive)
	}

	// No live version remains, and no replacement is auto-elected.
	if _, err := s.GetLiveByName(ctx, "support"); !IsNotFound(err) {
		t.Errorf("live lookup after soft delete: %v, want NotFoundError", err)
	}

	hist, _, _ := s.GetHistory(ctx, p.ID, 0, 10)
	if !strings.HasPrefix(hist[0].ChangeReason, "delete") {
		t.Errorf("latest reason = %q", hist[0].ChangeReason)
	}
	// The delete snapshot records the pre-archive status.
	if !strings.Contains(hist[0].ChangeReason, "live") {
		t.Errorf("delete reason should carry the old status: %q", hist[0].ChangeReason)
	}
}

func TestHardDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := mustCreate(t, s, "support", "1.0.0")

	if err := s.HardDelete(ctx, p.ID); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if _, err := s.GetByID(ctx, p.ID); !IsNotFound(err) {
		t.Fatalf("get after hard delete: %v, want NotFoundError", err)
	}

	// History outlives the record.
	hist, total, err := s.GetHistory(ctx, p.ID, 0, 10)
	if err != nil {
		t.Fatalf("history after hard delete: %v", err)
	}
	if total != 1 || len(hist) != 1 {
		t.Fatalf("history rows after hard delete = %d, want 1", total)
	}

	if err := s.HardDelete(ctx, p.ID); !IsNotFound(err) {
		t.Errorf("second hard delete: %v, want NotFoundError", err)
	}
}

func TestHardDeleteReferenced(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "prompts.db")
	s, err := NewSQLite(context.Background(), dbPath, func(ctx context.Context, id uuid.UUID) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	p := mustCreate(t, s, "support", "1.0.0")

	if err := s.HardDelete(ctx, p.ID); !IsReferenced(err) {
		t.Fatalf("got %v, want ReferencedError", err)
	}
	if _, err := s.GetByID(ctx, p.ID); err != nil {
		t.Errorf("referenced version must survive: %v", err)
	}
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateVersion(ctx, CreateInput{
		Name: "Coding Assistant", Version: "1.0.0",
		Content:   "You help with Python and Go.",
		Tags:      []string{"code", "golang"},
		Metadata:  map[string]any{"team": "dev"},
		CreatedBy: "alice@example.com",
	})
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := s.CreateVersion(ctx, CreateInput{
		Name: "Cooking Helper", Version: "1.0.0",
		Content:   "You suggest recipes.",
		Tags:      []string{"food"},
		CreatedBy: "bob@example.com",
	}); err != nil {
		t.Fatalf("create b: %v", err)
	}

	// Case-insensitive substring over name, content and description.
	items, total, err := s.Search(ctx, SearchQuery{Text: "python"})
	if err != nil {
		t.Fatalf("text search: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != a.ID {
		t.Fatalf("text search hit = %d rows (total %d)", len(items), total)
	}

	// "coo" is a substring of both "Cooking" and... nothing else here.
	_, total, err = s.Search(ctx, SearchQuery{Text: "COOK"})
	if err != nil {
		t.Fatalf("case search: %v", err)
	}
	if total != 1 {
		t.Fatalf("case-insensitive search total = %d, want 1", total)
	}

	// Tag filter is exact membership, not substring.
	_, total, err = s.Search(ctx, SearchQuery{Tag: "go"})
	if err != nil {
		t.Fatalf("tag search: %v", err)
	}
	if total != 0 {
		t.Fatalf("tag 'go' matched %d rows, want 0 (only 'golang' exists)", total)
	}
	_, total, _ = s.Search(ctx, SearchQuery{Tag: "golang"})
	if total != 1 {
		t.Fatalf("tag 'golang' matched %d rows, want 1", total)
	}

	// Creator filter.
	_, total, _ = s.Search(ctx, SearchQuery{CreatedBy: "bob@example.com"})
	if total != 1 {
		t.Fatalf("created_by filter matched %d rows, want 1", total)
	}

	// Status filter.
	if _, err := s.Activate(ctx, a.ID, "alice"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	_, total, _ = s.Search(ctx, SearchQuery{Status: models.StatusLive})
	if total != 1 {
		t.Fatalf("status=live matched %d rows, want 1", total)
	}
	_, total, _ = s.Search(ctx, SearchQuery{Status: models.StatusDraft})
	if total != 1 {
		t.Fatalf("status=draft matched %d rows, want 1", total)
	}
}

func TestSearchTotalCountsFilteredSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, v := range []string{"1.0.0", "1.0.1", "1.0.2"} {
		mustCreate(t, s, "counted", v)
	}

	items, total, err := s.Search(ctx, SearchQuery{Text: "counted", Limit: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("page size = %d, want 1", len(items))
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3 (pre-pagination)", total)
	}
}

func TestFindLatestByCriteria(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateVersion(ctx, CreateInput{
		Name: "support-bot", Version: "1.0.0", Content: "v1",
		Tags:      []string{"support"},
		Metadata:  map[string]any{"tier": "gold", "region": "eu"},
		CreatedBy: "x",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	newer, err := s.CreateVersion(ctx, CreateInput{
		Name: "support-bot", Version: "1.1.0", Content: "v2",
		Tags:      []string{"support"},
		Metadata:  map[string]any{"tier": "silver"},
		CreatedBy: "x",
	})
	if err != nil {
		t.Fatalf("create newer: %v", err)
	}

	// Name substring, case-insensitive; newest creation wins.
	got, err := s.FindLatestByCriteria(ctx, Criteria{Name: "SUPPORT"})
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	if got.ID != newer.ID {
		t.Errorf("by name = %s, want newest %s", got.Version, newer.Version)
	}

	// Metadata key presence.
	got, err = s.FindLatestByCriteria(ctx, Criteria{MetadataKey: "region"})
	if err != nil {
		t.Fatalf("by metadata key: %v", err)
	}
	if got.Version != "1.0.0" {
		t.Errorf("by metadata key = %s, want 1.0.0", got.Version)
	}

	// Metadata key + exact value.
	got, err = s.FindLatestByCriteria(ctx, Criteria{MetadataKey: "tier", MetadataValue: "gold"})
	if err != nil {
		t.Fatalf("by metadata value: %v", err)
	}
	if got.Version != "1.0.0" {
		t.Errorf("by metadata value = %s, want 1.0.0", got.Version)
	}

	// Tag membership.
	got, err = s.FindLatestByCriteria(ctx, Criteria{Tag: "support"})
	if err != nil {
		t.Fatalf("by tag: %v", err)
	}
	if got.ID != newer.ID {
		t.Errorf("by tag = %s, want newest", got.Version)
	}

	if _, err := s.FindLatestByCriteria(ctx, Criteria{Tag: "missing"}); !IsNotFound(err) {
		t.Errorf("no match: %v, want NotFoundError", err)
	}
}

func TestCreateNewVersionCopiesAndRejectsDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := mustCreate(t, s, "support", "1.0.0")

	nv, err := s.CreateNewVersion(ctx, base.ID, "2.0.0", Patch{Content: strPtr("fresh")}, "alice")
	if err != nil {
		t.Fatalf("create new version: %v", err)
	}
	if nv.Status != models.StatusDraft || nv.IsLive {
		t.Errorf("new version must start draft: status=%s is_live=%v", nv.Status, nv.IsLive)
	}
	if nv.Content != "fresh" {
		t.Errorf("override not applied: %q", nv.Content)
	}
	if len(nv.Tags) != 1 || nv.Tags[0] != "base" {
		t.Errorf("tags not copied from base: %v", nv.Tags)
	}

	if _, err := s.CreateNewVersion(ctx, base.ID, "2.0.0", Patch{}, "alice"); !IsDuplicateVersion(err) {
		t.Errorf("duplicate new version: %v, want DuplicateVersionError", err)
	}
}

func TestCreateAutoIncrementedVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := mustCreate(t, s, "support", "2.3.4")
	nv, err := s.CreateAutoIncrementedVersion(ctx, base.ID, Patch{}, "alice")
	if err != nil {
		t.Fatalf("auto increment: %v", err)
	}
	if nv.Version != "2.3.5" {
		t.Errorf("version = %s, want 2.3.5", nv.Version)
	}

	odd := mustCreate(t, s, "experimental", "beta")
	nv, err = s.CreateAutoIncrementedVersion(ctx, odd.ID, Patch{}, "alice")
	if err != nil {
		t.Fatalf("auto increment odd: %v", err)
	}
	if nv.Version != "beta.1" {
		t.Errorf("version = %s, want beta.1", nv.Version)
	}
}

func TestListLive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "alpha", "1.0.0")
	mustCreate(t, s, "beta", "1.0.0")
	c := mustCreate(t, s, "gamma", "1.0.0")

	for _, id := range []uuid.UUID{a.ID, c.ID} {
		if _, err := s.Activate(ctx, id, "alice"); err != nil {
			t.Fatalf("activate: %v", err)
		}
	}

	live, err := s.ListLive(ctx)
	if err != nil {
		t.Fatalf("list live: %v", err)
	}
	if len(live) != 2 {
		t.Fatalf("live count = %d, want 2", len(live))
	}
	if live[0].Name != "alpha" || live[1].Name != "gamma" {
		t.Errorf("live order = %s, %s", live[0].Name, live[1].Name)
	}
}
