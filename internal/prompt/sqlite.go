package prompt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/models"
)

// SQLite is the local/dev Service backend. It keeps a single writer
// connection (WAL, busy timeout), which also serializes activations per
// store without any extra locking.
type SQLite struct {
	db         *sql.DB
	referenced ReferencedFunc
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS prompts (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		version     TEXT NOT NULL,
		content     TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'draft',
		is_live     INTEGER NOT NULL DEFAULT 0,
		tags        TEXT NOT NULL DEFAULT '[]',
		metadata    TEXT NOT NULL DEFAULT '{}',
		created_by  TEXT NOT NULL,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL,
		UNIQUE (name, version)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_prompts_live
		ON prompts(name) WHERE is_live = 1;

	CREATE INDEX IF NOT EXISTS idx_prompts_name ON prompts(name);

	CREATE TABLE IF NOT EXISTS prompt_history (
		id            TEXT PRIMARY KEY,
		prompt_id     TEXT NOT NULL,
		version       TEXT NOT NULL,
		content       TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		tags          TEXT NOT NULL DEFAULT '[]',
		metadata      TEXT NOT NULL DEFAULT '{}',
		changed_by    TEXT NOT NULL,
		change_reason TEXT NOT NULL DEFAULT '',
		changed_at    INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_prompt ON prompt_history(prompt_id, changed_at);
`

// NewSQLite opens (or creates) the database at path and initializes the
// schema. prompt_history carries no foreign key: history must survive hard
// deletion of the version it describes.
func NewSQLite(ctx context.Context, path string, referenced ReferencedFunc) (*SQLite, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite does not tolerate concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLite{db: db, referenced: referenced}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// DB exposes the underlying handle so other stores can share the file.
func (s *SQLite) DB() *sql.DB { return s.db }

func isSQLiteUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func scanVersionLite(row rowScanner) (*models.PromptVersion, error) {
	var p models.PromptVersion
	var tags, meta []byte
	var createdAt, updatedAt int64
	err := row.Scan(&p.ID, &p.Name, &p.Version, &p.Content, &p.Description, &p.Status,
		&p.IsLive, &tags, &meta, &p.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if p.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	if p.Metadata, err = decodeMetadata(meta); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &p, nil
}

func scanHistoryLite(row rowScanner) (*models.PromptHistory, error) {
	var h models.PromptHistory
	var tags, meta []byte
	var changedAt int64
	err := row.Scan(&h.ID, &h.PromptID, &h.Version, &h.Content, &h.Description, &h.Status,
		&tags, &meta, &h.ChangedBy, &h.ChangeReason, &changedAt)
	if err != nil {
		return nil, err
	}
	if h.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	if h.Metadata, err = decodeMetadata(meta); err != nil {
		return nil, err
	}
	h.ChangedAt = time.Unix(0, changedAt).UTC()
	return &h, nil
}

type liteQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) getOne(ctx context.Context, q liteQuerier, resource, key, query string, args ...any) (*models.PromptVersion, error) {
	p, err := scanVersionLite(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: resource, Key: key}
	}
	if err != nil {
		return nil, storeErr("get "+resource, err)
	}
	return p, nil
}

func insertVersionLite(ctx context.Context, tx *sql.Tx, p *models.PromptVersion) error {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}
	meta, err := encodeMetadata(p.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO prompts (id, name, version, content, description, status, is_live, tags, metadata, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Version, p.Content, p.Description, p.Status, p.IsLive,
		tags, meta, p.CreatedBy, p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano(),
	)
	return err
}

func insertHistoryLite(ctx context.Context, tx *sql.Tx, h models.PromptHistory) error {
	tags, err := encodeTags(h.Tags)
	if err != nil {
		return err
	}
	meta, err := encodeMetadata(h.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO prompt_history (id, prompt_id, version, content, description, status, tags, metadata, changed_by, change_reason, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.PromptID, h.Version, h.Content, h.Description, h.Status,
		tags, meta, h.ChangedBy, h.ChangeReason, h.ChangedAt.UnixNano(),
	)
	return err
}

func updateVersionLite(ctx context.Context, tx *sql.Tx, p *models.PromptVersion) error {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}
	meta, err := encodeMetadata(p.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE prompts SET content=?, description=?, status=?, is_live=?, tags=?, metadata=?, updated_at=?
		 WHERE id=?`,
		p.Content, p.Description, p.Status, p.IsLive, tags, meta, p.UpdatedAt.UnixNano(), p.ID,
	)
	return err
}

func (s *SQLite) CreateVersion(ctx context.Context, in CreateInput) (*models.PromptVersion, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &models.PromptVersion{
		ID:          uuid.New(),
		Name:        in.Name,
		Version:     in.Version,
		Content:     in.Content,
		Description: in.Description,
		Status:      models.StatusDraft,
		IsLive:      false,
		Tags:        in.Tags,
		Metadata:    in.Metadata,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Metadata == nil {
		p.Metadata = map[string]any{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin tx", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM prompts WHERE name=? AND version=?)`,
		in.Name, in.Version,
	).Scan(&exists)
	if err != nil {
		return nil, storeErr("check duplicate version", err)
	}
	if exists {
		return nil, &DuplicateVersionError{Name: in.Name, Version: in.Version}
	}

	if err := insertVersionLite(ctx, tx, p); err != nil {
		if isSQLiteUnique(err) {
			return nil, &DuplicateVersionError{Name: in.Name, Version: in.Version}
		}
		return nil, storeErr("insert prompt", err)
	}

	reason := changeReason(actionCreate, map[string]any{"status": string(models.StatusDraft)})
	if err := insertHistoryLite(ctx, tx, snapshotOf(p, in.CreatedBy, reason, now)); err != nil {
		return nil, storeErr("insert history", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit", err)
	}
	return p, nil
}

func (s *SQLite) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptVersion, error) {
	return s.getOne(ctx, s.db, "prompt", id.String(),
		`SELECT `+promptCols+` FROM prompts WHERE id=?`, id)
}

func (s *SQLite) GetByNameVersion(ctx context.Context, name, version string) (*models.PromptVersion, error) {
	return s.getOne(ctx, s.db, "prompt version", name+"@"+version,
		`SELECT `+promptCols+` FROM prompts WHERE name=? AND version=?`, name, version)
}

func (s *SQLite) GetLatestByName(ctx context.Context, name string) (*models.PromptVersion, error) {
	return s.getOne(ctx, s.db, "prompt", name,
		`SELECT `+promptCols+` FROM prompts WHERE name=? ORDER BY created_at DESC, id DESC LIMIT 1`, name)
}

func (s *SQLite) GetLatestByVersionOrder(ctx context.Context, name string) (*models.PromptVersion, error) {
	return s.getOne(ctx, s.db, "prompt", name,
		`SELECT `+promptCols+` FROM prompts WHERE name=? ORDER BY version DESC LIMIT 1`, name)
}

func (s *SQLite) GetLiveByName(ctx context.Context, name string) (*models.PromptVersion, error) {
	return s.getOne(ctx, s.db, "live version", name,
		`SELECT `+promptCols+` FROM prompts WHERE name=? AND is_live=1 LIMIT 1`, name)
}

func (s *SQLite) ListLive(ctx context.Context) ([]models.PromptVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+promptCols+` FROM prompts WHERE is_live=1 AND status=? ORDER BY name`,
		models.StatusLive)
	if err != nil {
		return nil, storeErr("list live prompts", err)
	}
	defer rows.Close()
	return collectVersionsLite(rows)
}

func collectVersionsLite(rows *sql.Rows) ([]models.PromptVersion, error) {
	var out []models.PromptVersion
	for rows.Next() {
		p, err := scanVersionLite(rows)
		if err != nil {
			return nil, storeErr("scan prompt", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate prompts", err)
	}
	return out, nil
}

func (s *SQLite) ListVersions(ctx context.Context, name string, offset, limit int) ([]models.PromptVersion, int, error) {
	offset, limit = normalizePage(offset, limit)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts WHERE name=?`, name).Scan(&total); err != nil {
		return nil, 0, storeErr("count versions", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+promptCols+` FROM prompts WHERE name=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		name, limit, offset)
	if err != nil {
		return nil, 0, storeErr("list versions", err)
	}
	defer rows.Close()

	items, err := collectVersionsLite(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *SQLite) UpdateFields(ctx context.Context, id uuid.UUID, patch Patch, updatedBy string) (*models.PromptVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin tx", err)
	}
	defer tx.Rollback()

	cur, err := s.getOne(ctx, tx, "prompt", id.String(),
		`SELECT `+promptCols+` FROM prompts WHERE id=?`, id)
	if err != nil {
		return nil, err
	}

	changes := diffPatch(cur, patch)
	if len(changes) == 0 {
		return cur, nil
	}

	applyPatch(cur, patch)
	now := time.Now().UTC()
	cur.UpdatedAt = now

	if err := updateVersionLite(ctx, tx, cur); err != nil {
		return nil, storeErr("update prompt", err)
	}
	if err := insertHistoryLite(ctx, tx, snapshotOf(cur, updatedBy, changeReason(actionUpdate, changes), now)); err != nil {
		return nil, storeErr("insert history", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit", err)
	}
	return cur, nil
}

func (s *SQLite) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin tx", err)
	}
	defer tx.Rollback()

	cur, err := s.getOne(ctx, tx, "prompt", id.String(),
		`SELECT `+promptCols+` FROM prompts WHERE id=?`, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	reason := changeReason(actionDelete, map[string]any{"status": string(cur.Status)})
	if err := insertHistoryLite(ctx, tx, snapshotOf(cur, deletedBy, reason, now)); err != nil {
		return storeErr("insert history", err)
	}

	cur.Status = models.StatusArchived
	cur.IsLive = false
	cur.UpdatedAt = now
	if err := updateVersionLite(ctx, tx, cur); err != nil {
		return storeErr("archive prompt", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}
	return nil
}

func (s *SQLite) HardDelete(ctx context.Context, id uuid.UUID) error {
	if s.referenced != nil {
		ref, err := s.referenced(ctx, id)
		if err != nil {
			return storeErr("referenced check", err)
		}
		if ref {
			return &ReferencedError{ID: id}
		}
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM prompts WHERE id=?`, id)
	if err != nil {
		return storeErr("delete prompt", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete prompt", err)
	}
	if n == 0 {
		return &NotFoundError{Resource: "prompt", Key: id.String()}
	}
	return nil
}

func (s *SQLite) GetHistory(ctx context.Context, promptID uuid.UUID, offset, limit int) ([]models.PromptHistory, int, error) {
	offset, limit = normalizePage(offset, limit)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompt_history WHERE prompt_id=?`, promptID).Scan(&total); err != nil {
		return nil, 0, storeErr("count history", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyCols+` FROM prompt_history WHERE prompt_id=? ORDER BY changed_at DESC, id DESC LIMIT ? OFFSET ?`,
		promptID, limit, offset)
	if err != nil {
		return nil, 0, storeErr("list history", err)
	}
	defer rows.Close()

	var out []models.PromptHistory
	for rows.Next() {
		h, err := scanHistoryLite(rows)
		if err != nil {
			return nil, 0, storeErr("scan history", err)
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeErr("iterate history", err)
	}
	return out, total, nil
}

func (s *SQLite) Search(ctx context.Context, q SearchQuery) ([]models.PromptVersion, int, error) {
	offset, limit := normalizePage(q.Offset, q.Limit)

	where := " WHERE 1=1"
	args := []any{}

	if q.Text != "" {
		where += ` AND (lower(name) LIKE '%'||lower(?)||'%' OR lower(content) LIKE '%'||lower(?)||'%' OR lower(description) LIKE '%'||lower(?)||'%')`
		args = append(args, q.Text, q.Text, q.Text)
	}
	if q.Status != "" {
		where += ` AND status = ?`
		args = append(args, q.Status)
	}
	if q.Tag != "" {
		where += ` AND EXISTS (SELECT 1 FROM json_each(prompts.tags) WHERE json_each.value = ?)`
		args = append(args, q.Tag)
	}
	if q.CreatedBy != "" {
		where += ` AND created_by = ?`
		args = append(args, q.CreatedBy)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts`+where, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("count search", err)
	}

	query := `SELECT ` + promptCols + ` FROM prompts` + where + ` ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, storeErr("search prompts", err)
	}
	defer rows.Close()

	items, err := collectVersionsLite(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *SQLite) FindLatestByCriteria(ctx context.Context, c Criteria) (*models.PromptVersion, error) {
	where := " WHERE 1=1"
	args := []any{}

	if c.Name != "" {
		where += ` AND lower(name) LIKE '%'||lower(?)||'%'`
		args = append(args, c.Name)
	}
	if c.Tag != "" {
		where += ` AND EXISTS (SELECT 1 FROM json_each(prompts.tags) WHERE json_each.value = ?)`
		args = append(args, c.Tag)
	}
	if c.MetadataKey != "" {
		if c.MetadataValue != "" {
			where += ` AND json_extract(metadata, '$.' || ?) = ?`
			args = append(args, c.MetadataKey, c.MetadataValue)
		} else {
			where += ` AND json_extract(metadata, '$.' || ?) IS NOT NULL`
			args = append(args, c.MetadataKey)
		}
	}

	return s.getOne(ctx, s.db, "prompt", "criteria",
		`SELECT `+promptCols+` FROM prompts`+where+` ORDER BY created_at DESC, id DESC LIMIT 1`, args...)
}

func (s *SQLite) Activate(ctx context.Context, id uuid.UUID, actor string) (*models.PromptVersion, error) {
	// The single-connection pool serializes concurrent activations; the
	// whole hand-off runs on one writer transaction.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin tx", err)
	}
	defer tx.Rollback()

	target, err := s.getOne(ctx, tx, "prompt", id.String(),
		`SELECT `+promptCols+` FROM prompts WHERE id=?`, id)
	if err != nil {
		return nil, err
	}

	if target.IsLive && target.Status == models.StatusLive {
		// Already live: idempotent no-op, no history entry.
		return target, nil
	}

	now := time.Now().UTC()

	prior, err := s.getOne(ctx, tx, "live version", target.Name,
		`SELECT `+promptCols+` FROM prompts WHERE name=? AND is_live=1 AND id<>?`,
		target.Name, target.ID)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if prior != nil {
		prior.Status = models.StatusArchived
		prior.IsLive = false
		prior.UpdatedAt = now
		if err := updateVersionLite(ctx, tx, prior); err != nil {
			return nil, storeErr("archive prior live version", err)
		}
		reason := changeReason(actionAutoArchived, map[string]any{
			"status": "live -> archived",
			"reason": "replaced by v" + target.Version,
		})
		if err := insertHistoryLite(ctx, tx, snapshotOf(prior, SystemActor, reason, now)); err != nil {
			return nil, storeErr("insert history", err)
		}
	}

	target.Status = models.StatusLive
	target.IsLive = true
	target.UpdatedAt = now
	if err := updateVersionLite(ctx, tx, target); err != nil {
		return nil, storeErr("set live version", err)
	}
	if err := insertHistoryLite(ctx, tx, snapshotOf(target, actor, actionSetLive, now)); err != nil {
		return nil, storeErr("insert history", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit", err)
	}
	return target, nil
}

func (s *SQLite) CreateNewVersion(ctx context.Context, baseID uuid.UUID, version string, overrides Patch, createdBy string) (*models.PromptVersion, error) {
	base, err := s.GetByID(ctx, baseID)
	if err != nil {
		return nil, err
	}
	return s.CreateVersion(ctx, overrideCreate(base, version, overrides, createdBy))
}

func (s *SQLite) CreateAutoIncrementedVersion(ctx context.Context, baseID uuid.UUID, overrides Patch, createdBy string) (*models.PromptVersion, error) {
	base, err := s.GetByID(ctx, baseID)
	if err != nil {
		return nil, err
	}
	latest, err := s.GetLatestByName(ctx, base.Name)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		latest = base
	}
	return s.CreateVersion(ctx, overrideCreate(base, NextVersion(latest.Version), overrides, createdBy))
}
