package prompt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/models"
)

const promptCols = `id, name, version, content, description, status, is_live, tags, metadata, created_by, created_at, updated_at`

const historyCols = `id, prompt_id, version, content, description, status, tags, metadata, changed_by, change_reason, changed_at`

// Postgres is the production Service backend on top of a pgx pool.
type Postgres struct {
	db         *pgxpool.Pool
	referenced ReferencedFunc
}

func NewPostgres(db *pgxpool.Pool, referenced ReferencedFunc) *Postgres {
	return &Postgres{db: db, referenced: referenced}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*models.PromptVersion, error) {
	var p models.PromptVersion
	var tags, meta []byte
	err := row.Scan(&p.ID, &p.Name, &p.Version, &p.Content, &p.Description, &p.Status,
		&p.IsLive, &tags, &meta, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	if p.Metadata, err = decodeMetadata(meta); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanHistory(row rowScanner) (*models.PromptHistory, error) {
	var h models.PromptHistory
	var tags, meta []byte
	err := row.Scan(&h.ID, &h.PromptID, &h.Version, &h.Content, &h.Description, &h.Status,
		&tags, &meta, &h.ChangedBy, &h.ChangeReason, &h.ChangedAt)
	if err != nil {
		return nil, err
	}
	if h.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	if h.Metadata, err = decodeMetadata(meta); err != nil {
		return nil, err
	}
	return &h, nil
}

func isPgUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Postgres) getOne(ctx context.Context, q pgQuerier, resource, key, query string, args ...any) (*models.PromptVersion, error) {
	p, err := scanVersion(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: resource, Key: key}
	}
	if err != nil {
		return nil, storeErr("get "+resource, err)
	}
	return p, nil
}

func insertVersionPG(ctx context.Context, tx pgx.Tx, p *models.PromptVersion) error {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}
	meta, err := encodeMetadata(p.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO prompts (id, name, version, content, description, status, is_live, tags, metadata, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Name, p.Version, p.Content, p.Description, p.Status, p.IsLive,
		tags, meta, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func insertHistoryPG(ctx context.Context, tx pgx.Tx, h models.PromptHistory) error {
	tags, err := encodeTags(h.Tags)
	if err != nil {
		return err
	}
	meta, err := encodeMetadata(h.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO prompt_history (id, prompt_id, version, content, description, status, tags, metadata, changed_by, change_reason, changed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		h.ID, h.PromptID, h.Version, h.Content, h.Description, h.Status,
		tags, meta, h.ChangedBy, h.ChangeReason, h.ChangedAt,
	)
	return err
}

func updateVersionPG(ctx context.Context, tx pgx.Tx, p *models.PromptVersion) error {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}
	meta, err := encodeMetadata(p.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE prompts SET content=$2, description=$3, status=$4, is_live=$5, tags=$6, metadata=$7, updated_at=$8
		 WHERE id=$1`,
		p.ID, p.Content, p.Description, p.Status, p.IsLive, tags, meta, p.UpdatedAt,
	)
	return err
}

func (s *Postgres) CreateVersion(ctx context.Context, in CreateInput) (*models.PromptVersion, error) {
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

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM prompts WHERE name=$1 AND version=$2)`,
		in.Name, in.Version,
	).Scan(&exists)
	if err != nil {
		return nil, storeErr("check duplicate version", err)
	}
	if exists {
		return nil, &DuplicateVersionError{Name: in.Name, Version: in.Version}
	}

	if err := insertVersionPG(ctx, tx, p); err != nil {
		if isPgUnique(err) {
			return nil, &DuplicateVersionError{Name: in.Name, Version: in.Version}
		}
		return nil, storeErr("insert prompt", err)
	}

	reason := changeReason(actionCreate, map[string]any{"status": string(models.StatusDraft)})
	if err := insertHistoryPG(ctx, tx, snapshotOf(p, in.CreatedBy, reason, now)); err != nil {
		return nil, storeErr("insert history", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit", err)
	}
	return p, nil
}

func (s *Postgres) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptVersion, error) {
	return s.getOne(ctx, s.db, "prompt", id.String(),
		`SELECT `+promptCols+` FROM prompts WHERE id=$1`, id)
}

func (s *Postgres) GetByNameVersion(ctx context.Context, name, version string) (*models.PromptVersion, error) {
	return s.getOne(ctx, s.db, "prompt version", name+"@"+version,
		`SELECT `+promptCols+` FROM prompts WHERE name=$1 AND version=$2`, name, version)
}

func (s *Postgres) GetLatestByName(ctx context.Context, name string) (*models.PromptVersion, error) {
	return s.getOne(ctx, s.db, "prompt", name,
		`SELECT `+promptCols+` FROM prompts WHERE name=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, name)
}

func (s *Postgres) GetLatestByVersionOrder(ctx context.Context, name string) (*models.PromptVersion, error) {
	return s.getOne(ctx, s.db, "prompt", name,
		`SELECT `+promptCols+` FROM prompts WHERE name=$1 ORDER BY version DESC LIMIT 1`, name)
}

func (s *Postgres) GetLiveByName(ctx context.Context, name string) (*models.PromptVersion, error) {
	return s.getOne(ctx, s.db, "live version", name,
		`SELECT `+promptCols+` FROM prompts WHERE name=$1 AND is_live=true LIMIT 1`, name)
}

func (s *Postgres) ListLive(ctx context.Context) ([]models.PromptVersion, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+promptCols+` FROM prompts WHERE is_live=true AND status=$1 ORDER BY name`,
		models.StatusLive)
	if err != nil {
		return nil, storeErr("list live prompts", err)
	}
	defer rows.Close()
	return collectVersions(rows)
}

func collectVersions(rows pgx.Rows) ([]models.PromptVersion, error) {
	var out []models.PromptVersion
	for rows.Next() {
		p, err := scanVersion(rows)
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

func (s *Postgres) ListVersions(ctx context.Context, name string, offset, limit int) ([]models.PromptVersion, int, error) {
	offset, limit = normalizePage(offset, limit)

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM prompts WHERE name=$1`, name).Scan(&total); err != nil {
		return nil, 0, storeErr("count versions", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+promptCols+` FROM prompts WHERE name=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		name, limit, offset)
	if err != nil {
		return nil, 0, storeErr("list versions", err)
	}
	defer rows.Close()

	items, err := collectVersions(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Postgres) UpdateFields(ctx context.Context, id uuid.UUID, patch Patch, updatedBy string) (*models.PromptVersion, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	cur, err := s.getOne(ctx, tx, "prompt", id.String(),
		`SELECT `+promptCols+` FROM prompts WHERE id=$1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}

	changes := diffPatch(cur, patch)
	if len(changes) == 0 {
		// Nothing actually changed: no updated_at bump, no history row.
		return cur, nil
	}

	applyPatch(cur, patch)
	now := time.Now().UTC()
	cur.UpdatedAt = now

	if err := updateVersionPG(ctx, tx, cur); err != nil {
		return nil, storeErr("update prompt", err)
	}
	if err := insertHistoryPG(ctx, tx, snapshotOf(cur, updatedBy, changeReason(actionUpdate, changes), now)); err != nil {
		return nil, storeErr("insert history", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit", err)
	}
	return cur, nil
}

func (s *Postgres) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	cur, err := s.getOne(ctx, tx, "prompt", id.String(),
		`SELECT `+promptCols+` FROM prompts WHERE id=$1 FOR UPDATE`, id)
	if err != nil {
		return err
	}

	// Snapshot the pre-archive state so the history row records what was
	// deleted, not the tombstone.
	now := time.Now().UTC()
	reason := changeReason(actionDelete, map[string]any{"status": string(cur.Status)})
	if err := insertHistoryPG(ctx, tx, snapshotOf(cur, deletedBy, reason, now)); err != nil {
		return storeErr("insert history", err)
	}

	cur.Status = models.StatusArchived
	cur.IsLive = false
	cur.UpdatedAt = now
	if err := updateVersionPG(ctx, tx, cur); err != nil {
		return storeErr("archive prompt", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit", err)
	}
	return nil
}

func (s *Postgres) HardDelete(ctx context.Context, id uuid.UUID) error {
	if s.referenced != nil {
		ref, err := s.referenced(ctx, id)
		if err != nil {
			return storeErr("referenced check", err)
		}
		if ref {
			return &ReferencedError{ID: id}
		}
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM prompts WHERE id=$1`, id)
	if err != nil {
		return storeErr("delete prompt", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "prompt", Key: id.String()}
	}
	return nil
}

func (s *Postgres) GetHistory(ctx context.Context, promptID uuid.UUID, offset, limit int) ([]models.PromptHistory, int, error) {
	offset, limit = normalizePage(offset, limit)

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM prompt_history WHERE prompt_id=$1`, promptID).Scan(&total); err != nil {
		return nil, 0, storeErr("count history", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+historyCols+` FROM prompt_history WHERE prompt_id=$1 ORDER BY changed_at DESC, id DESC LIMIT $2 OFFSET $3`,
		promptID, limit, offset)
	if err != nil {
		return nil, 0, storeErr("list history", err)
	}
	defer rows.Close()

	var out []models.PromptHistory
	for rows.Next() {
		h, err := scanHistory(rows)
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

func (s *Postgres) Search(ctx context.Context, q SearchQuery) ([]models.PromptVersion, int, error) {
	offset, limit := normalizePage(q.Offset, q.Limit)

	where := " WHERE 1=1"
	args := []any{}
	argIdx := 1

	if q.Text != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR content ILIKE $%d OR description ILIKE $%d)", argIdx, argIdx, argIdx)
		args = append(args, "%"+q.Text+"%")
		argIdx++
	}
	if q.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, q.Status)
		argIdx++
	}
	if q.Tag != "" {
		where += fmt.Sprintf(" AND tags @> jsonb_build_array($%d::text)", argIdx)
		args = append(args, q.Tag)
		argIdx++
	}
	if q.CreatedBy != "" {
		where += fmt.Sprintf(" AND created_by = $%d", argIdx)
		args = append(args, q.CreatedBy)
		argIdx++
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM prompts`+where, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("count search", err)
	}

	query := `SELECT ` + promptCols + ` FROM prompts` + where +
		fmt.Sprintf(" ORDER BY updated_at DESC, id DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, storeErr("search prompts", err)
	}
	defer rows.Close()

	items, err := collectVersions(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Postgres) FindLatestByCriteria(ctx context.Context, c Criteria) (*models.PromptVersion, error) {
	where := " WHERE 1=1"
	args := []any{}
	argIdx := 1

	if c.Name != "" {
		where += fmt.Sprintf(" AND name ILIKE $%d", argIdx)
		args = append(args, "%"+c.Name+"%")
		argIdx++
	}
	if c.Tag != "" {
		where += fmt.Sprintf(" AND tags @> jsonb_build_array($%d::text)", argIdx)
		args = append(args, c.Tag)
		argIdx++
	}
	if c.MetadataKey != "" {
		if c.MetadataValue != "" {
			where += fmt.Sprintf(" AND metadata->>$%d = $%d", argIdx, argIdx+1)
			args = append(args, c.MetadataKey, c.MetadataValue)
			argIdx += 2
		} else {
			where += fmt.Sprintf(" AND metadata ? $%d", argIdx)
			args = append(args, c.MetadataKey)
			argIdx++
		}
	}

	return s.getOne(ctx, s.db, "prompt", "criteria",
		`SELECT `+promptCols+` FROM prompts`+where+` ORDER BY created_at DESC, id DESC LIMIT 1`, args...)
}

func (s *Postgres) Activate(ctx context.Context, id uuid.UUID, actor string) (*models.PromptVersion, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	// Resolve the name without locking the row: the advisory lock must be
	// taken before any row lock, or two activations on the same name can
	// deadlock (one holding the target row, the other the name lock).
	var name string
	if err := tx.QueryRow(ctx, `SELECT name FROM prompts WHERE id=$1`, id).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "prompt", Key: id.String()}
		}
		return nil, storeErr("get prompt", err)
	}

	// Serialize activations per name. Row locks alone cannot stop two
	// transactions from promoting different versions of the same name when
	// no version is currently live.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "prompt_live:"+name); err != nil {
		return nil, storeErr("acquire name lock", err)
	}

	target, err := s.getOne(ctx, tx, "prompt", id.String(),
		`SELECT `+promptCols+` FROM prompts WHERE id=$1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}

	if target.IsLive && target.Status == models.StatusLive {
		// Already live: idempotent no-op, no history entry.
		return target, nil
	}

	now := time.Now().UTC()

	prior, err := s.getOne(ctx, tx, "live version", target.Name,
		`SELECT `+promptCols+` FROM prompts WHERE name=$1 AND is_live=true AND id<>$2 FOR UPDATE`,
		target.Name, target.ID)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if prior != nil {
		prior.Status = models.StatusArchived
		prior.IsLive = false
		prior.UpdatedAt = now
		if err := updateVersionPG(ctx, tx, prior); err != nil {
			return nil, storeErr("archive prior live version", err)
		}
		reason := changeReason(actionAutoArchived, map[string]any{
			"status": "live -> archived",
			"reason": "replaced by v" + target.Version,
		})
		if err := insertHistoryPG(ctx, tx, snapshotOf(prior, SystemActor, reason, now)); err != nil {
			return nil, storeErr("insert history", err)
		}
	}

	target.Status = models.StatusLive
	target.IsLive = true
	target.UpdatedAt = now
	if err := updateVersionPG(ctx, tx, target); err != nil {
		return nil, storeErr("set live version", err)
	}
	if err := insertHistoryPG(ctx, tx, snapshotOf(target, actor, actionSetLive, now)); err != nil {
		return nil, storeErr("insert history", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit", err)
	}
	return target, nil
}

func (s *Postgres) CreateNewVersion(ctx context.Context, baseID uuid.UUID, version string, overrides Patch, createdBy string) (*models.PromptVersion, error) {
	base, err := s.GetByID(ctx, baseID)
	if err != nil {
		return nil, err
	}
	return s.CreateVersion(ctx, overrideCreate(base, version, overrides, createdBy))
}

func (s *Postgres) CreateAutoIncrementedVersion(ctx context.Context, baseID uuid.UUID, overrides Patch, createdBy string) (*models.PromptVersion, error) {
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
