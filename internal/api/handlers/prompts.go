package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/auth"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/cache"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/models"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/prompt"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/webhook"
)

// EventDispatcher fans lifecycle events out to registered webhooks.
// Nil-safe wiring: deployments without redis run with no dispatcher.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event string, payload interface{}) error
}

type PromptHandler struct {
	svc    prompt.Service
	live   *cache.LivePrompts
	events EventDispatcher
}

func NewPromptHandler(svc prompt.Service, live *cache.LivePrompts, events EventDispatcher) *PromptHandler {
	return &PromptHandler{svc: svc, live: live, events: events}
}

type createRequest struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Content     string         `json:"content"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
	CreatedBy   string         `json:"created_by"`
}

type patchRequest struct {
	Content     *string        `json:"content"`
	Description *string        `json:"description"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
}

type newVersionRequest struct {
	Version string `json:"version"`
	patchRequest
}

func (r patchRequest) patch() prompt.Patch {
	return prompt.Patch{
		Content:     r.Content,
		Description: r.Description,
		Tags:        r.Tags,
		Metadata:    r.Metadata,
	}
}

// actor resolves the identity recorded in history: the authenticated
// user when present, else the explicit request field.
func actor(r *http.Request, fallback string) string {
	if a := auth.ActorFromContext(r.Context()); a != "" {
		return a
	}
	return fallback
}

func (h *PromptHandler) dispatch(ctx context.Context, event string, v *models.PromptVersion) {
	if h.events == nil {
		return
	}
	if err := h.events.Dispatch(ctx, event, v); err != nil {
		slog.Error("dispatch lifecycle event", "event", event, "error", err)
	}
}

func pageParams(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return offset, limit
}

func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	v, err := h.svc.CreateVersion(r.Context(), prompt.CreateInput{
		Name:        req.Name,
		Version:     req.Version,
		Content:     req.Content,
		Description: req.Description,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
		CreatedBy:   actor(r, req.CreatedBy),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.dispatch(r.Context(), webhook.EventPromptCreated, v)
	writeJSON(w, http.StatusCreated, v)
}

func (h *PromptHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, limit := pageParams(r)

	query := prompt.SearchQuery{
		Text:      q.Get("q"),
		Status:    models.PromptStatus(q.Get("status")),
		Tag:       q.Get("tag"),
		CreatedBy: q.Get("created_by"),
		Offset:    offset,
		Limit:     limit,
	}
	if query.Status != "" && !query.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
		return
	}

	items, total, err := h.svc.Search(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"prompts": items,
		"total":   total,
		"offset":  offset,
		"limit":   limit,
	})
}

func (h *PromptHandler) ListLive(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListLive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"prompts": items, "count": len(items)})
}

func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	v, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *PromptHandler) GetByNameVersion(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetByNameVersion(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "version"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// LatestByName returns the most recently created version by default;
// ?order=version switches to lexical version ordering.
func (h *PromptHandler) LatestByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var (
		v   *models.PromptVersion
		err error
	)
	if r.URL.Query().Get("order") == "version" {
		v, err = h.svc.GetLatestByVersionOrder(r.Context(), name)
	} else {
		v, err = h.svc.GetLatestByName(r.Context(), name)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *PromptHandler) LiveByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if v, err := h.live.Get(r.Context(), name); err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}

	v, err := h.svc.GetLiveByName(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.live.Set(r.Context(), v); err != nil {
		slog.Warn("cache live prompt", "name", name, "error", err)
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *PromptHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)

	items, total, err := h.svc.ListVersions(r.Context(), chi.URLParam(r, "name"), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"versions": items,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

func (h *PromptHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}
	h.activate(w, r, id)
}

func (h *PromptHandler) ActivateByNameVersion(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetByNameVersion(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "version"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.activate(w, r, v.ID)
}

func (h *PromptHandler) activate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	v, err := h.svc.Activate(r.Context(), id, actor(r, prompt.SystemActor))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.live.Invalidate(r.Context(), v.Name); err != nil {
		slog.Warn("invalidate live cache", "name", v.Name, "error", err)
	}
	h.dispatch(r.Context(), webhook.EventPromptActivated, v)
	writeJSON(w, http.StatusOK, v)
}

func (h *PromptHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	v, err := h.svc.UpdateFields(r.Context(), id, req.patch(), actor(r, prompt.SystemActor))
	if err != nil {
		writeError(w, err)
		return
	}

	if v.IsLive {
		if err := h.live.Invalidate(r.Context(), v.Name); err != nil {
			slog.Warn("invalidate live cache", "name", v.Name, "error", err)
		}
	}
	h.dispatch(r.Context(), webhook.EventPromptUpdated, v)
	writeJSON(w, http.StatusOK, v)
}

// CreateVersionFrom creates a new version of an existing prompt with an
// explicit version string; fields not overridden are copied from the base.
func (h *PromptHandler) CreateVersionFrom(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	var req newVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Version == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "version required"})
		return
	}

	v, err := h.svc.CreateNewVersion(r.Context(), id, req.Version, req.patch(), actor(r, prompt.SystemActor))
	if err != nil {
		writeError(w, err)
		return
	}

	h.dispatch(r.Context(), webhook.EventPromptCreated, v)
	writeJSON(w, http.StatusCreated, v)
}

// AutoIncrementFrom creates a new version with an auto-derived version
// string based on the latest version of the same name.
func (h *PromptHandler) AutoIncrementFrom(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	v, err := h.svc.CreateAutoIncrementedVersion(r.Context(), id, req.patch(), actor(r, prompt.SystemActor))
	if err != nil {
		writeError(w, err)
		return
	}

	h.dispatch(r.Context(), webhook.EventPromptCreated, v)
	writeJSON(w, http.StatusCreated, v)
}

// Delete archives the version; ?force=true removes the record entirely
// while its history is kept.
func (h *PromptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	v, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	if force {
		err = h.svc.HardDelete(r.Context(), id)
	} else {
		err = h.svc.SoftDelete(r.Context(), id, actor(r, prompt.SystemActor))
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if v.IsLive {
		if err := h.live.Invalidate(r.Context(), v.Name); err != nil {
			slog.Warn("invalidate live cache", "name", v.Name, "error", err)
		}
	}
	event := webhook.EventPromptArchived
	if force {
		event = webhook.EventPromptDeleted
	}
	h.dispatch(r.Context(), event, v)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *PromptHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	offset, limit := pageParams(r)
	items, total, err := h.svc.GetHistory(r.Context(), id, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": items,
		"total":   total,
		"offset":  offset,
		"limit":   limit,
	})
}

// SearchLatest finds the newest version matching name/tag/metadata criteria.
// At least one criterion is required; an unfiltered lookup would just return
// the globally newest prompt.
func (h *PromptHandler) SearchLatest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c := prompt.Criteria{
		Name:          q.Get("name"),
		Tag:           q.Get("tag"),
		MetadataKey:   q.Get("metadata_key"),
		MetadataValue: q.Get("metadata_value"),
	}
	if c.Name == "" && c.Tag == "" && c.MetadataKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one of name, tag or metadata_key is required"})
		return
	}

	v, err := h.svc.FindLatestByCriteria(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
