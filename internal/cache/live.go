package cache

import (
	"context"
	"time"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/models"
)

const liveTTL = 5 * time.Minute

// LivePrompts caches the live version of each prompt name. Entries are
// invalidated whenever the live hand-off or a delete changes who is live,
// so a stale read can only ever be a recently demoted version.
type LivePrompts struct {
	cache *Cache
}

func NewLivePrompts(cache *Cache) *LivePrompts {
	return &LivePrompts{cache: cache}
}

func liveKey(name string) string { return "prompt:live:" + name }

func (l *LivePrompts) Get(ctx context.Context, name string) (*models.PromptVersion, error) {
	if l == nil {
		return nil, ErrMiss
	}
	var v models.PromptVersion
	if err := l.cache.Get(ctx, liveKey(name), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (l *LivePrompts) Set(ctx context.Context, v *models.PromptVersion) error {
	if l == nil {
		return nil
	}
	return l.cache.Set(ctx, liveKey(v.Name), v, liveTTL)
}

func (l *LivePrompts) Invalidate(ctx context.Context, name string) error {
	if l == nil {
		return nil
	}
	return l.cache.Delete(ctx, liveKey(name))
}
