package database

import (
	"context"
	"time"

	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cachedImageRepository keeps recently read current images in process. Replace goes
// through to the inner repository first, then refreshes the cache.
type cachedImageRepository struct {
	inner ImageRepository
	cache *expirable.LRU[string, entity.StoredImage]
}

func NewCachedImageRepository(inner ImageRepository, size int, ttl time.Duration) ImageRepository {
	if size <= 0 {
		return inner
	}
	return &cachedImageRepository{
		inner: inner,
		cache: expirable.NewLRU[string, entity.StoredImage](size, nil, ttl),
	}
}

func (r *cachedImageRepository) Current(ctx context.Context, owner string) (*entity.StoredImage, error) {
	if image, ok := r.cache.Get(owner); ok {
		return &image, nil
	}
	image, err := r.inner.Current(ctx, owner)
	if err != nil || image == nil {
		return image, err
	}
	r.cache.Add(owner, *image)
	return image, nil
}

func (r *cachedImageRepository) Replace(ctx context.Context, image *entity.StoredImage) (*entity.StoredImage, error) {
	previous, err := r.inner.Replace(ctx, image)
	if err != nil {
		r.cache.Remove(image.Owner)
		return nil, err
	}
	r.cache.Add(image.Owner, *image)
	return previous, nil
}

func (r *cachedImageRepository) Superseded(ctx context.Context, before time.Time) ([]string, error) {
	return r.inner.Superseded(ctx, before)
}

func (r *cachedImageRepository) Forget(ctx context.Context, name string) error {
	return r.inner.Forget(ctx, name)
}

func (r *cachedImageRepository) IsCurrent(ctx context.Context, name string) (bool, error) {
	return r.inner.IsCurrent(ctx, name)
}
