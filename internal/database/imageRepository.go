package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
)

type memoryImageRepository struct {
	mu         sync.Mutex
	current    map[string]entity.StoredImage
	names      map[string]struct{}
	superseded map[string]time.Time
	now        func() time.Time
}

func NewImageRepository() ImageRepository {
	return newMemoryImageRepository(time.Now)
}

func newMemoryImageRepository(now func() time.Time) *memoryImageRepository {
	return &memoryImageRepository{
		current:    make(map[string]entity.StoredImage),
		names:      make(map[string]struct{}),
		superseded: make(map[string]time.Time),
		now:        now,
	}
}

func (r *memoryImageRepository) Current(_ context.Context, owner string) (*entity.StoredImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	image, ok := r.current[owner]
	if !ok {
		return nil, nil
	}
	return &image, nil
}

func (r *memoryImageRepository) Replace(_ context.Context, image *entity.StoredImage) (*entity.StoredImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, had := r.current[image.Owner]
	r.current[image.Owner] = *image
	r.names[image.Name] = struct{}{}
	if !had {
		return nil, nil
	}
	if previous.Name != image.Name {
		delete(r.names, previous.Name)
		r.superseded[previous.Name] = r.now()
	}
	return &previous, nil
}

func (r *memoryImageRepository) Superseded(_ context.Context, before time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0)
	for name, at := range r.superseded {
		if !at.After(before) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *memoryImageRepository) Forget(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.superseded, name)
	return nil
}

func (r *memoryImageRepository) IsCurrent(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.names[name]
	return ok, nil
}
