package database

import (
	"context"
	"time"

	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
)

// ImageRepository tracks each owner's current StoredImage and the names it replaced.
// Superseded names stay on disk until the janitor reclaims them.
type ImageRepository interface {
	// Current returns nil, nil when the owner has no stored image.
	Current(ctx context.Context, owner string) (*entity.StoredImage, error)
	// Replace makes image the owner's current one and returns the previous, if any.
	Replace(ctx context.Context, image *entity.StoredImage) (*entity.StoredImage, error)
	// Superseded lists names replaced before the given time.
	Superseded(ctx context.Context, before time.Time) ([]string, error)
	// Forget drops a reclaimed name from the superseded ledger.
	Forget(ctx context.Context, name string) error
	// IsCurrent reports whether name is some owner's current image.
	IsCurrent(ctx context.Context, name string) (bool, error)
}
