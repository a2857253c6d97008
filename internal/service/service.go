package service

import (
	"context"
	"os"

	"github.com/ds124wfegd/WB_L3/avatar/config"
	"github.com/ds124wfegd/WB_L3/avatar/internal/database"
	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/kafka"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/metrics"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/processor"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/storage"
	"github.com/spf13/afero"
)

type ImageService interface {
	// Upload validates, compresses and stores one profile image. Only validation
	// and storage failures are returned; processing failures store the original.
	Upload(ctx context.Context, req entity.UploadRequest) (*entity.StoredImage, error)
	// Resolve returns the public reference of the owner's current image, or the
	// default image reference when there is none.
	Resolve(ctx context.Context, owner string) string
	Open(name string) (afero.File, os.FileInfo, error)
}

type imageService struct {
	validator *processor.Validator
	processor processor.ImageProcessor
	store     storage.FileStorage
	repo      database.ImageRepository
	producer  kafka.Producer
	observer  metrics.Observer

	publicPrefix    string
	defaultImageURL string
}

func NewImageService(
	cfg config.UploadConfig,
	imgProcessor processor.ImageProcessor,
	store storage.FileStorage,
	repo database.ImageRepository,
	producer kafka.Producer,
	observer metrics.Observer,
) ImageService {
	if observer == nil {
		observer = metrics.Nop()
	}
	return &imageService{
		validator:       processor.NewValidator(cfg.MaxUploadBytes, cfg.AllowedExtensions),
		processor:       imgProcessor,
		store:           store,
		repo:            repo,
		producer:        producer,
		observer:        observer,
		publicPrefix:    cfg.PublicPath(),
		defaultImageURL: cfg.DefaultImageURL,
	}
}
