package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/metrics"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

func (s *imageService) Upload(ctx context.Context, req entity.UploadRequest) (*entity.StoredImage, error) {
	start := time.Now()
	log := logrus.WithFields(logrus.Fields{
		"owner":     req.Owner,
		"extension": req.Extension,
		"size":      len(req.Data),
	})

	claimed, err := s.validator.Validate(req)
	if err != nil {
		kind := entity.KindOf(err)
		log.WithError(err).WithField("kind", kind).Warn("Upload rejected")
		s.observer.RecordRejected(string(kind))
		s.observer.RecordUpload(metrics.OutcomeRejected, time.Since(start), 0, 0)
		return nil, err
	}

	// Anything past validation ends up stored: compressed when the pipeline
	// succeeds, the original bytes under the claimed container otherwise.
	data, container, degraded := req.Data, claimed, false
	outcome := s.processor.Process(req.Data)
	if encoded, ok := outcome.Value(); ok {
		data, container = encoded.Data, encoded.Container
	} else {
		degraded = true
		reason := outcome.Reason()
		log.WithError(reason.Err).WithField("stage", reason.Stage).Warn("Image processing failed, storing original")
		s.observer.RecordDegraded(string(reason.Stage))
	}

	image, err := s.persist(req.Owner, container, data, degraded)
	if err != nil {
		log.WithError(err).Error("Failed to store image")
		s.observer.RecordUpload(metrics.OutcomeFailed, time.Since(start), len(req.Data), 0)
		return nil, fmt.Errorf("%w: %v", entity.ErrInternalProcessing, err)
	}

	previous, err := s.repo.Replace(ctx, image)
	if err != nil {
		log.WithError(err).Error("Failed to index stored image")
		if delErr := s.store.Delete(image.Name); delErr != nil {
			log.WithError(delErr).WithField("name", image.Name).Warn("Failed to remove unindexed image")
		}
		s.observer.RecordUpload(metrics.OutcomeFailed, time.Since(start), len(req.Data), 0)
		return nil, fmt.Errorf("%w: %v", entity.ErrInternalProcessing, err)
	}

	s.publish(ctx, image, previous)

	outcomeLabel := metrics.OutcomeCompressed
	if degraded {
		outcomeLabel = metrics.OutcomeFallback
	}
	s.observer.RecordUpload(outcomeLabel, time.Since(start), len(req.Data), len(data))

	log.WithFields(logrus.Fields{
		"name":      image.Name,
		"stored":    len(data),
		"reduction": fmt.Sprintf("%.1f%%", reductionPercent(len(req.Data), len(data))),
		"degraded":  degraded,
		"took":      time.Since(start).String(),
	}).Info("Image stored")

	return image, nil
}

// reductionPercent is how much smaller the stored payload is than the upload.
// Negative when encoding grew it.
func reductionPercent(in, out int) float64 {
	if in <= 0 {
		return 0
	}
	return (1 - float64(out)/float64(in)) * 100
}

func (s *imageService) persist(owner string, container entity.Container, data []byte, degraded bool) (*entity.StoredImage, error) {
	name, err := storage.NewName(owner, container)
	if err != nil {
		return nil, err
	}
	filePath, err := s.store.Put(name, data)
	if err != nil {
		return nil, err
	}
	return &entity.StoredImage{
		Name:      name,
		Owner:     owner,
		Path:      filePath,
		Reference: s.reference(name),
		Size:      int64(len(data)),
		Format:    container,
		Degraded:  degraded,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// publish is best effort: the image is already stored and indexed.
func (s *imageService) publish(ctx context.Context, image, previous *entity.StoredImage) {
	if s.producer == nil {
		return
	}
	event := entity.ImageStoredEvent{
		Owner:     image.Owner,
		Name:      image.Name,
		Reference: image.Reference,
		Format:    image.Format,
		Size:      image.Size,
		Degraded:  image.Degraded,
		StoredAt:  image.CreatedAt,
	}
	if previous != nil && previous.Name != image.Name {
		event.Superseded = previous.Name
	}
	if err := s.producer.Publish(ctx, storage.OwnerDigest(image.Owner), event); err != nil {
		logrus.WithError(err).WithField("name", image.Name).Warn("Failed to publish image event")
	}
}

func (s *imageService) Resolve(ctx context.Context, owner string) string {
	current, err := s.repo.Current(ctx, owner)
	if err != nil {
		logrus.WithError(err).WithField("owner", owner).Warn("Failed to look up current image")
		return s.defaultImageURL
	}
	if current == nil || !s.store.Exists(current.Name) {
		return s.defaultImageURL
	}
	return current.Reference
}

func (s *imageService) Open(name string) (afero.File, os.FileInfo, error) {
	file, info, err := s.store.Open(name)
	if err != nil && errors.Is(err, entity.ErrInvalidName) {
		return nil, nil, entity.ErrImageNotFound
	}
	return file, info, err
}

func (s *imageService) reference(name string) string {
	return path.Join(s.publicPrefix, name)
}
