package processor

import (
	"bytes"
	"fmt"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
)

// Encoded is the payload handed to the store after a fully successful pipeline.
type Encoded struct {
	Data      []byte
	Container entity.Container
	Quality   int
	Width     int
	Height    int
	Source    entity.SourceFormat
}

type Encoder struct {
	policies PolicyTable
	maxBytes int64
}

func NewEncoder(policies PolicyTable, maxBytes int64) *Encoder {
	return &Encoder{policies: policies, maxBytes: maxBytes}
}

func (e *Encoder) Encode(artifact *entity.ImageArtifact) Outcome[Encoded] {
	if artifact == nil || artifact.Image == nil {
		return Degraded[Encoded](StageEncode, fmt.Errorf("%w: no image", entity.ErrEncodeFailed))
	}
	policy := e.policies.For(artifact.Format)

	var buf bytes.Buffer
	var err error
	switch policy.Container {
	case entity.ContainerJPEG:
		err = imaging.Encode(&buf, artifact.Image, imaging.JPEG, imaging.JPEGQuality(policy.Quality))
	case entity.ContainerWEBP:
		err = webp.Encode(&buf, artifact.Image, &webp.Options{Quality: float32(policy.Quality)})
	default:
		err = fmt.Errorf("no encoder for container %q", policy.Container)
	}
	if err != nil {
		return Degraded[Encoded](StageEncode, fmt.Errorf("%w: %v", entity.ErrEncodeFailed, err))
	}

	if e.maxBytes > 0 && int64(buf.Len()) > e.maxBytes {
		return Degraded[Encoded](StageEncode,
			fmt.Errorf("%w: encoded %d bytes exceeds %d", entity.ErrEncodeFailed, buf.Len(), e.maxBytes))
	}

	return Ok(Encoded{
		Data:      buf.Bytes(),
		Container: policy.Container,
		Quality:   policy.Quality,
		Width:     artifact.Width,
		Height:    artifact.Height,
		Source:    artifact.Format,
	})
}
