package processor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
)

// Transformer bounds an artifact to maxDimension and adapts its color mode to the
// target container.
type Transformer struct {
	maxDimension int
}

func NewTransformer(maxDimension int) *Transformer {
	return &Transformer{maxDimension: maxDimension}
}

func (t *Transformer) Transform(artifact *entity.ImageArtifact, policy CompressionPolicy) Outcome[*entity.ImageArtifact] {
	if artifact == nil || artifact.Image == nil {
		return Degraded[*entity.ImageArtifact](StageTransform, fmt.Errorf("%w: no image", entity.ErrTransformFailed))
	}
	if t.maxDimension <= 0 {
		return Degraded[*entity.ImageArtifact](StageTransform,
			fmt.Errorf("%w: max dimension %d", entity.ErrTransformFailed, t.maxDimension))
	}

	img := artifact.Image
	width, height := BoundedSize(artifact.Width, artifact.Height, t.maxDimension)
	if width != artifact.Width || height != artifact.Height {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}

	img, mode := normalizeMode(img, artifact.Mode, artifact.HasAlpha, policy)

	bounds := img.Bounds()
	return Ok(&entity.ImageArtifact{
		Image:    img,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Mode:     mode,
		HasAlpha: artifact.HasAlpha && mode == entity.ModeRGBA,
		Format:   artifact.Format,
	})
}

// BoundedSize scales (width, height) so the long side equals max, preserving the
// aspect ratio. Sizes already within max are returned unchanged.
func BoundedSize(width, height, max int) (int, int) {
	if width <= max && height <= max {
		return width, height
	}
	if width >= height {
		return max, scaleSide(height, max, width)
	}
	return scaleSide(width, max, height), max
}

func scaleSide(short, max, long int) int {
	side := int(math.Round(float64(short) * float64(max) / float64(long)))
	if side < 1 {
		side = 1
	}
	return side
}

// normalizeMode converts only when the container cannot represent mode.
func normalizeMode(img image.Image, mode entity.ColorMode, hasAlpha bool, policy CompressionPolicy) (image.Image, entity.ColorMode) {
	if hasAlpha {
		mode = entity.ModeRGBA
	}
	if policy.Permits(mode) {
		// resizing yields NRGBA; keep single-channel output for grayscale sources
		if mode == entity.ModeGray {
			if _, ok := img.(*image.Gray); !ok {
				return toGray(img), mode
			}
		}
		return img, mode
	}

	switch {
	case hasAlpha && policy.Permits(entity.ModeRGBA):
		return imaging.Clone(img), entity.ModeRGBA
	case hasAlpha:
		return flattenOnWhite(img), entity.ModeRGB
	default:
		return imaging.Clone(img), entity.ModeRGB
	}
}

func flattenOnWhite(img image.Image) image.Image {
	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}
