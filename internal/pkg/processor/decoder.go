package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// Decoder inspects and decodes uploaded bytes into an ImageArtifact.
type Decoder struct {
	maxPixels int64
}

func NewDecoder(maxPixels int64) *Decoder {
	return &Decoder{maxPixels: maxPixels}
}

func (d *Decoder) Decode(data []byte) Outcome[*entity.ImageArtifact] {
	format := DetectFormat(data)

	// header only: dimensions and color model before the pixel buffer is allocated
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Degraded[*entity.ImageArtifact](StageDecode, fmt.Errorf("%w: %v", entity.ErrDecodeFailed, err))
	}
	if d.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > d.maxPixels {
		return Degraded[*entity.ImageArtifact](StageDecode,
			fmt.Errorf("%w: %dx%d exceeds %d", entity.ErrTooManyPixels, cfg.Width, cfg.Height, d.maxPixels))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Degraded[*entity.ImageArtifact](StageDecode, fmt.Errorf("%w: %v", entity.ErrDecodeFailed, err))
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Degraded[*entity.ImageArtifact](StageDecode, fmt.Errorf("%w: empty image", entity.ErrDecodeFailed))
	}

	hasAlpha := !isOpaque(img)
	mode := colorModeOf(cfg.ColorModel)
	switch {
	case mode == entity.ModeRGBA && !hasAlpha:
		mode = entity.ModeRGB
	case mode == entity.ModeGray && hasAlpha:
		// gray PNG with a tRNS key reports GrayModel but decodes to NRGBA
		mode = entity.ModeRGBA
	}

	return Ok(&entity.ImageArtifact{
		Image:    img,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Mode:     mode,
		HasAlpha: hasAlpha,
		Format:   format,
	})
}

// DetectFormat sniffs the payload; the claimed extension is never consulted.
func DetectFormat(data []byte) entity.SourceFormat {
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("image/jpeg"):
		return entity.FormatJPEG
	case mtype.Is("image/png"):
		return entity.FormatPNG
	case mtype.Is("image/webp"):
		return entity.FormatWEBP
	default:
		return entity.FormatOther
	}
}

func colorModeOf(model color.Model) entity.ColorMode {
	// color.Palette is a slice and must be matched before comparing models by value
	if _, ok := model.(color.Palette); ok {
		return entity.ModePaletted
	}
	switch model {
	case color.GrayModel, color.Gray16Model:
		return entity.ModeGray
	case color.CMYKModel:
		return entity.ModeCMYK
	case color.YCbCrModel:
		return entity.ModeRGB
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model,
		color.NYCbCrAModel, color.AlphaModel, color.Alpha16Model:
		return entity.ModeRGBA
	default:
		return entity.ModeRGB
	}
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return true
}
