package processor

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/chai2010/webp"
	"github.com/ds124wfegd/WB_L3/avatar/config"
	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T) ImageProcessor {
	t.Helper()
	cfg := config.Default()
	cfg.Upload.MaxUploadBytes = 64 * 1024 * 1024
	return NewImageProcessor(cfg.Upload, cfg.Policy)
}

// TestProcessLargeJPEG: a 3000x2000 photo is bounded to 600x400 and stored as JPEG q85
func TestProcessLargeJPEG(t *testing.T) {
	input := encodeJPEG(t, noiseImage(3000, 2000), 95)

	out := newTestProcessor(t).Process(input)
	encoded, ok := out.Value()
	require.True(t, ok, "unexpected degradation: %v", out.Reason())

	assert.Equal(t, entity.ContainerJPEG, encoded.Container)
	assert.Equal(t, 85, encoded.Quality)
	assert.Equal(t, 600, encoded.Width)
	assert.Equal(t, 400, encoded.Height)
	assert.Less(t, len(encoded.Data), len(input))

	cfg, format, err := image.DecodeConfig(bytes.NewReader(encoded.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 600, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}

func TestProcessTransparentPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 80, 40))
	// left half opaque red, right half fully transparent
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}

	out := newTestProcessor(t).Process(encodePNG(t, img))
	encoded, ok := out.Value()
	require.True(t, ok, "unexpected degradation: %v", out.Reason())

	assert.Equal(t, entity.ContainerJPEG, encoded.Container)
	assert.Equal(t, 90, encoded.Quality)

	decoded, err := jpeg.Decode(bytes.NewReader(encoded.Data))
	require.NoError(t, err)
	r, g, b, _ := decoded.At(70, 20).RGBA()
	// transparent area is flattened onto white, not black
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestProcessGrayPNGWithTransparencyKey(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 4; x < 8; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	// luma 0 is the transparent key
	data := withTransparencyKey(t, encodePNG(t, img), 0)

	artifact, ok := NewDecoder(0).Decode(data).Value()
	require.True(t, ok)
	assert.True(t, artifact.HasAlpha)
	assert.Equal(t, entity.ModeRGBA, artifact.Mode)

	out := newTestProcessor(t).Process(data)
	encoded, ok := out.Value()
	require.True(t, ok, "unexpected degradation: %v", out.Reason())
	assert.Equal(t, entity.ContainerJPEG, encoded.Container)

	decoded, err := jpeg.Decode(bytes.NewReader(encoded.Data))
	require.NoError(t, err)
	luma := color.GrayModel.Convert(decoded.At(1, 1)).(color.Gray).Y
	assert.Greater(t, luma, uint8(240), "transparent key flattened onto white")
}

func TestProcessWEBP(t *testing.T) {
	translucent := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			translucent.Set(x, y, color.NRGBA{R: uint8(x * 4), G: 40, B: uint8(y * 4), A: uint8(x * 4)})
		}
	}

	tests := []struct {
		name       string
		img        image.Image
		options    *webp.Options
		wantWidth  int
		wantHeight int
	}{
		{
			name:       "lossy photo is bounded",
			img:        noiseImage(900, 600),
			options:    &webp.Options{Quality: 90},
			wantWidth:  600,
			wantHeight: 400,
		},
		{
			name:       "lossless with alpha",
			img:        translucent,
			options:    &webp.Options{Lossless: true},
			wantWidth:  64,
			wantHeight: 64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, webp.Encode(&buf, tt.img, tt.options))

			out := newTestProcessor(t).Process(buf.Bytes())
			encoded, ok := out.Value()
			require.True(t, ok, "unexpected degradation: %v", out.Reason())
			assert.Equal(t, entity.FormatWEBP, encoded.Source)
			assert.Equal(t, entity.ContainerWEBP, encoded.Container)
			assert.Equal(t, 85, encoded.Quality)
			assert.Equal(t, tt.wantWidth, encoded.Width)
			assert.Equal(t, tt.wantHeight, encoded.Height)

			decoded, err := webp.Decode(bytes.NewReader(encoded.Data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantWidth, decoded.Bounds().Dx())
		})
	}
}

func TestProcessGIFUsesDefaultPolicy(t *testing.T) {
	palette := color.Palette{color.Black, color.White, color.RGBA{R: 200, A: 255}}
	img := image.NewPaletted(image.Rect(0, 0, 30, 30), palette)
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))

	out := newTestProcessor(t).Process(buf.Bytes())
	encoded, ok := out.Value()
	require.True(t, ok, "unexpected degradation: %v", out.Reason())
	assert.Equal(t, entity.FormatOther, encoded.Source)
	assert.Equal(t, entity.ContainerJPEG, encoded.Container)
	assert.Equal(t, 85, encoded.Quality)
}

func TestProcessDegradesOnBadInput(t *testing.T) {
	truncated := encodeJPEG(t, noiseImage(64, 64), 90)
	truncated = truncated[:len(truncated)/2]

	tests := []struct {
		name string
		data []byte
	}{
		{name: "garbage bytes", data: []byte("definitely not an image")},
		{name: "truncated jpeg", data: truncated},
		{name: "empty", data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := newTestProcessor(t).Process(tt.data)
			require.True(t, out.IsDegraded())
			assert.Equal(t, StageDecode, out.Reason().Stage)
			assert.ErrorIs(t, out.Reason(), entity.ErrDecodeFailed)
		})
	}
}

func TestProcessDeterministicPolicy(t *testing.T) {
	p := newTestProcessor(t)
	input := encodePNG(t, noiseImage(50, 50))

	first, ok := p.Process(input).Value()
	require.True(t, ok)
	second, ok := p.Process(input).Value()
	require.True(t, ok)

	assert.Equal(t, first.Container, second.Container)
	assert.Equal(t, first.Quality, second.Quality)
	assert.Equal(t, p.Policy(entity.FormatPNG).Container, first.Container)
}

func TestThenShortCircuits(t *testing.T) {
	called := false
	degraded := Degraded[int](StageDecode, entity.ErrDecodeFailed)

	out := Then(degraded, func(v int) Outcome[string] {
		called = true
		return Ok("never")
	})

	assert.False(t, called)
	require.True(t, out.IsDegraded())
	assert.Equal(t, StageDecode, out.Reason().Stage)

	ok := Then(Ok(2), func(v int) Outcome[int] { return Ok(v * 21) })
	v, isOk := ok.Value()
	assert.True(t, isOk)
	assert.Equal(t, 42, v)
}

// fillImageWithColor заполняет изображение одним цветом
func fillImageWithColor(img *image.RGBA, color color.RGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.Set(x, y, color)
		}
	}
}

func noiseImage(width, height int) *image.RGBA {
	rng := rand.New(rand.NewSource(int64(width*31 + height)))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// withTransparencyKey inserts a grayscale tRNS chunk right after IHDR.
func withTransparencyKey(t *testing.T, data []byte, key uint16) []byte {
	t.Helper()
	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	require.Greater(t, len(data), ihdrEnd)

	payload := []byte{byte(key >> 8), byte(key)}
	chunk := make([]byte, 0, 12+len(payload))
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(payload)))
	chunk = append(chunk, "tRNS"...)
	chunk = append(chunk, payload...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(chunk[4:]))

	out := append([]byte{}, data[:ihdrEnd]...)
	out = append(out, chunk...)
	return append(out, data[ihdrEnd:]...)
}
