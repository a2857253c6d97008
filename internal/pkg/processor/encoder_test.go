package processor

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/ds124wfegd/WB_L3/avatar/config"
	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyTable(t *testing.T) {
	tests := []struct {
		format        entity.SourceFormat
		wantContainer entity.Container
		wantQuality   int
	}{
		{format: entity.FormatJPEG, wantContainer: entity.ContainerJPEG, wantQuality: 85},
		{format: entity.FormatPNG, wantContainer: entity.ContainerJPEG, wantQuality: 90},
		{format: entity.FormatWEBP, wantContainer: entity.ContainerWEBP, wantQuality: 85},
		{format: entity.FormatOther, wantContainer: entity.ContainerJPEG, wantQuality: 85},
		{format: entity.SourceFormat(99), wantContainer: entity.ContainerJPEG, wantQuality: 85},
	}

	table := NewPolicyTable(config.Default().Policy)
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			policy := table.For(tt.format)
			assert.Equal(t, tt.wantContainer, policy.Container)
			assert.Equal(t, tt.wantQuality, policy.Quality)
		})
	}
}

func TestPolicyTableOverrides(t *testing.T) {
	table := NewPolicyTable(config.PolicyConfig{JPEGQuality: 70, PNGQuality: 0, WEBPQuality: 101})

	assert.Equal(t, 70, table.For(entity.FormatJPEG).Quality)
	assert.Equal(t, 90, table.For(entity.FormatPNG).Quality)
	assert.Equal(t, 85, table.For(entity.FormatWEBP).Quality)
}

func TestEncode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	fillImageWithColor(img, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	tests := []struct {
		name       string
		format     entity.SourceFormat
		wantMagic  []byte
		wantOutput entity.Container
	}{
		{name: "jpeg stays jpeg", format: entity.FormatJPEG, wantMagic: []byte{0xFF, 0xD8}, wantOutput: entity.ContainerJPEG},
		{name: "png becomes jpeg", format: entity.FormatPNG, wantMagic: []byte{0xFF, 0xD8}, wantOutput: entity.ContainerJPEG},
		{name: "webp stays webp", format: entity.FormatWEBP, wantMagic: []byte("RIFF"), wantOutput: entity.ContainerWEBP},
	}

	encoder := NewEncoder(DefaultPolicyTable(), 1024*1024)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := artifactOf(img, entity.ModeRGB, false)
			artifact.Format = tt.format

			out := encoder.Encode(artifact)
			encoded, ok := out.Value()
			require.True(t, ok, "unexpected degradation: %v", out.Reason())

			assert.Equal(t, tt.wantOutput, encoded.Container)
			assert.True(t, bytes.HasPrefix(encoded.Data, tt.wantMagic))
			assert.Equal(t, 40, encoded.Width)
			assert.Equal(t, 30, encoded.Height)
		})
	}
}

func TestEncodeDegradesWhenOutputTooLarge(t *testing.T) {
	out := NewEncoder(DefaultPolicyTable(), 16).Encode(artifactOf(noiseImage(64, 64), entity.ModeRGB, false))

	require.True(t, out.IsDegraded())
	assert.Equal(t, StageEncode, out.Reason().Stage)
	assert.ErrorIs(t, out.Reason(), entity.ErrEncodeFailed)
}
