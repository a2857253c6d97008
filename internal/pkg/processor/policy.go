package processor

import (
	"github.com/ds124wfegd/WB_L3/avatar/config"
	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
)

// CompressionPolicy is the output decision for one source format.
type CompressionPolicy struct {
	Container      entity.Container
	Quality        int
	PermittedModes []entity.ColorMode
}

func (p CompressionPolicy) Permits(mode entity.ColorMode) bool {
	for _, m := range p.PermittedModes {
		if m == mode {
			return true
		}
	}
	return false
}

// PolicyTable is keyed by the detected source format. FormatOther must be present.
type PolicyTable map[entity.SourceFormat]CompressionPolicy

var (
	jpegModes = []entity.ColorMode{entity.ModeGray, entity.ModeRGB}
	webpModes = []entity.ColorMode{entity.ModeRGB, entity.ModeRGBA}
)

// DefaultPolicyTable: PNG is re-encoded into a lossy container, WEBP stays native.
func DefaultPolicyTable() PolicyTable {
	return PolicyTable{
		entity.FormatJPEG:  {Container: entity.ContainerJPEG, Quality: 85, PermittedModes: jpegModes},
		entity.FormatPNG:   {Container: entity.ContainerJPEG, Quality: 90, PermittedModes: jpegModes},
		entity.FormatWEBP:  {Container: entity.ContainerWEBP, Quality: 85, PermittedModes: webpModes},
		entity.FormatOther: {Container: entity.ContainerJPEG, Quality: 85, PermittedModes: jpegModes},
	}
}

// NewPolicyTable applies configured qualities over the default table; values outside
// 1..100 keep the default.
func NewPolicyTable(cfg config.PolicyConfig) PolicyTable {
	table := DefaultPolicyTable()
	override := map[entity.SourceFormat]int{
		entity.FormatJPEG:  cfg.JPEGQuality,
		entity.FormatPNG:   cfg.PNGQuality,
		entity.FormatWEBP:  cfg.WEBPQuality,
		entity.FormatOther: cfg.DefaultQuality,
	}
	for format, quality := range override {
		if quality < 1 || quality > 100 {
			continue
		}
		p := table[format]
		p.Quality = quality
		table[format] = p
	}
	return table
}

func (t PolicyTable) For(format entity.SourceFormat) CompressionPolicy {
	if p, ok := t[format]; ok {
		return p
	}
	return t[entity.FormatOther]
}
