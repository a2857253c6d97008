package entity

import (
	"image"
	"time"
)

// SourceFormat is the format detected from the uploaded bytes, not the claimed extension.
type SourceFormat int

const (
	FormatOther SourceFormat = iota
	FormatJPEG
	FormatPNG
	FormatWEBP
)

func (f SourceFormat) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatWEBP:
		return "webp"
	default:
		return "other"
	}
}

// Container is the on-disk format of a StoredImage.
type Container string

const (
	ContainerJPEG Container = "jpeg"
	ContainerPNG  Container = "png"
	ContainerGIF  Container = "gif"
	ContainerWEBP Container = "webp"
)

// Extension returns the canonical file extension, without the dot.
func (c Container) Extension() string {
	if c == ContainerJPEG {
		return "jpg"
	}
	return string(c)
}

func (c Container) ContentType() string {
	return "image/" + string(c)
}

type ColorMode int

const (
	ModeRGB ColorMode = iota
	ModeGray
	ModeRGBA
	ModePaletted
	ModeCMYK
)

func (m ColorMode) String() string {
	switch m {
	case ModeGray:
		return "L"
	case ModeRGBA:
		return "RGBA"
	case ModePaletted:
		return "P"
	case ModeCMYK:
		return "CMYK"
	default:
		return "RGB"
	}
}

type UploadRequest struct {
	Data         []byte
	DeclaredSize int64
	Extension    string
	Owner        string
}

type ImageArtifact struct {
	Image    image.Image
	Width    int
	Height   int
	Mode     ColorMode
	HasAlpha bool
	Format   SourceFormat
}

type StoredImage struct {
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Path      string    `json:"path"`
	Reference string    `json:"reference"`
	Size      int64     `json:"size"`
	Format    Container `json:"format"`
	Degraded  bool      `json:"degraded"`
	CreatedAt time.Time `json:"created_at"`
}

type ImageStoredEvent struct {
	Owner      string    `json:"owner"`
	Name       string    `json:"name"`
	Reference  string    `json:"reference"`
	Superseded string    `json:"superseded,omitempty"`
	Format     Container `json:"format"`
	Size       int64     `json:"size"`
	Degraded   bool      `json:"degraded"`
	StoredAt   time.Time `json:"stored_at"`
}

type UploadResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"image_url"`
	Message  string `json:"message"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Kind    FailureKind `json:"kind,omitempty"`
	Error   string      `json:"error"`
}
