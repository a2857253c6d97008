package processor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
)

// knownExtensions maps an upload extension to the container its bytes are stored in
// when processing degrades. Only these can be allowed.
var knownExtensions = map[string]entity.Container{
	"jpg":  entity.ContainerJPEG,
	"jpeg": entity.ContainerJPEG,
	"png":  entity.ContainerPNG,
	"gif":  entity.ContainerGIF,
	"webp": entity.ContainerWEBP,
}

type Validator struct {
	maxBytes int64
	allowed  map[string]entity.Container
}

func NewValidator(maxBytes int64, allowedExtensions []string) *Validator {
	allowed := make(map[string]entity.Container, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		ext = normalizeExtension(ext)
		if container, ok := knownExtensions[ext]; ok {
			allowed[ext] = container
		}
	}
	return &Validator{maxBytes: maxBytes, allowed: allowed}
}

// Validate checks the measured size first, then the claimed extension. It returns the
// container the original bytes would be stored as.
func (v *Validator) Validate(req entity.UploadRequest) (entity.Container, error) {
	size := int64(len(req.Data))
	if size > v.maxBytes {
		return "", fmt.Errorf("%w. Maximum size is %s", entity.ErrExceedsSizeLimit, humanBytes(v.maxBytes))
	}

	ext := normalizeExtension(req.Extension)
	container, ok := v.allowed[ext]
	if !ok {
		return "", fmt.Errorf("%w: .%s. Please use: %s", entity.ErrUnsupportedFormat, ext, v.allowedList())
	}

	if size == 0 {
		return "", entity.ErrEmptyUpload
	}
	return container, nil
}

func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

func (v *Validator) allowedList() string {
	exts := make([]string, 0, len(v.allowed))
	for ext := range v.allowed {
		exts = append(exts, "."+ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

func normalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

func humanBytes(n int64) string {
	const mb = 1024 * 1024
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	if n >= 1024 && n%1024 == 0 {
		return fmt.Sprintf("%dKB", n/1024)
	}
	return fmt.Sprintf("%d bytes", n)
}
