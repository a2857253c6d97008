package transport

import (
	"github.com/ds124wfegd/WB_L3/avatar/internal/service"
)

type ImageHandler struct {
	service          service.ImageService
	maxUploadBytes   int64
	defaultImagePath string
}

func NewImageHandler(service service.ImageService, maxUploadBytes int64, defaultImagePath string) *ImageHandler {
	return &ImageHandler{
		service:          service,
		maxUploadBytes:   maxUploadBytes,
		defaultImagePath: defaultImagePath,
	}
}
