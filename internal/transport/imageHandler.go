package transport

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/storage"
	"github.com/ds124wfegd/WB_L3/avatar/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	uploadField = "profile_image"
	// room for the multipart envelope around a maximum-size file
	multipartOverhead = 64 * 1024
)

func (h *ImageHandler) UploadProfileImage(c *gin.Context) {
	owner := c.GetString(middleware.OwnerKey)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	file, err := c.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(c, entity.ErrExceedsSizeLimit)
			return
		}
		h.fail(c, entity.ErrEmptyUpload)
		return
	}
	if file.Filename == "" {
		h.fail(c, entity.ErrEmptyUpload)
		return
	}
	if file.Size > h.maxUploadBytes {
		h.fail(c, entity.ErrExceedsSizeLimit)
		return
	}

	src, err := file.Open()
	if err != nil {
		h.fail(c, entity.ErrInternalProcessing)
		return
	}
	defer src.Close()

	// one byte past the limit is enough for the validator to reject it
	data, err := io.ReadAll(io.LimitReader(src, h.maxUploadBytes+1))
	if err != nil {
		h.fail(c, entity.ErrInternalProcessing)
		return
	}

	stored, err := h.service.Upload(c.Request.Context(), entity.UploadRequest{
		Data:         data,
		DeclaredSize: file.Size,
		Extension:    filepath.Ext(file.Filename),
		Owner:        owner,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.UploadResponse{
		Success:  true,
		ImageURL: stored.Reference,
		Message:  "Profile image updated successfully",
	})
}

// ServeUpload streams a stored image. Unknown names get the default image so
// broken references still render.
func (h *ImageHandler) ServeUpload(c *gin.Context) {
	name := c.Param("filename")

	file, info, err := h.service.Open(name)
	if err != nil {
		if !errors.Is(err, entity.ErrImageNotFound) {
			logrus.WithError(err).WithField("name", name).Error("Failed to open stored image")
		}
		h.serveDefault(c)
		return
	}
	defer file.Close()

	// degraded uploads keep the client's bytes; never let a browser reinterpret them
	c.Header("X-Content-Type-Options", "nosniff")
	if container := storage.ContainerOf(name); container != "" {
		c.Header("Content-Type", container.ContentType())
	}
	// stored names are never rewritten
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), file)
}

func (h *ImageHandler) serveDefault(c *gin.Context) {
	if h.defaultImagePath != "" {
		if _, err := os.Stat(h.defaultImagePath); err == nil {
			c.Header("Cache-Control", "no-cache")
			c.File(h.defaultImagePath)
			return
		}
	}
	c.JSON(http.StatusNotFound, entity.ErrorResponse{Success: false, Error: entity.ErrImageNotFound.Error()})
}

func (h *ImageHandler) ProfileImage(c *gin.Context) {
	c.Redirect(http.StatusFound, h.service.Resolve(c.Request.Context(), c.Param("owner")))
}

func (h *ImageHandler) fail(c *gin.Context, err error) {
	kind := entity.KindOf(err)
	message := err.Error()
	status := http.StatusInternalServerError

	switch kind {
	case entity.KindExceedsSizeLimit:
		status = http.StatusRequestEntityTooLarge
	case entity.KindUnsupportedFormat:
		status = http.StatusBadRequest
	default:
		// storage details stay in the logs
		message = entity.ErrInternalProcessing.Error()
	}

	c.JSON(status, entity.ErrorResponse{
		Success: false,
		Kind:    kind,
		Error:   message,
	})
}
