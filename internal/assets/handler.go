// Package assets serves portfolio images kept in object storage.
package assets

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/utsingh/portfolio-api/internal/storage"
	"github.com/utsingh/portfolio-api/pkg/logger"
)

const maxUploadSize = 10 << 20

// Store is the subset of *storage.MinIOStorage used by the handler.
type Store interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string) (string, error)
}

type Handler struct {
	store Store
}

func RegisterRoutes(r gin.IRouter, store Store) {
	h := &Handler{store: store}
	r.POST("/api/assets", h.Upload)
	r.GET("/api/assets/*key", h.Get)
	r.DELETE("/api/assets/*key", h.Delete)
}

// Upload accepts multipart field "file" and an optional "folder" and
// returns {key, url}.
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "multipart field 'file' is required"})
		return
	}
	key, err := storage.NewKey(c.PostForm("folder"), fh.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "unsupported file name or folder"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "cannot read upload"})
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	if err := h.store.Upload(ctx, key, f, fh.Size, storage.ContentType(key)); err != nil {
		logger.Errorf("asset upload %s failed: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error uploading asset"})
		return
	}
	u, err := h.store.PresignedURL(ctx, key)
	if err != nil {
		logger.Errorf("asset presign %s failed: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error signing asset URL"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key, "url": u})
}

// Get redirects to a presigned URL for the stored object.
func (h *Handler) Get(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	exists, err := h.store.Exists(ctx, key)
	if err != nil {
		logger.Errorf("asset stat %s failed: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching asset"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"message": "Asset not found"})
		return
	}
	u, err := h.store.PresignedURL(ctx, key)
	if err != nil {
		logger.Errorf("asset presign %s failed: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error signing asset URL"})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, u)
}

func (h *Handler) Delete(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	if err := h.store.Remove(c.Request.Context(), key); err != nil {
		logger.Errorf("asset delete %s failed: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error deleting asset"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) key(c *gin.Context) (string, bool) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if err := storage.ValidateKey(key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid asset key"})
		return "", false
	}
	return key, true
}
