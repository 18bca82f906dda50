package serve

import (
	"errors"
	"net/http"

	"github.com/GriffinCanCode/composer/internal/assets"
	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/infrastructure/monitoring"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type handlers struct {
	bundle  *bundle
	cache   Downloader
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

func (h *handlers) health(c *gin.Context) {
	mode := "url"
	if h.bundle != nil {
		mode = "dir"
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"mode":   mode,
		"proxy":  h.cache != nil,
	})
}

// static serves bundle files, or the generated index for "/" and "/index.html"
func (h *handlers) static(c *gin.Context) {
	if h.bundle == nil || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	p := c.Request.URL.Path
	if h.bundle.index != nil && (p == "/" || p == "/"+indexFile) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", h.bundle.index)
		return
	}

	full, ok := h.bundle.file(p)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.File(full)
}

// proxy downloads src through the asset cache and serves the local copy
func (h *handlers) proxy(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "asset proxy disabled"})
		return
	}

	src := c.Query("src")
	entry, err := h.cache.Download(c.Request.Context(), src)
	if err != nil {
		h.metrics.RecordProxyDownload("error")
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, assets.ErrInvalidSource):
			status = http.StatusBadRequest
		case errors.Is(err, assets.ErrDestroyed):
			status = http.StatusGone
		}
		h.logger.Warn("Proxy download failed", zap.String("src", src), zap.Error(err))
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	h.metrics.RecordProxyDownload("ok")
	c.Header("Content-Type", entry.ContentType)
	c.File(entry.Path)
}
