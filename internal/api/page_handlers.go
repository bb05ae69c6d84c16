package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/showshelf/internal/render"
	"github.com/pokerjest/showshelf/internal/settings"
)

func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Load())
}

type settingsRequest struct {
	OutputPath *string       `json:"output_path"`
	Theme      *render.Theme `json:"theme"`
}

// UpdateSettings merges the supplied fields into the saved settings.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	cur := h.settings.Load()
	next := settings.Settings{OutputPath: cur.OutputPath, Theme: cur.Theme}
	if req.OutputPath != nil {
		next.OutputPath = *req.OutputPath
	}
	if req.Theme != nil {
		next.Theme = *req.Theme
	}
	if err := h.settings.Save(next); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.settings.Load())
}

// PreviewPage renders the page inline.
func (h *Handler) PreviewPage(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.pages.Write(c.Request.Context(), &buf); err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// GeneratePage writes the page to the saved (or supplied) output path.
func (h *Handler) GeneratePage(c *gin.Context) {
	var req struct {
		OutputPath string `json:"output_path"`
	}
	// An empty body is fine.
	_ = c.ShouldBindJSON(&req)

	path, err := h.pages.Generate(c.Request.Context(), req.OutputPath)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

// PublishPage regenerates the page and uploads it.
func (h *Handler) PublishPage(c *gin.Context) {
	if h.publisher == nil || !h.publisher.Configured() {
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": "publish target is not configured"})
		return
	}
	path, err := h.pages.Generate(c.Request.Context(), "")
	if err != nil {
		h.fail(c, err)
		return
	}
	loc, err := h.publisher.Upload(c.Request.Context(), h.pages.Fs(), path)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("page published", "location", loc)
	c.JSON(http.StatusOK, gin.H{"path": path, "location": loc})
}
