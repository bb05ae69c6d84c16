package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/showshelf/internal/model"
	"github.com/pokerjest/showshelf/internal/parser"
)

const (
	kindAdd     = "add"
	kindRefresh = "refresh"
)

type addBatchRequest struct {
	Text         string `json:"text" binding:"required"`
	Category     string `json:"category"`
	FetchRatings *bool  `json:"fetch_ratings"`
}

// StartAddBatch fast-adds every line of the submitted text in the background.
func (h *Handler) StartAddBatch(c *gin.Context) {
	var req addBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	cat, err := model.ParseCategory(req.Category)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	items := parser.ParseLines(req.Text)
	if len(items) == 0 {
		badRequest(c, "no titles found in text")
		return
	}

	// The batch outlives the request.
	ctx := context.WithoutCancel(c.Request.Context())
	b := h.lib.AddBatch(ctx, items, cat, h.options(req.FetchRatings))
	c.JSON(http.StatusAccepted, h.registry.Track(kindAdd, b))
}

type refreshBatchRequest struct {
	Keys         []string `json:"keys"`
	Missing      bool     `json:"missing"`
	FetchRatings *bool    `json:"fetch_ratings"`
}

// StartRefreshBatch refreshes the named keys, or every incomplete record when missing is set.
func (h *Handler) StartRefreshBatch(c *gin.Context) {
	var req refreshBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	keys := req.Keys
	if req.Missing {
		missing, err := h.lib.MissingKeys(c.Request.Context(), h.options(req.FetchRatings))
		if err != nil {
			h.fail(c, err)
			return
		}
		keys = missing
	}
	if len(keys) == 0 && !req.Missing {
		badRequest(c, "keys or missing is required")
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	b := h.lib.RefreshBatch(ctx, keys, h.options(req.FetchRatings))
	c.JSON(http.StatusAccepted, h.registry.Track(kindRefresh, b))
}

func (h *Handler) ListBatches(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"batches": h.registry.List()})
}

func (h *Handler) GetBatch(c *gin.Context) {
	st, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) CancelBatch(c *gin.Context) {
	if !h.registry.Cancel(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}
