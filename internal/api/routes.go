package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// InitRoutes registers the JSON API. Keys are normalized titles and may contain
// escaped slashes, so routing works on the raw path.
func InitRoutes(r *gin.Engine, h *Handler) {
	r.UseRawPath = true
	r.UnescapePathValues = true

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api/page")
	})

	apiGroup := r.Group("/api")
	{
		// Shows
		apiGroup.GET("/shows", h.ListShows)
		apiGroup.GET("/shows/:key", h.GetShow)
		apiGroup.POST("/shows/validate", h.ValidateShow)
		apiGroup.POST("/shows", h.AddShow)
		apiGroup.POST("/shows/imdb", h.AddShowByIMDb)
		apiGroup.PUT("/shows/:key/category", h.SetCategory)
		apiGroup.PUT("/shows/:key/link", h.SetLink)
		apiGroup.DELETE("/shows/:key", h.DeleteShow)
		apiGroup.GET("/categories", h.ListCategories)

		// Batches
		apiGroup.POST("/batches/add", h.StartAddBatch)
		apiGroup.POST("/batches/refresh", h.StartRefreshBatch)
		apiGroup.GET("/batches", h.ListBatches)
		apiGroup.GET("/batches/:id", h.GetBatch)
		apiGroup.POST("/batches/:id/cancel", h.CancelBatch)
		apiGroup.GET("/events", h.Events)

		// Settings & page
		apiGroup.GET("/settings", h.GetSettings)
		apiGroup.PUT("/settings", h.UpdateSettings)
		apiGroup.GET("/page", h.PreviewPage)
		apiGroup.POST("/page", h.GeneratePage)
		apiGroup.POST("/page/publish", h.PublishPage)
	}
}
