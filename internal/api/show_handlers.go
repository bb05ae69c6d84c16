package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/showshelf/internal/matcher"
	"github.com/pokerjest/showshelf/internal/model"
	"github.com/pokerjest/showshelf/internal/parser"
)

type itemRequest struct {
	// Line is a raw "Title (Year) [type]" entry; it wins over the discrete fields.
	Line      string `json:"line"`
	Title     string `json:"title"`
	Year      *int   `json:"year"`
	MediaType string `json:"media_type"`
}

func (r itemRequest) item() (parser.Item, bool) {
	if strings.TrimSpace(r.Line) != "" {
		return parser.ParseLine(r.Line)
	}
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return parser.Item{}, false
	}
	media, ok := model.ParseMediaType(r.MediaType)
	if !ok {
		media = model.MediaTV
	}
	return parser.Item{Title: title, Year: r.Year, MediaType: media}, true
}

type candidateResponse struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Year     *int   `json:"year"`
	Label    string `json:"label"`
	Overview string `json:"overview"`
	Strategy string `json:"strategy"`
}

func toCandidateResponses(cands []matcher.Candidate) []candidateResponse {
	out := make([]candidateResponse, 0, len(cands))
	for _, c := range cands {
		out = append(out, candidateResponse{
			ID: c.ID, Name: c.Name, Year: c.Year, Label: c.Label(), Overview: c.Overview, Strategy: c.Strategy,
		})
	}
	return out
}

func (h *Handler) ListShows(c *gin.Context) {
	shows, err := h.lib.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if shows == nil {
		shows = []model.ShowRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"shows": shows, "count": len(shows)})
}

func (h *Handler) GetShow(c *gin.Context) {
	rec, err := h.lib.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ValidateShow returns up to ten candidates for manual picking.
func (h *Handler) ValidateShow(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	item, ok := req.item()
	if !ok {
		badRequest(c, "title is required")
		return
	}

	cands, err := h.lib.Candidates(c.Request.Context(), item)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "candidates": toCandidateResponses(cands)})
}

type addRequest struct {
	itemRequest
	TMDBID       int    `json:"tmdb_id"`
	Category     string `json:"category"`
	FetchRatings *bool  `json:"fetch_ratings"`
}

func (h *Handler) AddShow(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	item, ok := req.item()
	if !ok || req.TMDBID <= 0 {
		badRequest(c, "title and tmdb_id are required")
		return
	}
	cat, err := model.ParseCategory(req.Category)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	rec, err := h.lib.AddByID(c.Request.Context(), item, req.TMDBID, cat, h.options(req.FetchRatings))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

type imdbRequest struct {
	Ref          string `json:"ref" binding:"required"`
	Category     string `json:"category"`
	FetchRatings *bool  `json:"fetch_ratings"`
}

func (h *Handler) AddShowByIMDb(c *gin.Context) {
	var req imdbRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	cat, err := model.ParseCategory(req.Category)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	rec, err := h.lib.AddByIMDb(c.Request.Context(), req.Ref, cat, h.options(req.FetchRatings))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) SetCategory(c *gin.Context) {
	var req struct {
		Category string `json:"category" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	cat, err := model.ParseCategory(req.Category)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.lib.SetCategory(c.Request.Context(), c.Param("key"), cat); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "category": cat})
}

func (h *Handler) SetLink(c *gin.Context) {
	var req struct {
		Link string `json:"link"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if err := h.lib.SetLink(c.Request.Context(), c.Param("key"), req.Link); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) DeleteShow(c *gin.Context) {
	if err := h.lib.Delete(c.Request.Context(), c.Param("key")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": model.Categories(), "default": model.DefaultCategory()})
}
