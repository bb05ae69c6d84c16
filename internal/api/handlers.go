package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/pokerjest/showshelf/internal/batch"
	"github.com/pokerjest/showshelf/internal/event"
	"github.com/pokerjest/showshelf/internal/model"
	"github.com/pokerjest/showshelf/internal/publish"
	"github.com/pokerjest/showshelf/internal/service"
	"github.com/pokerjest/showshelf/internal/settings"
)

var errBadInput = errors.New("bad input")

// Handler carries everything the HTTP layer talks to.
type Handler struct {
	lib       *service.Library
	pages     *service.Pages
	registry  *batch.Registry
	settings  *settings.Store
	publisher *publish.Publisher
	bus       event.Bus
	opts      service.Options
	log       hclog.Logger
}

type Deps struct {
	Library   *service.Library
	Pages     *service.Pages
	Registry  *batch.Registry
	Settings  *settings.Store
	Publisher *publish.Publisher
	Bus       event.Bus
	Options   service.Options
	Log       hclog.Logger
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		lib:       d.Library,
		pages:     d.Pages,
		registry:  d.Registry,
		settings:  d.Settings,
		publisher: d.Publisher,
		bus:       d.Bus,
		opts:      d.Options,
		log:       d.Log,
	}
	if h.log == nil {
		h.log = hclog.NewNullLogger()
	}
	if h.bus == nil {
		h.bus = event.Nop{}
	}
	return h
}

// options applies a per-request override of the ratings toggle.
func (h *Handler) options(fetchRatings *bool) service.Options {
	opts := h.opts
	if fetchRatings != nil {
		opts.FetchRatings = *fetchRatings
	}
	return opts
}

func statusFor(err error) int {
	var perr *model.ProviderError
	switch {
	case errors.Is(err, model.ErrConfig), errors.Is(err, publish.ErrNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadInput), errors.Is(err, service.ErrInvalidIMDb):
		return http.StatusBadRequest
	case errors.As(err, &perr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
