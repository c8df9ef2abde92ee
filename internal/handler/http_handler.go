package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-relay/internal/catalog"
	"github.com/weiawesome/wes-io-relay/internal/domain"
	"github.com/weiawesome/wes-io-relay/internal/service"
	"github.com/weiawesome/wes-io-relay/pkg/log"
	"github.com/weiawesome/wes-io-relay/pkg/response"
)

// Handler serves the live-stream and recording catalog endpoints.
type Handler struct {
	relay   service.RelayService
	catalog catalog.Catalog
}

// NewHandler creates a new HTTP handler.
func NewHandler(relay service.RelayService, cat catalog.Catalog) *Handler {
	return &Handler{
		relay:   relay,
		catalog: cat,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/live-streams", h.ListLiveStreams)
	r.GET("/recordings", h.ListRecordings)
	r.GET("/recordings/:name", h.GetRecording)
}

// CORS sets permissive cross-origin headers and answers preflight requests.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Range")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Range")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

type liveStreamsResponse struct {
	Streams []domain.LiveSession `json:"streams"`
}

func (h *Handler) ListLiveStreams(c *gin.Context) {
	ctx := c.Request.Context()

	streams, err := h.relay.LiveStreams(ctx)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list live streams")
		response.InternalError(c, "Unable to fetch live streams")
		return
	}
	if streams == nil {
		streams = []domain.LiveSession{}
	}

	response.Success(c, liveStreamsResponse{Streams: streams})
}

type recordingsResponse struct {
	Recordings []catalog.Recording `json:"recordings"`
}

func (h *Handler) ListRecordings(c *gin.Context) {
	ctx := c.Request.Context()

	recs, err := h.catalog.List(ctx)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list recordings")
		response.InternalError(c, "Unable to fetch recordings")
		return
	}
	if recs == nil {
		recs = []catalog.Recording{}
	}

	response.Success(c, recordingsResponse{Recordings: recs})
}

func (h *Handler) GetRecording(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	err := h.catalog.Serve(ctx, c.Writer, c.Request, name)
	if err == nil {
		return
	}
	if errors.Is(err, catalog.ErrNotFound) {
		response.NotFound(c, "Recording not found")
		return
	}

	l := log.Ctx(ctx)
	l.Error().Err(err).Str(log.FieldFilename, name).Msg("failed to serve recording")
	response.InternalError(c, "Unable to fetch recording")
}
