package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sstent/tracksync-go/internal/database"
	"github.com/sstent/tracksync-go/internal/ingest"
)

const defaultLimit = 50

// Importer runs an inbox import on demand.
type Importer interface {
	Run(ctx context.Context) (ingest.Report, error)
}

type WebHandler struct {
	db       database.Database
	importer Importer
}

// NewWebHandler serves events from db. importer may be nil, which disables
// POST /import.
func NewWebHandler(db database.Database, importer Importer) *WebHandler {
	return &WebHandler{
		db:       db,
		importer: importer,
	}
}

// Router returns an engine with every route registered.
func (h *WebHandler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	h.RegisterRoutes(router)
	return router
}

func (h *WebHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/", h.Index)
	router.GET("/events", h.EventList)
	router.GET("/events/:id", h.EventDetail)
	router.DELETE("/events/:id", h.DeleteEvent)
	router.POST("/import", h.Import)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (h *WebHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (h *WebHandler) Index(c *gin.Context) {
	stats, err := h.db.GetStats(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// EventList serves /events?limit&offset. Any of type, from, to, min_distance,
// max_distance, sort or order switches to a filtered query.
func (h *WebHandler) EventList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	filters, filtered, err := parseFilters(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	var events []database.Event
	if filtered {
		filters.Limit = limit
		filters.Offset = offset
		events, err = h.db.FilterEvents(c.Request.Context(), filters)
	} else {
		events, err = h.db.ListEvents(c.Request.Context(), limit, offset)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, database.ErrInvalidFilter) {
			status = http.StatusBadRequest
		}
		abortWithError(c, status, err)
		return
	}
	if events == nil {
		events = []database.Event{}
	}

	c.JSON(http.StatusOK, events)
}

type eventDetail struct {
	*database.Event
	Laps []database.Lap `json:"laps"`
}

func (h *WebHandler) EventDetail(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	event, err := h.db.GetEvent(ctx, id)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}

	laps, err := h.db.GetLaps(ctx, id)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	if laps == nil {
		laps = []database.Lap{}
	}

	c.JSON(http.StatusOK, eventDetail{Event: event, Laps: laps})
}

func (h *WebHandler) DeleteEvent(c *gin.Context) {
	if err := h.db.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *WebHandler) Import(c *gin.Context) {
	if h.importer == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	report, err := h.importer.Run(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrRunInProgress) {
			status = http.StatusConflict
		}
		abortWithError(c, status, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func parseFilters(c *gin.Context) (database.EventFilters, bool, error) {
	var f database.EventFilters
	filtered := false

	if v := c.Query("type"); v != "" {
		f.ActivityType = v
		filtered = true
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.DateFrom}, {"to", &f.DateTo}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		t, err := parseQueryTime(v)
		if err != nil {
			return f, false, fmt.Errorf("invalid %s: %w", p.name, err)
		}
		*p.dst = &t
		filtered = true
	}
	for _, p := range []struct {
		name string
		dst  *float64
	}{{"min_distance", &f.MinDistance}, {"max_distance", &f.MaxDistance}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, false, fmt.Errorf("invalid %s: %w", p.name, err)
		}
		*p.dst = d
		filtered = true
	}
	if v := c.Query("sort"); v != "" {
		f.SortBy = v
		filtered = true
	}
	if v := c.Query("order"); v != "" {
		f.SortOrder = v
		filtered = true
	}

	return f, filtered, nil
}

// parseQueryTime accepts RFC 3339 timestamps and plain dates (UTC midnight).
func parseQueryTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}

func statusFor(err error) int {
	if errors.Is(err, database.ErrEventNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
