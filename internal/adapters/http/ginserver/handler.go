package ginserver

import (
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
)

// Source is the metric state served by the handler.
type Source interface {
	Gatherer() prometheus.Gatherer
	Registerer() prometheus.Registerer
	Snapshot() []domain.InterfaceState
}

// Health reports when sampling last succeeded.
type Health interface {
	LastSuccess() time.Time
}

// Handler serves the exposition endpoint and a few human-facing pages.
type Handler struct {
	src     Source
	health  Health
	metrics http.Handler
}

// NewHandler builds the /metrics handler over src. Scrapes are counted on
// src's own registerer.
func NewHandler(src Source, health Health, opts promhttp.HandlerOpts) *Handler {
	opts.Registry = src.Registerer()
	return &Handler{
		src:    src,
		health: health,
		metrics: promhttp.InstrumentMetricHandler(
			src.Registerer(),
			promhttp.HandlerFor(src.Gatherer(), opts),
		),
	}
}

// Metrics handles `GET /metrics`.
func (h *Handler) Metrics(c *gin.Context) {
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// Ping handles `GET /ping`: 200 once a sample has been folded in, 503 before.
func (h *Handler) Ping(c *gin.Context) {
	last := h.health.LastSuccess()
	if last.IsZero() {
		c.String(http.StatusServiceUnavailable, "no successful sample yet")
		return
	}
	c.String(http.StatusOK, "ok")
}

// Index handles `GET /`.
func (h *Handler) Index(c *gin.Context) {
	var sb strings.Builder
	sb.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>vnstat exporter</title>")
	sb.WriteString("<style>body{font-family:system-ui,Arial,sans-serif}table{border-collapse:collapse}td,th{border:1px solid #ddd;padding:6px 10px}</style>")
	sb.WriteString("</head><body>")
	sb.WriteString("<h1>vnstat exporter</h1>")
	sb.WriteString("<p><a href='/metrics'>Metrics</a></p>")

	sb.WriteString("<table><tr><th>Interface</th><th>RX bytes</th><th>TX bytes</th><th>Updated</th></tr>")
	for _, st := range h.src.Snapshot() {
		sb.WriteString("<tr><td>")
		sb.WriteString(html.EscapeString(st.Name))
		sb.WriteString("</td><td>")
		sb.WriteString(strconv.FormatUint(st.RX, 10))
		sb.WriteString("</td><td>")
		sb.WriteString(strconv.FormatUint(st.TX, 10))
		sb.WriteString("</td><td>")
		if !st.Updated.IsZero() {
			sb.WriteString(st.Updated.UTC().Format(time.RFC3339))
		}
		sb.WriteString("</td></tr>")
	}
	sb.WriteString("</table>")

	if last := h.health.LastSuccess(); !last.IsZero() {
		sb.WriteString("<p>Last sample: ")
		sb.WriteString(last.UTC().Format(time.RFC3339))
		sb.WriteString("</p>")
	}
	sb.WriteString("</body></html>")

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(sb.String()))
}

// InterfacesJSON handles `GET /api/v1/interfaces`.
func (h *Handler) InterfacesJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.src.Snapshot())
}
