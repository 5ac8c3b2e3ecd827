// handlers/dashboard_handlers.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"thelook/api/analytics"
	"thelook/api/dashboard"
	"thelook/api/dataset"
)

// ReportSource builds dashboard reports; dashboard.Pipeline satisfies it.
type ReportSource interface {
	Report(ctx context.Context, filter analytics.Filter) (*dashboard.Report, error)
	Filters(ctx context.Context) (*dashboard.Filters, error)
}

// DatasetReloader swaps in a freshly loaded snapshot; dataset.Cache satisfies it.
type DatasetReloader interface {
	Reload(ctx context.Context) (*dataset.Snapshot, error)
}

type DashboardHandlers struct {
	Reports ReportSource
	Dataset DatasetReloader
	logger  *logrus.Logger
}

func NewDashboardHandlers(reports ReportSource, ds DatasetReloader, logger *logrus.Logger) *DashboardHandlers {
	return &DashboardHandlers{Reports: reports, Dataset: ds, logger: logger}
}

func (h *DashboardHandlers) Filters(c *gin.Context) {
	filters, err := h.Reports.Filters(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list dashboard filters")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dataset"})
		return
	}
	c.JSON(http.StatusOK, filters)
}

func (h *DashboardHandlers) Sales(c *gin.Context) {
	h.serveTab(c, "sales", func(r *dashboard.Report) any { return r.Sales })
}

func (h *DashboardHandlers) Products(c *gin.Context) {
	h.serveTab(c, "products", func(r *dashboard.Report) any { return r.Products })
}

func (h *DashboardHandlers) Customers(c *gin.Context) {
	h.serveTab(c, "customers", func(r *dashboard.Report) any { return r.Customers })
}

// Conversion serves the channel conversion table on its own.
func (h *DashboardHandlers) Conversion(c *gin.Context) {
	h.serveTab(c, "conversion", func(r *dashboard.Report) any { return r.Sales.Conversion })
}

func (h *DashboardHandlers) serveTab(c *gin.Context, name string, pick func(*dashboard.Report) any) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter", "details": err.Error()})
		return
	}

	report, err := h.Reports.Report(c.Request.Context(), filter)
	if err != nil {
		h.renderReportError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filter":          report.Filter,
		"dataset_version": report.DatasetVersion,
		"generated_at":    report.GeneratedAt,
		name:              pick(report),
	})
}

func (h *DashboardHandlers) renderReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter", "details": err.Error()})
	case errors.Is(err, analytics.ErrMixedChannels):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Sessions span several traffic sources", "details": err.Error()})
	default:
		h.logger.WithError(err).Error("Failed to build dashboard report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build dashboard report"})
	}
}

// Reload re-reads the dataset. On failure the previous snapshot stays live.
func (h *DashboardHandlers) Reload(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	snap, err := h.Dataset.Reload(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Dataset reload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload dataset", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dataset_version": snap.Version,
		"loaded_at":       snap.LoadedAt,
		"orders":          len(snap.Orders),
		"events":          len(snap.Events),
	})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseFilter reads ?year= and ?department=. Departments may be repeated or
// comma separated; a missing year means All.
func parseFilter(c *gin.Context) (analytics.Filter, error) {
	year, err := analytics.ParseYear(c.Query("year"))
	if err != nil {
		return analytics.Filter{}, err
	}

	var departments []string
	for _, raw := range c.QueryArray("department") {
		for _, d := range strings.Split(raw, ",") {
			if d = strings.TrimSpace(d); d != "" {
				departments = append(departments, d)
			}
		}
	}
	return analytics.Filter{Year: year, Departments: departments}, nil
}
