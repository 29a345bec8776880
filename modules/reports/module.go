// Package reports computes utilization statistics over the allocation join
// and renders them as JSON or as a PDF with embedded charts.
package reports

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/planwheel/planwheel/engine"
	"github.com/planwheel/planwheel/internal/domain"
	"golang.org/x/time/rate"
)

type Module struct {
	db *sql.DB
}

func New(db *sql.DB) *Module {
	return &Module{db: db}
}

func (m *Module) AttachRoutes(router *engine.Router) {
	router.HandleFunc("GET /api/reports/utilization", m.handleUtilization)
	router.HandleFunc("GET /api/reports/usage-by-type", m.handleUsageByType)

	// PDF generation is the most expensive thing this server does.
	exportLimiter := rate.NewLimiter(rate.Every(time.Second), 2)
	router.HandleFunc("GET /api/reports/export", engine.Throttle(exportLimiter, m.handleExport))
}

func (m *Module) handleUtilization(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromQuery(r, true)
	if err != nil {
		domain.WriteError(w, err)
		return
	}

	stats, err := m.AggregateByResource(r.Context(), *window)
	if err != nil {
		domain.WriteError(w, err)
		return
	}
	engine.WriteJSON(w, http.StatusOK, stats)
}

func (m *Module) handleUsageByType(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromQuery(r, false)
	if err != nil {
		domain.WriteError(w, err)
		return
	}

	usage, err := m.AggregateByType(r.Context(), window)
	if err != nil {
		domain.WriteError(w, err)
		return
	}
	engine.WriteJSON(w, http.StatusOK, usage)
}

func (m *Module) handleExport(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromQuery(r, true)
	if err != nil {
		domain.WriteError(w, err)
		return
	}

	stats, err := m.AggregateByResource(r.Context(), *window)
	if err != nil {
		domain.WriteError(w, err)
		return
	}
	types, err := m.AggregateByType(r.Context(), window)
	if err != nil {
		domain.WriteError(w, err)
		return
	}

	startStr := r.URL.Query().Get("start_date")
	endStr := r.URL.Query().Get("end_date")
	pdf, err := renderPDF(fmt.Sprintf("From %s to %s", startStr, endStr), stats, types)
	if engine.HandleError(w, err) {
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("report_%s_%s.pdf", startStr, endStr)))
	w.Write(pdf)
}

// windowFromQuery parses the start_date/end_date params. When required is
// false and neither param is present, it returns nil for the "all time"
// variant.
func windowFromQuery(r *http.Request, required bool) (*Window, error) {
	startStr := r.URL.Query().Get("start_date")
	endStr := r.URL.Query().Get("end_date")

	if startStr == "" && endStr == "" && !required {
		return nil, nil
	}
	if startStr == "" || endStr == "" {
		return nil, domain.Malformed("Please provide start_date and end_date")
	}

	start, err := domain.ParseStamp(startStr)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseStamp(endStr)
	if err != nil {
		return nil, err
	}
	return &Window{Start: start, End: end}, nil
}
