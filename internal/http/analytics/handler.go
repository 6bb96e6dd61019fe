package analytics

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/analytics"
	"github.com/MrJamesThe3rd/fisly/internal/http/render"
	"github.com/MrJamesThe3rd/fisly/internal/report"
)

type Handler struct {
	svc       *analytics.Service
	formatter *report.Formatter
	loc       *time.Location
}

func NewHandler(svc *analytics.Service, formatter *report.Formatter, loc *time.Location) *Handler {
	return &Handler{svc: svc, formatter: formatter, loc: loc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/report", h.report)
	r.Get("/report/download", h.download)
}

type summaryResponse struct {
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"average"`
	Items   int             `json:"items"`
}

type categoryResponse struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
	Percentage decimal.Decimal `json:"percentage"`
	Items      int             `json:"items"`
}

type merchantResponse struct {
	Key        string          `json:"key"`
	MerchantID *uuid.UUID      `json:"merchant_id,omitempty"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
	Visits     int             `json:"visits"`
}

type trendResponse struct {
	Label string          `json:"label"`
	Start time.Time       `json:"start"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

type reportResponse struct {
	Period     analytics.Period   `json:"period"`
	Summary    summaryResponse    `json:"summary"`
	Categories []categoryResponse `json:"categories"`
	Merchants  []merchantResponse `json:"merchants"`
	Trend      []trendResponse    `json:"trend"`
}

func toResponse(rep analytics.Report) reportResponse {
	resp := reportResponse{
		Period:     rep.Filter.Period,
		Summary:    summaryResponse(rep.Summary),
		Categories: make([]categoryResponse, 0, len(rep.Breakdown.Categories)),
		Merchants:  make([]merchantResponse, 0, len(rep.Ranking)),
		Trend:      make([]trendResponse, 0, len(rep.Trend)),
	}

	for _, c := range rep.Breakdown.Categories {
		resp.Categories = append(resp.Categories, categoryResponse(c))
	}

	for _, m := range rep.Ranking {
		resp.Merchants = append(resp.Merchants, merchantResponse(m))
	}

	for _, p := range rep.Trend {
		resp.Trend = append(resp.Trend, trendResponse(p))
	}

	return resp
}

// filter reads the report query parameters. Period defaults to month.
func (h *Handler) filter(r *http.Request) (analytics.Filter, error) {
	var (
		f   analytics.Filter
		err error
	)

	f.Period = analytics.Period(r.URL.Query().Get("period"))
	if f.Period == "" {
		f.Period = analytics.PeriodMonth
	}

	if f.Start, err = render.DateQuery(r, "start_date", h.loc); err != nil {
		return f, err
	}

	if f.End, err = render.EndDateQuery(r, "end_date", h.loc); err != nil {
		return f, err
	}

	if f.MerchantID, err = render.UUIDQuery(r, "merchant_id"); err != nil {
		return f, err
	}

	if s := r.URL.Query().Get("category_id"); s != "" {
		f.CategoryID = new(s)
	}

	return f, nil
}

// report answers with JSON, or with plain text when format=text.
func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rep, err := h.svc.Report(r.Context(), f)
	if err != nil {
		render.Error(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		if err := h.formatter.WriteText(w, rep); err != nil {
			slog.Error("failed to write report", "error", err)
		}

		return
	}

	render.JSON(w, http.StatusOK, toResponse(rep))
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rep, err := h.svc.Report(r.Context(), f)
	if err != nil {
		render.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"report_%s.txt\"", time.Now().In(h.loc).Format("20060102")))

	if err := h.formatter.WriteText(w, rep); err != nil {
		slog.Error("failed to write report", "error", err)
	}
}
