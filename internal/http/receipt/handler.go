package receipt

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/http/render"
	"github.com/MrJamesThe3rd/fisly/internal/pipeline"
	"github.com/MrJamesThe3rd/fisly/internal/receipt"
)

type Handler struct {
	svc      *receipt.Service
	pipeline *pipeline.Service
	loc      *time.Location
}

// NewHandler returns the receipt handler. Date query parameters are read in loc.
func NewHandler(svc *receipt.Service, pipe *pipeline.Service, loc *time.Location) *Handler {
	return &Handler{svc: svc, pipeline: pipe, loc: loc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/confirm", h.confirm)
	r.Patch("/{id}", h.update)
	r.Put("/{id}/ocr", h.ingestOCR)
	r.Put("/{id}/qr", h.ingestQR)
}

type itemRequest struct {
	RawName   string           `json:"raw_name" validate:"required"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Unit      *string          `json:"unit,omitempty"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	Total     decimal.Decimal  `json:"total"`
	Discount  *decimal.Decimal `json:"discount,omitempty"`
}

type createReceiptRequest struct {
	MerchantID   *uuid.UUID      `json:"merchant_id,omitempty"`
	MerchantName string          `json:"merchant_name"`
	Date         time.Time       `json:"date" validate:"required"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency" validate:"omitempty,len=3,uppercase"`
	Items        []itemRequest   `json:"items" validate:"dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createReceiptRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := receipt.CreateParams{
		MerchantID:   req.MerchantID,
		MerchantName: req.MerchantName,
		Date:         req.Date,
		Total:        req.Total,
		Currency:     req.Currency,
	}

	for _, it := range req.Items {
		params.Items = append(params.Items, receipt.ItemParams{
			RawName:   it.RawName,
			Quantity:  it.Quantity,
			Unit:      it.Unit,
			UnitPrice: it.UnitPrice,
			Total:     it.Total,
			Discount:  it.Discount,
		})
	}

	rcpt, err := h.svc.Create(r.Context(), params)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(rcpt))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := h.listFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.svc.List(r.Context(), filter, render.Page(r))
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, render.NewPage(res, toResponse))
}

func (h *Handler) listFilter(r *http.Request) (receipt.ListFilter, error) {
	var (
		filter receipt.ListFilter
		err    error
	)

	q := r.URL.Query()

	if filter.MerchantID, err = render.UUIDQuery(r, "merchant_id"); err != nil {
		return filter, err
	}

	if filter.StartDate, err = render.DateQuery(r, "start_date", h.loc); err != nil {
		return filter, err
	}

	if filter.EndDate, err = render.EndDateQuery(r, "end_date", h.loc); err != nil {
		return filter, err
	}

	if s := q.Get("min_total"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return filter, errors.New("invalid min_total")
		}

		filter.MinTotal = &d
	}

	if s := q.Get("max_total"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return filter, errors.New("invalid max_total")
		}

		filter.MaxTotal = &d
	}

	if s := q.Get("q"); s != "" {
		filter.Search = new(s)
	}

	if s := q.Get("status"); s != "" {
		filter.Status = new(receipt.Status(s))
	}

	return filter, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rcpt, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(rcpt))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		render.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rcpt, err := h.svc.Confirm(r.Context(), id)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(rcpt))
}

type updateReceiptRequest struct {
	MerchantID   *uuid.UUID       `json:"merchant_id,omitempty"`
	MerchantName *string          `json:"merchant_name,omitempty" validate:"omitempty,min=1"`
	Date         *time.Time       `json:"date,omitempty"`
	Total        *decimal.Decimal `json:"total,omitempty"`
	Currency     *string          `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req updateReceiptRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rcpt, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, err)
		return
	}

	if req.MerchantID != nil {
		rcpt.MerchantID = req.MerchantID
	}

	if req.MerchantName != nil {
		rcpt.MerchantName = *req.MerchantName
	}

	if req.Date != nil {
		rcpt.Date = *req.Date
	}

	if req.Total != nil {
		rcpt.Total = *req.Total
	}

	if req.Currency != nil {
		rcpt.Currency = *req.Currency
	}

	if err := h.svc.Update(r.Context(), rcpt); err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(rcpt))
}

