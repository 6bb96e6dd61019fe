package product

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/http/render"
	"github.com/MrJamesThe3rd/fisly/internal/product"
)

type Handler struct {
	svc *product.Service
}

func NewHandler(svc *product.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/match", h.match)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/prices", h.prices)
	r.Post("/{id}/prices", h.recordPrice)
	r.Get("/{id}/compare", h.compare)
}

type productResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category,omitempty"`
	Barcode        *string   `json:"barcode,omitempty"`
	Brand          *string   `json:"brand,omitempty"`
	NormalizedName string    `json:"normalized_name"`
	CreatedAt      time.Time `json:"created_at"`
}

func toResponse(p *product.Product) productResponse {
	return productResponse{
		ID:             p.ID,
		Name:           p.Name,
		Category:       p.Category,
		Barcode:        p.Barcode,
		Brand:          p.Brand,
		NormalizedName: p.NormalizedName,
		CreatedAt:      p.CreatedAt,
	}
}

type priceResponse struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  uuid.UUID       `json:"product_id"`
	MerchantID uuid.UUID       `json:"merchant_id"`
	Price      decimal.Decimal `json:"price"`
	ObservedAt time.Time       `json:"observed_at"`
	Source     product.Source  `json:"source"`
}

func toPriceResponse(p product.Price) priceResponse {
	return priceResponse{
		ID:         p.ID,
		ProductID:  p.ProductID,
		MerchantID: p.MerchantID,
		Price:      p.Price,
		ObservedAt: p.ObservedAt,
		Source:     p.Source,
	}
}

type createProductRequest struct {
	Name     string  `json:"name" validate:"required"`
	Category string  `json:"category"`
	Barcode  *string `json:"barcode,omitempty" validate:"omitempty,numeric,min=8,max=14"`
	Brand    *string `json:"brand,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.Create(r.Context(), product.CreateParams(req))
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var filter product.ListFilter

	if s := r.URL.Query().Get("q"); s != "" {
		filter.Search = new(s)
	}

	if s := r.URL.Query().Get("category"); s != "" {
		filter.Category = new(s)
	}

	res, err := h.svc.List(r.Context(), filter, render.Page(r))
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, render.NewPage(res, toResponse))
}

type scoredResponse struct {
	Product productResponse `json:"product"`
	Score   float64         `json:"score"`
}

// match lists the catalog products similar to name, best first.
func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	var threshold float64
	if s := r.URL.Query().Get("threshold"); s != "" {
		t, err := strconv.ParseFloat(s, 64)
		if err != nil {
			http.Error(w, "invalid threshold", http.StatusBadRequest)
			return
		}

		threshold = t
	}

	scored, err := h.svc.FuzzyMatch(name, threshold)
	if err != nil {
		render.Error(w, err)
		return
	}

	resp := make([]scoredResponse, 0, len(scored))
	for _, s := range scored {
		resp = append(resp, scoredResponse{Product: toResponse(&s.Product), Score: s.Score})
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(p))
}

type updateProductRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Category *string `json:"category,omitempty"`
	Barcode  *string `json:"barcode,omitempty"`
	Brand    *string `json:"brand,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req updateProductRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, err)
		return
	}

	if req.Name != nil {
		p.Name = *req.Name
	}

	if req.Category != nil {
		p.Category = *req.Category
	}

	if req.Barcode != nil {
		p.Barcode = req.Barcode
	}

	if req.Brand != nil {
		p.Brand = req.Brand
	}

	if err := h.svc.Update(r.Context(), p); err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(p))
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

func (h *Handler) prices(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	prices, err := h.svc.Prices(r.Context(), id)
	if err != nil {
		render.Error(w, err)
		return
	}

	resp := make([]priceResponse, 0, len(prices))
	for _, p := range prices {
		resp = append(resp, toPriceResponse(p))
	}

	render.JSON(w, http.StatusOK, resp)
}

type recordPriceRequest struct {
	MerchantID uuid.UUID       `json:"merchant_id" validate:"required"`
	Price      decimal.Decimal `json:"price"`
	ObservedAt *time.Time      `json:"observed_at,omitempty"`
	Source     product.Source  `json:"source" validate:"omitempty,oneof=manual scraped user_reported"`
}

func (h *Handler) recordPrice(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req recordPriceRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := product.PriceParams{
		ProductID:  id,
		MerchantID: req.MerchantID,
		Price:      req.Price,
		Source:     req.Source,
	}

	if req.ObservedAt != nil {
		params.ObservedAt = *req.ObservedAt
	}

	p, err := h.svc.RecordPrice(r.Context(), params)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusCreated, toPriceResponse(*p))
}

type comparisonResponse struct {
	Found              bool            `json:"found"`
	CheapestMerchantID *uuid.UUID      `json:"cheapest_merchant_id,omitempty"`
	CheapestPrice      decimal.Decimal `json:"cheapest_price"`
	ObservedAt         *time.Time      `json:"observed_at,omitempty"`
	Source             product.Source  `json:"source,omitempty"`
	UserPaid           decimal.Decimal `json:"user_paid"`
	Savings            decimal.Decimal `json:"savings"`
	SavingsPercentage  decimal.Decimal `json:"savings_percentage"`
	AlreadyCheapest    bool            `json:"already_cheapest"`
}

// compare reports how much cheaper the product was observed elsewhere than
// the paid query parameter. Repeated source parameters restrict the
// observations considered.
func (h *Handler) compare(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	paid, err := decimal.NewFromString(r.URL.Query().Get("paid"))
	if err != nil {
		http.Error(w, "paid query parameter must be a decimal amount", http.StatusBadRequest)
		return
	}

	merchantID, err := render.UUIDQuery(r, "merchant_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := product.CompareParams{ProductID: id, UserPaid: paid}
	if merchantID != nil {
		params.UserMerchantID = *merchantID
	}

	for _, s := range r.URL.Query()["source"] {
		src := product.Source(s)
		if !src.Valid() {
			http.Error(w, "unknown source "+s, http.StatusBadRequest)
			return
		}

		params.Sources = append(params.Sources, src)
	}

	c, err := h.svc.ComparePrice(r.Context(), params)
	if err != nil {
		render.Error(w, err)
		return
	}

	resp := comparisonResponse{
		Found:             c.Found,
		CheapestPrice:     c.CheapestPrice,
		Source:            c.Source,
		UserPaid:          c.UserPaid,
		Savings:           c.Savings,
		SavingsPercentage: c.SavingsPercentage,
		AlreadyCheapest:   c.AlreadyCheapest(),
	}

	if c.Found {
		resp.CheapestMerchantID = &c.CheapestMerchantID
		resp.ObservedAt = &c.ObservedAt
	}

	render.JSON(w, http.StatusOK, resp)
}
