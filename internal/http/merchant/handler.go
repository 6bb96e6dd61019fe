package merchant

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fisly/internal/http/render"
	"github.com/MrJamesThe3rd/fisly/internal/merchant"
)

type Handler struct {
	svc *merchant.Service
}

func NewHandler(svc *merchant.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/resolve", h.resolve)
	r.Get("/{id}", h.get)
	r.Put("/{id}/patterns", h.setPatterns)
	r.Delete("/{id}", h.delete)
}

type patternDTO struct {
	Text  string `json:"text" validate:"required"`
	Regex bool   `json:"regex,omitempty"`
}

type merchantResponse struct {
	ID            uuid.UUID         `json:"id"`
	CanonicalName string            `json:"canonical_name"`
	DisplayName   string            `json:"display_name"`
	Category      merchant.Category `json:"category"`
	Patterns      []patternDTO      `json:"patterns"`
	CreatedAt     time.Time         `json:"created_at"`
}

func toResponse(m *merchant.Merchant) merchantResponse {
	resp := merchantResponse{
		ID:            m.ID,
		CanonicalName: m.CanonicalName,
		DisplayName:   m.DisplayName,
		Category:      m.Category,
		Patterns:      make([]patternDTO, 0, len(m.Patterns)),
		CreatedAt:     m.CreatedAt,
	}

	for _, p := range m.Patterns {
		resp.Patterns = append(resp.Patterns, patternDTO(p))
	}

	return resp
}

func toPatterns(dtos []patternDTO) []merchant.Pattern {
	patterns := make([]merchant.Pattern, 0, len(dtos))
	for _, p := range dtos {
		patterns = append(patterns, merchant.Pattern(p))
	}

	return patterns
}

type createMerchantRequest struct {
	CanonicalName string            `json:"canonical_name" validate:"required"`
	DisplayName   string            `json:"display_name"`
	Category      merchant.Category `json:"category" validate:"omitempty,oneof=grocery supermarket convenience other"`
	Patterns      []patternDTO      `json:"patterns" validate:"dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createMerchantRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.svc.Create(r.Context(), merchant.CreateParams{
		CanonicalName: req.CanonicalName,
		DisplayName:   req.DisplayName,
		Category:      req.Category,
		Patterns:      toPatterns(req.Patterns),
	})
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(m))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	merchants, err := h.svc.List(r.Context())
	if err != nil {
		render.Error(w, err)
		return
	}

	resp := make([]merchantResponse, 0, len(merchants))
	for _, m := range merchants {
		resp = append(resp, toResponse(m))
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(m))
}

type setPatternsRequest struct {
	Patterns []patternDTO `json:"patterns" validate:"dive"`
}

func (h *Handler) setPatterns(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req setPatternsRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.SetPatterns(r.Context(), id, toPatterns(req.Patterns)); err != nil {
		render.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
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

type resolveResponse struct {
	Text       string             `json:"text"`
	MerchantID *uuid.UUID         `json:"merchant_id,omitempty"`
	Confidence float64            `json:"confidence"`
	MatchedBy  merchant.MatchedBy `json:"matched_by"`
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		http.Error(w, "text query parameter is required", http.StatusBadRequest)
		return
	}

	m := h.svc.Resolve(text)

	render.JSON(w, http.StatusOK, resolveResponse{
		Text:       text,
		MerchantID: m.MerchantID,
		Confidence: m.Confidence,
		MatchedBy:  m.MatchedBy,
	})
}
