package receipt

import (
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/encoding"
	"github.com/MrJamesThe3rd/fisly/internal/http/render"
	"github.com/MrJamesThe3rd/fisly/internal/ocr"
)

const maxQRPayload = 16 << 10

type ocrValueRequest struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

type ocrItemRequest struct {
	Name         string          `json:"name" validate:"required"`
	CleanedName  *string         `json:"cleaned_name,omitempty"`
	CategoryHint *string         `json:"category_hint,omitempty"`
	Barcode      *string         `json:"barcode,omitempty" validate:"omitempty,numeric,min=8,max=14"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Confidence   float64         `json:"confidence" validate:"gte=0,lte=1"`
}

type ocrRequest struct {
	Merchant ocrValueRequest  `json:"merchant"`
	Date     ocrValueRequest  `json:"date"`
	Total    ocrValueRequest  `json:"total"`
	Items    []ocrItemRequest `json:"items" validate:"dive"`
	RawText  string           `json:"raw_text,omitempty"`
}

func (req ocrRequest) toResult() ocr.Result {
	res := ocr.Result{
		Merchant: ocr.Value(req.Merchant),
		Date:     ocr.Value(req.Date),
		Total:    ocr.Value(req.Total),
		RawText:  req.RawText,
	}

	for _, it := range req.Items {
		res.Items = append(res.Items, ocr.Item{
			Name:         it.Name,
			CleanedName:  it.CleanedName,
			CategoryHint: it.CategoryHint,
			Barcode:      it.Barcode,
			Quantity:     it.Quantity,
			Price:        it.Price,
			Confidence:   it.Confidence,
		})
	}

	return res
}

// ingestOCR stores the OCR result of a receipt image under the id in the path.
// Repeating the request with the same body yields the same receipt.
func (h *Handler) ingestOCR(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req ocrRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rcpt, err := h.pipeline.ProcessOCR(r.Context(), id, req.toResult())
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(rcpt))
}

// ingestQR takes the scanned QR text as the raw request body.
func (h *Handler) ingestQR(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxQRPayload))
	if err != nil {
		http.Error(w, "failed to read payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	raw, err := encoding.DecodeString(body)
	if err != nil {
		http.Error(w, "failed to decode payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(raw) == "" {
		http.Error(w, "payload is required", http.StatusBadRequest)
		return
	}

	rcpt, err := h.pipeline.ProcessQR(r.Context(), id, raw)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(rcpt))
}
