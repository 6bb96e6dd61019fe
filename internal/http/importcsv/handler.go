package importcsv

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/http/render"
	"github.com/MrJamesThe3rd/fisly/internal/importer"
)

const maxUpload = 10 << 20

type Handler struct {
	importSvc *importer.Service
}

func NewHandler(importSvc *importer.Service) *Handler {
	return &Handler{importSvc: importSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
}

type priceResponse struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Price      decimal.Decimal `json:"price"`
	ObservedAt time.Time       `json:"observed_at"`
}

type failedRowResponse struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

type importSuccessResponse struct {
	Rows     int                 `json:"rows"`
	Imported int                 `json:"imported"`
	Prices   []priceResponse     `json:"prices"`
	Failed   []failedRowResponse `json:"failed"`
}

// importCSV takes a multipart form with the merchant_id the list belongs to,
// an optional format (default "pricelist") and the file itself.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	merchantID, err := uuid.Parse(r.FormValue("merchant_id"))
	if err != nil {
		http.Error(w, "merchant_id field is required", http.StatusBadRequest)
		return
	}

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		format = importer.FormatPriceList
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	res, err := h.importSvc.Import(r.Context(), format, merchantID, file)
	if err != nil {
		render.Error(w, err)
		return
	}

	resp := importSuccessResponse{
		Rows:     res.Rows,
		Imported: len(res.Prices),
		Prices:   make([]priceResponse, 0, len(res.Prices)),
		Failed:   make([]failedRowResponse, 0, len(res.Failed)),
	}

	for _, p := range res.Prices {
		resp.Prices = append(resp.Prices, priceResponse{
			ID:         p.ID,
			ProductID:  p.ProductID,
			Price:      p.Price,
			ObservedAt: p.ObservedAt,
		})
	}

	for _, f := range res.Failed {
		resp.Failed = append(resp.Failed, failedRowResponse{Line: f.Line, Error: f.Err.Error()})
	}

	render.JSON(w, http.StatusCreated, resp)
}
