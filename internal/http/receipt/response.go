package receipt

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/receipt"
)

type lineItemResponse struct {
	ID            uuid.UUID        `json:"id"`
	Position      int              `json:"position"`
	RawName       string           `json:"raw_name"`
	CleanedName   *string          `json:"cleaned_name,omitempty"`
	Quantity      decimal.Decimal  `json:"quantity"`
	Unit          *string          `json:"unit,omitempty"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	Total         decimal.Decimal  `json:"total"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	Confidence    float64          `json:"confidence"`
	DepartmentID  string           `json:"department_id,omitempty"`
	CategoryID    string           `json:"category_id,omitempty"`
	SubcategoryID string           `json:"subcategory_id,omitempty"`
	ItemGroupID   string           `json:"item_group_id,omitempty"`
	ProductID     *uuid.UUID       `json:"product_id,omitempty"`
	NeedsReview   bool             `json:"needs_review"`
}

type receiptResponse struct {
	ID             uuid.UUID          `json:"id"`
	MerchantID     *uuid.UUID         `json:"merchant_id,omitempty"`
	MerchantName   string             `json:"merchant_name"`
	Date           time.Time          `json:"date"`
	Total          decimal.Decimal    `json:"total"`
	Currency       string             `json:"currency"`
	Status         receipt.Status     `json:"status"`
	Source         receipt.Source     `json:"source"`
	Confidence     *float64           `json:"confidence,omitempty"`
	Review         receipt.Review     `json:"review"`
	ETTN           *string            `json:"ettn,omitempty"`
	DocumentNumber *string            `json:"document_number,omitempty"`
	MerchantTaxID  *string            `json:"merchant_tax_id,omitempty"`
	Items          []lineItemResponse `json:"items"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      *time.Time         `json:"updated_at,omitempty"`
}

func toResponse(r *receipt.Receipt) receiptResponse {
	resp := receiptResponse{
		ID:             r.ID,
		MerchantID:     r.MerchantID,
		MerchantName:   r.MerchantName,
		Date:           r.Date,
		Total:          r.Total,
		Currency:       r.Currency,
		Status:         r.Status,
		Source:         r.Source,
		Confidence:     r.Confidence,
		Review:         r.Review,
		ETTN:           r.ETTN,
		DocumentNumber: r.DocumentNumber,
		MerchantTaxID:  r.MerchantTaxID,
		Items:          make([]lineItemResponse, 0, len(r.Items)),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}

	for _, li := range r.Items {
		resp.Items = append(resp.Items, lineItemResponse{
			ID:            li.ID,
			Position:      li.Position,
			RawName:       li.RawName,
			CleanedName:   li.CleanedName,
			Quantity:      li.Quantity,
			Unit:          li.Unit,
			UnitPrice:     li.UnitPrice,
			Total:         li.Total,
			Discount:      li.Discount,
			Confidence:    li.Confidence,
			DepartmentID:  li.Classification.DepartmentID,
			CategoryID:    li.Classification.CategoryID,
			SubcategoryID: li.Classification.SubcategoryID,
			ItemGroupID:   li.Classification.ItemGroupID,
			ProductID:     li.ProductID,
			NeedsReview:   li.NeedsReview,
		})
	}

	return resp
}
