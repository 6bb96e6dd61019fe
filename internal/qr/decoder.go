package qr

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/money"
	"github.com/MrJamesThe3rd/fisly/internal/textnorm"
)

// signatures are the tags whose presence identifies a GİB payload.
var signatures = []string{
	"vkntckn",
	"avkntckn",
	"ettn",
	"odenecek",
	"vergidahil",
	"malhizmettoplam",
	"hesaplanankdv",
	"senaryo",
}

var dateLayouts = []string{
	time.DateOnly,
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
	"20060102",
}

var timeLayouts = []string{
	time.TimeOnly,
	"15:04",
	"150405",
}

// DetectFormat reports whether raw carries at least one GİB tag signature.
func DetectFormat(raw string) Format {
	lower := strings.ToLower(raw)
	for _, sig := range signatures {
		if strings.Contains(lower, sig) {
			return FormatGIBEArchive
		}
	}

	return FormatUnknown
}

// Decode parses a raw QR string. It never fails: unrecognized payloads come
// back with FormatUnknown and the raw string, and fields that cannot be
// coerced are left unset.
func Decode(raw string) Result {
	data := Data{RawQRString: raw, Format: DetectFormat(raw)}
	if data.Format == FormatUnknown {
		return Result{Data: data}
	}

	var (
		payable, taxIncluded, goodsTotal *decimal.Decimal
		tax                              decimal.Decimal
		taxSeen                          bool
	)

	for _, p := range tokenize(raw) {
		value := strings.TrimSpace(p.Value)
		if value == "" {
			continue
		}

		switch tag := tagName(p.Key); tag {
		case "no":
			data.DocumentNumber = &value
		case "tarih":
			applyDate(&data, value)
		case "saat", "zaman":
			if clock, ok := parseClock(value); ok {
				data.DocumentTime = &clock
			}
		case "vkntckn":
			data.MerchantTaxID = &value
		case "avkntckn":
			data.BuyerTaxID = &value
		case "unvan":
			data.MerchantTitle = &value
		case "satici", "ad":
			data.MerchantName = &value
		case "odenecek":
			payable = positive(value)
		case "vergidahil":
			taxIncluded = positive(value)
		case "malhizmettoplam":
			goodsTotal = positive(value)
		case "iskonto":
			data.DiscountAmount = positive(value)
		case "ettn":
			data.ETTN = &value
		case "parabirimi":
			currency := strings.ToUpper(value)
			data.Currency = &currency
		case "senaryo":
			data.Scenario = &value
		case "tip":
			data.InvoiceType = &value
		default:
			if strings.HasPrefix(tag, "hesaplanankdv") {
				if amount := positive(value); amount != nil {
					tax = tax.Add(*amount)
					taxSeen = true
				}
			}
		}
	}

	for _, candidate := range []*decimal.Decimal{payable, taxIncluded, goodsTotal} {
		if candidate != nil {
			data.TotalAmount = candidate
			break
		}
	}

	if taxSeen {
		data.TaxAmount = &tax
	}

	hasMerchant := data.MerchantTaxID != nil || data.MerchantName != nil || data.MerchantTitle != nil

	return Result{Data: data, Success: hasMerchant && data.TotalAmount != nil}
}

// tagName folds a key and keeps its leading letters, so that
// "HesaplananKDV(20)" and "hesaplanankdv" name the same tag.
func tagName(key string) string {
	folded := textnorm.Fold(key)

	end := strings.IndexFunc(folded, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		return folded
	}

	return folded[:end]
}

func positive(s string) *decimal.Decimal {
	d, err := money.ParsePositive(s)
	if err != nil {
		return nil
	}

	return &d
}

// applyDate sets the date, and the time when the value carries one.
func applyDate(data *Data, value string) {
	datePart, clockPart, _ := strings.Cut(strings.Replace(value, "T", " ", 1), " ")

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, datePart); err == nil {
			data.DocumentDate = &t
			break
		}
	}

	if clockPart == "" || data.DocumentTime != nil {
		return
	}

	if clock, ok := parseClock(clockPart); ok {
		data.DocumentTime = &clock
	}
}

// parseClock normalizes a time of day to HH:MM:SS.
func parseClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.TimeOnly), true
		}
	}

	return "", false
}
