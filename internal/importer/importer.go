package importer

import (
	"io"

	"github.com/MrJamesThe3rd/fisly/internal/product"
)

type Format string

const (
	FormatPriceList Format = "pricelist"
)

type Importer interface {
	Parse(r io.Reader) ([]product.PriceEntry, error)
}
