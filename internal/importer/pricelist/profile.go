package pricelist

// Profile describes the header landmarks of one price-list export style.
// Each column lists its accepted header spellings, most specific first.
// Headers are compared folded, so case and Turkish letters do not matter.
type Profile struct {
	Name        string
	NameCols    []string
	PriceCols   []string
	BarcodeCols []string // optional
	DateCols    []string // optional
	CategoryCol []string // optional
}

// profiles is tried in order during detection.
var profiles = []Profile{
	{
		Name:        "turkish",
		NameCols:    []string{"Ürün Adı", "Ürün", "Ürün İsmi"},
		PriceCols:   []string{"Birim Fiyat", "Satış Fiyatı", "Fiyat"},
		BarcodeCols: []string{"Barkod", "Barkod No"},
		DateCols:    []string{"Tarih", "Fiyat Tarihi"},
		CategoryCol: []string{"Kategori"},
	},
	{
		Name:        "english",
		NameCols:    []string{"Product Name", "Product"},
		PriceCols:   []string{"Unit Price", "Price"},
		BarcodeCols: []string{"Barcode", "EAN"},
		DateCols:    []string{"Date"},
		CategoryCol: []string{"Category"},
	},
}

// separators are tried in order; the first one producing a known header wins.
var separators = []rune{';', ',', '\t'}
