// Package pricelist reads merchant price-list CSV exports.
package pricelist

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/MrJamesThe3rd/fisly/internal/encoding"
	"github.com/MrJamesThe3rd/fisly/internal/money"
	"github.com/MrJamesThe3rd/fisly/internal/product"
	"github.com/MrJamesThe3rd/fisly/internal/textnorm"
)

var ErrUnknownFormat = errors.New("no matching price-list format found")

var dateLayouts = []string{
	"02.01.2006",
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
}

// Parser auto-detects the separator and header profile of a price list.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns one entry per priced row. Rows without a usable price are
// skipped; a priced row without a product name fails the whole file.
func (p *Parser) Parse(r io.Reader) ([]product.PriceEntry, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	content, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read price list: %w", err)
	}

	for _, sep := range separators {
		rows, err := readRows(content, sep)
		if err != nil {
			continue
		}

		if cols, headerIdx, ok := detectProfile(rows); ok {
			return parseRows(cols, rows[headerIdx+1:])
		}
	}

	return nil, fmt.Errorf("%w: expected Ürün and Fiyat columns", ErrUnknownFormat)
}

// record is one CSV record with the file line it starts on.
type record struct {
	line  int
	cells []string
}

func readRows(content []byte, sep rune) ([]record, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []record

	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}

		if err != nil {
			return nil, err
		}

		line, _ := reader.FieldPos(0)
		rows = append(rows, record{line: line, cells: cells})
	}
}

// columns holds the index of each detected column, -1 when absent.
type columns struct {
	name, price, barcode, date, category int
}

func detectProfile(rows []record) (columns, int, bool) {
	for rowIdx, row := range rows {
		header := make(map[string]int)

		for i, cell := range row.cells {
			if key := textnorm.Fold(cell); key != "" {
				if _, seen := header[key]; !seen {
					header[key] = i
				}
			}
		}

		for _, p := range profiles {
			cols := columns{
				name:     find(header, p.NameCols),
				price:    find(header, p.PriceCols),
				barcode:  find(header, p.BarcodeCols),
				date:     find(header, p.DateCols),
				category: find(header, p.CategoryCol),
			}

			if cols.name >= 0 && cols.price >= 0 {
				return cols, rowIdx, true
			}
		}
	}

	return columns{}, 0, false
}

func find(header map[string]int, names []string) int {
	for _, name := range names {
		if i, ok := header[textnorm.Fold(name)]; ok {
			return i
		}
	}

	return -1
}

func parseRows(cols columns, rows []record) ([]product.PriceEntry, error) {
	var entries []product.PriceEntry

	for _, rec := range rows {
		row := rec.cells

		price, err := money.ParsePositive(cellValue(row, cols.price))
		if err != nil {
			continue
		}

		name := strings.Join(strings.Fields(cellValue(row, cols.name)), " ")
		if name == "" {
			return nil, fmt.Errorf("row %d: missing product name", rec.line)
		}

		entry := product.PriceEntry{
			Line:     rec.line,
			Name:     name,
			Category: cellValue(row, cols.category),
			Price:    price.Round(2),
		}

		if barcode := cellValue(row, cols.barcode); barcode != "" {
			entry.Barcode = &barcode
		}

		if date, ok := parseDate(cellValue(row, cols.date)); ok {
			entry.ObservedAt = &date
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
