package imports

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
)

// Spreadsheet columns recognized by the parser. Header matching is
// case-insensitive; sku, title and price are mandatory.
const (
	columnSKU            = "sku"
	columnTitle          = "title"
	columnDescription    = "description"
	columnPrice          = "price"
	columnCompareAtPrice = "compare_at_price"
	columnStock          = "stock"
	columnCategory       = "category"
	columnImageKey       = "image_key"
)

// ParseProducts reads the uploaded spreadsheet into product rows. The
// format is picked from the filename extension: xlsx opens with excelize,
// everything else is treated as CSV. Row-level problems are collected and
// returned alongside the rows that did parse; a bad row never aborts the
// batch.
func ParseProducts(r io.Reader, filename string) ([]ProductRow, error) {
	var (
		records [][]string
		err     error
	)
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		records, err = readXLSX(r)
	} else {
		records, err = readCSV(r)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file has no rows")
	}

	columns, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([]ProductRow, 0, len(records)-1)
	var rowErrs error
	for i, record := range records[1:] {
		line := i + 2
		if isBlank(record) {
			continue
		}
		row, err := parseRow(record, columns, line)
		if err != nil {
			rowErrs = multierr.Append(rowErrs, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, rowErrs
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	records, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return records, nil
}

func mapHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{columnSKU, columnTitle, columnPrice} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return columns, nil
}

func parseRow(record []string, columns map[string]int, line int) (ProductRow, error) {
	cell := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row := ProductRow{
		Line:         line,
		SKU:          cell(columnSKU),
		Title:        cell(columnTitle),
		CategorySlug: cell(columnCategory),
		ImageKey:     cell(columnImageKey),
	}
	if row.SKU == "" {
		return ProductRow{}, fmt.Errorf("row %d: sku is empty", line)
	}
	if row.Title == "" {
		return ProductRow{}, fmt.Errorf("row %d: title is empty", line)
	}

	priceCents, err := parseCents(cell(columnPrice))
	if err != nil {
		return ProductRow{}, fmt.Errorf("row %d: price: %w", line, err)
	}
	row.PriceCents = priceCents

	if raw := cell(columnCompareAtPrice); raw != "" {
		compareCents, err := parseCents(raw)
		if err != nil {
			return ProductRow{}, fmt.Errorf("row %d: compare_at_price: %w", line, err)
		}
		row.CompareAtPriceCents = &compareCents
	}

	if raw := cell(columnStock); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil || stock < 0 {
			return ProductRow{}, fmt.Errorf("row %d: invalid stock %q", line, raw)
		}
		row.StockQty = stock
	}

	if description := cell(columnDescription); description != "" {
		row.Description = &description
	}
	return row, nil
}

// parseCents converts a decimal price string into integer cents. Sub-cent
// precision is rejected rather than rounded.
func parseCents(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("value is empty")
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q", raw)
	}
	if price.IsNegative() {
		return 0, fmt.Errorf("negative value %q", raw)
	}
	cents := price.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("value %q has sub-cent precision", raw)
	}
	return cents.IntPart(), nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
