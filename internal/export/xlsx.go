package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/scanvault/scanvault/internal/vault"
)

// XLSX renders the snapshot as a workbook with a Receipts sheet and a
// Categories sheet, returned as bytes.
func XLSX(snapshot vault.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const receiptSheet = "Receipts"
	const categorySheet = "Categories"

	if err := f.SetSheetName("Sheet1", receiptSheet); err != nil {
		return nil, fmt.Errorf("naming receipt sheet: %w", err)
	}
	if _, err := f.NewSheet(categorySheet); err != nil {
		return nil, fmt.Errorf("creating category sheet: %w", err)
	}

	write := func(sheet string, col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, cell, v)
	}

	receiptHeaders := []string{"Vendor", "Amount", "Date", "Notes", "Tags", "Image URI", "Created At"}
	for i, h := range receiptHeaders {
		if err := write(receiptSheet, i+1, 1, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for i, r := range snapshot.Receipts {
		row := i + 2
		values := []any{r.Vendor, r.Amount, r.Date, r.Notes, strings.Join(r.Tags, ";"), r.ImageURI, r.CreatedAt}
		for col, v := range values {
			if err := write(receiptSheet, col+1, row, v); err != nil {
				return nil, fmt.Errorf("writing receipt row %d: %w", row, err)
			}
		}
	}

	categoryHeaders := []string{"Name", "Color", "Created At"}
	for i, h := range categoryHeaders {
		if err := write(categorySheet, i+1, 1, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for i, c := range snapshot.Categories {
		row := i + 2
		values := []any{c.Name, c.Color, c.CreatedAt}
		for col, v := range values {
			if err := write(categorySheet, col+1, row, v); err != nil {
				return nil, fmt.Errorf("writing category row %d: %w", row, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("rendering workbook: %w", err)
	}
	return buf.Bytes(), nil
}
