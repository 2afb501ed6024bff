// Package export serializes vault snapshots into the formats the
// application shares: CSV, JSON and XLSX workbooks.
package export

import (
	"strconv"
	"strings"

	"github.com/scanvault/scanvault/internal/vault"
)

const csvHeader = "Vendor,Amount,Date,Notes,Tags,Image URI,Created At"

// CSV renders the receipt collection as CSV with a fixed column order.
// String fields are quoted with embedded quotes doubled; tags are joined
// with ";"; the amount stays unquoted.
func CSV(snapshot vault.Snapshot) []byte {
	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')

	for _, receipt := range snapshot.Receipts {
		b.WriteString(quote(receipt.Vendor))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(receipt.Amount, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(quote(receipt.Date))
		b.WriteByte(',')
		b.WriteString(quote(receipt.Notes))
		b.WriteByte(',')
		b.WriteString(quote(strings.Join(receipt.Tags, ";")))
		b.WriteByte(',')
		b.WriteString(quote(receipt.ImageURI))
		b.WriteByte(',')
		b.WriteString(quote(receipt.CreatedAt))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
