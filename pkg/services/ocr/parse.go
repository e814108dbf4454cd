package ocr

import (
	"regexp"
	"sort"
	"strings"

	"fiverflow/pkg/models"
	"fiverflow/pkg/services/calc"
)

// itemPattern matches "<description> <qty> [x] <unit price> [<line total>]".
// A trailing line total is ignored; totals are always recomputed.
var itemPattern = regexp.MustCompile(
	`^(.*?\S)\s+(\d+(?:[.,]\d+)?)(?:\s*[xX×@]\s*|\s+)[$€£]?(\d+(?:[.,]\d{1,2})?)(?:\s+[$€£]?\d+(?:[.,]\d{1,2})?)?$`,
)

// summaryLabels are row labels that introduce totals or header fields
// rather than items.
var summaryLabels = []string{
	"subtotal", "sub total", "total", "tax", "vat", "discount",
	"date", "invoice", "invoice no", "due", "balance", "amount due",
}

// ParseLines turns OCR text lines into normalized draft invoice items.
// Lines are read top to bottom; anything that does not look like an item
// row is skipped.
func ParseLines(lines []models.TextLine) []models.InvoiceLine {
	sorted := make([]models.TextLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var items []models.InvoiceLine
	for _, line := range sorted {
		text := strings.TrimSpace(line.Text)
		m := itemPattern.FindStringSubmatch(text)
		if m == nil || isSummary(m[1]) {
			continue
		}
		items = append(items, models.InvoiceLine{
			Description: m[1],
			Quantity:    models.ParseNumber(strings.ReplaceAll(m[2], ",", ".")),
			UnitPrice:   models.ParseNumber(strings.ReplaceAll(m[3], ",", ".")),
		})
	}
	return calc.NormalizeItems(items)
}

// isSummary reports whether desc is a bare label ("Total", "Tax:") or a
// label with a qualifier ("Tax (10%)", "Invoice #", "VAT: 20%").
func isSummary(desc string) bool {
	d := strings.ToLower(strings.TrimSpace(desc))
	d = strings.TrimSuffix(d, ":")
	for _, label := range summaryLabels {
		if d == label {
			return true
		}
		rest, ok := strings.CutPrefix(d, label)
		if !ok {
			continue
		}
		rest = strings.TrimLeft(rest, " ")
		if rest != "" && strings.ContainsRune(":(#%", rune(rest[0])) {
			return true
		}
	}
	return false
}
