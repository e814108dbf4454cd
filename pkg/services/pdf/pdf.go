// Package pdf renders invoices as PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"strconv"

	"fiverflow/pkg/models"
	"fiverflow/pkg/services/calc"

	"github.com/jung-kurt/gofpdf"
)

var columnWidths = []float64{12, 88, 20, 35, 35}

// Render returns inv as an A4 PDF
func Render(inv *models.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Invoice "+inv.InvoiceNumber, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr("Invoice "+inv.InvoiceNumber), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, row := range [][2]string{
		{"Date", inv.Date},
		{"From", inv.VendorName},
		{"Bill to", inv.BillTo},
	} {
		if row[1] == "" {
			continue
		}
		pdf.CellFormat(30, 6, row[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"#", "Description", "Qty", "Unit price", "Total"} {
		align := "R"
		if i == 1 {
			align = "L"
		}
		pdf.CellFormat(columnWidths[i], 8, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, item := range inv.Items {
		cells := []string{
			strconv.Itoa(item.Position),
			tr(item.Description),
			strconv.FormatFloat(item.Quantity.Float(), 'f', -1, 64),
			calc.FormatAmount(item.UnitPrice.Float(), ""),
			calc.FormatAmount(item.LineTotal, ""),
		}
		for i, c := range cells {
			align := "R"
			if i == 1 {
				align = "L"
			}
			pdf.CellFormat(columnWidths[i], 7, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	labelWidth := columnWidths[0] + columnWidths[1] + columnWidths[2] + columnWidths[3]
	totals := [][2]string{
		{"Subtotal", calc.FormatAmount(inv.Subtotal, inv.Currency)},
		{"Discount", calc.FormatAmount(-inv.DiscountAmount, inv.Currency)},
		{fmt.Sprintf("Tax (%s%%)", strconv.FormatFloat(inv.TaxRate.Float(), 'f', -1, 64)), calc.FormatAmount(inv.TaxAmount, inv.Currency)},
		{"Total", calc.FormatAmount(inv.TotalAmount, inv.Currency)},
	}
	for i, row := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Arial", "B", 11)
		}
		pdf.CellFormat(labelWidth, 7, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(columnWidths[4], 7, row[1], "", 1, "R", false, 0, "")
	}

	if inv.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, tr(inv.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
