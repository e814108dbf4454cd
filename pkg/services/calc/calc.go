// Package calc computes invoice line totals and invoice-level totals.
//
// All amounts are rounded to cents with Round2. Inputs are never validated:
// negative quantities, prices, tax rates or discounts flow through the
// arithmetic unchanged.
package calc

import (
	"math"
	"strings"

	"fiverflow/pkg/models"

	"github.com/shopspring/decimal"
)

// Input holds the values an invoice total is computed from
type Input struct {
	Items    []models.InvoiceLine `json:"items"`
	TaxRate  models.Number        `json:"tax_rate"`
	Discount models.Number        `json:"discount"`
}

// Result holds the computed items and totals of an invoice
type Result struct {
	Items          []models.InvoiceLine `json:"items"`
	Subtotal       float64              `json:"subtotal"`
	TaxAmount      float64              `json:"tax_amount"`
	DiscountAmount float64              `json:"discount_amount"`
	Total          float64              `json:"total"`
}

// Round2 rounds x to two decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ComputeLine returns line with LineTotal set to quantity × unit price in cents.
func ComputeLine(line models.InvoiceLine) models.InvoiceLine {
	line.LineTotal = Round2(line.Quantity.Float() * line.UnitPrice.Float())
	return line
}

// ComputeInvoice computes every line and aggregates the invoice totals.
// The discount is a flat amount subtracted before tax; tax is a percentage of
// the discounted base, which may be negative when the discount exceeds the
// subtotal.
func ComputeInvoice(in Input) Result {
	items := make([]models.InvoiceLine, len(in.Items))
	var sum float64
	for i, item := range in.Items {
		items[i] = ComputeLine(item)
		sum += items[i].LineTotal
	}

	subtotal := Round2(sum)
	discount := in.Discount.Float()
	tax := Round2((subtotal - discount) * in.TaxRate.Float() / 100)

	return Result{
		Items:          items,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: Round2(discount),
		Total:          Round2(subtotal - discount + tax),
	}
}

// NormalizeItems trims descriptions, recomputes totals and drops blank rows
// (empty description and a non-positive total). Remaining rows are numbered
// from 1 in input order.
func NormalizeItems(items []models.InvoiceLine) []models.InvoiceLine {
	out := make([]models.InvoiceLine, 0, len(items))
	for _, item := range items {
		item.Description = strings.TrimSpace(item.Description)
		item = ComputeLine(item)
		if item.Description == "" && item.LineTotal <= 0 {
			continue
		}
		item.Position = len(out) + 1
		out = append(out, item)
	}
	return out
}

// Apply normalizes the invoice items and stamps the computed totals onto inv.
func Apply(inv *models.Invoice) {
	res := ComputeInvoice(Input{
		Items:    NormalizeItems(inv.Items),
		TaxRate:  inv.TaxRate,
		Discount: inv.Discount,
	})
	inv.Items = res.Items
	inv.Subtotal = res.Subtotal
	inv.TaxAmount = res.TaxAmount
	inv.DiscountAmount = res.DiscountAmount
	inv.TotalAmount = res.Total
}

// FormatAmount renders amount with exactly two decimals, prefixed by the
// currency code when one is given.
func FormatAmount(amount float64, currency string) string {
	s := decimal.NewFromFloat(amount).StringFixed(2)
	if currency == "" {
		return s
	}
	return currency + " " + s
}
