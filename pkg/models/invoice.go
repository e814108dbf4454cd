package models

import (
	"gorm.io/gorm"
)

// Invoice represents an invoice document with its line items and computed totals
type Invoice struct {
	gorm.Model
	InvoiceNumber  string        `json:"invoice_number" gorm:"uniqueIndex"`
	Date           string        `json:"date"`
	VendorName     string        `json:"vendor_name"`
	BillTo         string        `json:"bill_to"`
	Currency       string        `json:"currency"`
	Notes          string        `json:"notes"`
	LogoPath       string        `json:"logo_path"`
	Items          []InvoiceLine `json:"items" gorm:"foreignKey:InvoiceID"`
	TaxRate        Number        `json:"tax_rate"`
	Discount       Number        `json:"discount"`
	Subtotal       float64       `json:"subtotal"`
	TaxAmount      float64       `json:"tax_amount"`
	DiscountAmount float64       `json:"discount_amount"`
	TotalAmount    float64       `json:"total"`
}

// InvoiceLine is one row of an invoice. LineTotal is always derived from
// Quantity and UnitPrice.
type InvoiceLine struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	InvoiceID   uint    `json:"-" gorm:"index"`
	Position    int     `json:"position"`
	Description string  `json:"description"`
	Quantity    Number  `json:"quantity"`
	UnitPrice   Number  `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// TextLine represents a line of text with its position from OCR
type TextLine struct {
	Text   string
	X      int
	Y      int
	Width  int
	Height int
}
