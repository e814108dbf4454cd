package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fiverflow/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when an invoice does not exist
var ErrNotFound = errors.New("invoice not found")

// Store persists invoices and their line items
type Store struct {
	db *gorm.DB
}

// New creates a Store on top of an open gorm connection
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the invoice tables
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&models.Invoice{}, &models.InvoiceLine{})
}

// NewInvoiceNumber returns a fresh human-readable invoice number
func NewInvoiceNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "INV-" + id[:10]
}

// Create saves inv together with its items as new rows. Client-supplied ids
// are cleared so existing lines are never re-parented. Totals are stored as
// given.
func (s *Store) Create(ctx context.Context, inv *models.Invoice) error {
	inv.ID = 0
	for i := range inv.Items {
		inv.Items[i].ID = 0
		inv.Items[i].InvoiceID = 0
	}
	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = NewInvoiceNumber()
	}
	if err := s.db.WithContext(ctx).Create(inv).Error; err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

// List returns all invoices, newest first
func (s *Store) List(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Order("id DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// Get returns the invoice with the given id
func (s *Store) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items", orderedItems).
		First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice %d: %w", id, err)
	}
	return &inv, nil
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
