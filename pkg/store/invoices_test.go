package store

import (
	"context"
	"testing"

	"fiverflow/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	s := New(db)
	require.NoError(t, s.Migrate())
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inv := &models.Invoice{
		VendorName: "Acme",
		Currency:   "EUR",
		TaxRate:    10,
		Discount:   5,
		Items: []models.InvoiceLine{
			{Position: 2, Description: "Second", Quantity: 1, UnitPrice: 3, LineTotal: 3},
			{Position: 1, Description: "First", Quantity: 2, UnitPrice: 10, LineTotal: 20},
		},
		Subtotal:    23,
		TotalAmount: 19.8,
	}
	require.NoError(t, s.Create(ctx, inv))
	assert.NotZero(t, inv.ID)
	assert.Regexp(t, `^INV-[0-9A-F]{10}$`, inv.InvoiceNumber)

	got, err := s.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.VendorName)
	assert.Equal(t, models.Number(10), got.TaxRate)
	assert.Equal(t, 19.8, got.TotalAmount)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "First", got.Items[0].Description)
	assert.Equal(t, models.Number(2), got.Items[0].Quantity)
	assert.Equal(t, "Second", got.Items[1].Description)
}

func TestCreateIgnoresExistingItemIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &models.Invoice{
		Items:       []models.InvoiceLine{{Position: 1, Description: "A", Quantity: 1, UnitPrice: 10, LineTotal: 10}},
		TotalAmount: 10,
	}
	require.NoError(t, s.Create(ctx, a))
	lineID := a.Items[0].ID
	require.NotZero(t, lineID)

	b := &models.Invoice{
		Items: []models.InvoiceLine{
			{ID: lineID, InvoiceID: a.ID, Position: 1, Description: "B", Quantity: 2, UnitPrice: 50, LineTotal: 100},
		},
		TotalAmount: 100,
	}
	require.NoError(t, s.Create(ctx, b))
	assert.NotEqual(t, lineID, b.Items[0].ID)

	gotA, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, gotA.Items, 1)
	assert.Equal(t, "A", gotA.Items[0].Description)
	assert.Equal(t, 10.0, gotA.Items[0].LineTotal)

	gotB, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, gotB.Items, 1)
	assert.Equal(t, "B", gotB.Items[0].Description)
	assert.Equal(t, 100.0, gotB.Items[0].LineTotal)
	assert.Equal(t, gotB.TotalAmount, gotB.Items[0].LineTotal)
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &models.Invoice{InvoiceNumber: "INV-1"}))
	require.NoError(t, s.Create(ctx, &models.Invoice{InvoiceNumber: "INV-2"}))

	invoices, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, "INV-2", invoices[0].InvoiceNumber)
	assert.Equal(t, "INV-1", invoices[1].InvoiceNumber)
}
