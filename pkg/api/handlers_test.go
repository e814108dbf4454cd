package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fiverflow/pkg/models"
	"fiverflow/pkg/services/ocr"
	"fiverflow/pkg/services/storage"
	"fiverflow/pkg/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStore implements InvoiceStore for testing
type MockStore struct {
	CreateFunc func(ctx context.Context, inv *models.Invoice) error
	ListFunc   func(ctx context.Context) ([]models.Invoice, error)
	GetFunc    func(ctx context.Context, id uint) (*models.Invoice, error)
}

func (m *MockStore) Create(ctx context.Context, inv *models.Invoice) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, inv)
	}
	inv.ID = 1
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]models.Invoice, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockStore) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, store.ErrNotFound
}

type scannerFunc func(ctx context.Context, r io.Reader) ([]models.InvoiceLine, error)

func (f scannerFunc) Scan(ctx context.Context, r io.Reader) ([]models.InvoiceLine, error) {
	return f(ctx, r)
}

type resolverFunc func(ctx context.Context, path string, ttl time.Duration) (storage.SignedURL, error)

func (f resolverFunc) Get(ctx context.Context, path string, ttl time.Duration) (storage.SignedURL, error) {
	return f(ctx, path, ttl)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCalculateInvoice(t *testing.T) {
	s := NewServer(&MockStore{}, nil, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/invoices/calculate",
		`{"items":[{"description":"A","quantity":"2","unit_price":10}],"tax_rate":10,"discount":5}`)

	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Items          []models.InvoiceLine `json:"items"`
		Subtotal       float64              `json:"subtotal"`
		TaxAmount      float64              `json:"tax_amount"`
		DiscountAmount float64              `json:"discount_amount"`
		Total          float64              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 20.0, res.Subtotal)
	assert.Equal(t, 1.5, res.TaxAmount)
	assert.Equal(t, 5.0, res.DiscountAmount)
	assert.Equal(t, 16.5, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 20.0, res.Items[0].LineTotal)
}

func TestCalculateInvoiceBadJSON(t *testing.T) {
	s := NewServer(&MockStore{}, nil, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/invoices/calculate", `{"items":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateInvoiceNormalizesAndComputes(t *testing.T) {
	var saved *models.Invoice
	mock := &MockStore{CreateFunc: func(_ context.Context, inv *models.Invoice) error {
		inv.ID = 7
		saved = inv
		return nil
	}}
	s := NewServer(mock, nil, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/invoices", map[string]any{
		"vendor_name": "Acme",
		"tax_rate":    20,
		"items": []map[string]any{
			{"description": " Hosting ", "quantity": 12, "unit_price": 4.5},
			{"description": "", "quantity": 0, "unit_price": 0},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, saved)
	require.Len(t, saved.Items, 1)
	assert.Equal(t, "Hosting", saved.Items[0].Description)
	assert.Equal(t, 1, saved.Items[0].Position)
	assert.Equal(t, 54.0, saved.Subtotal)
	assert.Equal(t, 10.8, saved.TaxAmount)
	assert.Equal(t, 64.8, saved.TotalAmount)
}

func TestCreateInvoiceStoreError(t *testing.T) {
	mock := &MockStore{CreateFunc: func(context.Context, *models.Invoice) error {
		return errors.New("db down")
	}}
	s := NewServer(mock, nil, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/invoices", map[string]any{})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetInvoice(t *testing.T) {
	mock := &MockStore{GetFunc: func(_ context.Context, id uint) (*models.Invoice, error) {
		if id == 3 {
			return &models.Invoice{InvoiceNumber: "INV-3"}, nil
		}
		return nil, store.ErrNotFound
	}}
	s := NewServer(mock, nil, nil)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"found", "/invoices/3", http.StatusOK},
		{"missing", "/invoices/4", http.StatusNotFound},
		{"invalid id", "/invoices/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s.Handler(), http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestGetInvoices(t *testing.T) {
	mock := &MockStore{ListFunc: func(context.Context) ([]models.Invoice, error) {
		return []models.Invoice{{InvoiceNumber: "INV-1"}, {InvoiceNumber: "INV-2"}}, nil
	}}
	s := NewServer(mock, nil, nil)

	w := doJSON(t, s.Handler(), http.MethodGet, "/invoices", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var invoices []models.Invoice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invoices))
	assert.Len(t, invoices, 2)
}

func TestGetInvoicePDF(t *testing.T) {
	mock := &MockStore{GetFunc: func(context.Context, uint) (*models.Invoice, error) {
		return &models.Invoice{InvoiceNumber: "INV-9", Items: []models.InvoiceLine{
			{Position: 1, Description: "Logo", Quantity: 1, UnitPrice: 50, LineTotal: 50},
		}}, nil
	}}
	s := NewServer(mock, nil, nil)

	w := doJSON(t, s.Handler(), http.MethodGet, "/invoices/9/pdf", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "INV-9.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func newUpload(t *testing.T, field string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, "scan.jpg")
		require.NoError(t, err)
		_, err = fw.Write([]byte("image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/scan-invoice", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestScanInvoice(t *testing.T) {
	scanner := scannerFunc(func(_ context.Context, r io.Reader) ([]models.InvoiceLine, error) {
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "image-bytes", string(data))
		return []models.InvoiceLine{{Description: "Logo", Quantity: 2, UnitPrice: 25}}, nil
	})
	s := NewServer(&MockStore{}, scanner, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, newUpload(t, "file"))

	require.Equal(t, http.StatusOK, w.Code)
	var draft models.Invoice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &draft))
	assert.Equal(t, 50.0, draft.TotalAmount)
	require.Len(t, draft.Items, 1)
	assert.Equal(t, 1, draft.Items[0].Position)
}

func TestScanInvoiceErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := NewServer(&MockStore{}, nil, nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, newUpload(t, "file"))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		s := NewServer(&MockStore{}, scannerFunc(func(context.Context, io.Reader) ([]models.InvoiceLine, error) {
			return nil, nil
		}), nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, newUpload(t, ""))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no text", func(t *testing.T) {
		s := NewServer(&MockStore{}, scannerFunc(func(context.Context, io.Reader) ([]models.InvoiceLine, error) {
			return nil, ocr.ErrNoText
		}), nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, newUpload(t, "file"))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestGetSignedAsset(t *testing.T) {
	issued := time.Now()
	resolver := resolverFunc(func(_ context.Context, path string, ttl time.Duration) (storage.SignedURL, error) {
		if path == "broken.png" {
			return storage.SignedURL{}, errors.New("backend unreachable")
		}
		return storage.SignedURL{
			URL:       "https://blob.example.com/" + path + "?sig=1",
			IssuedAt:  issued,
			ExpiresAt: issued.Add(ttl),
		}, nil
	})

	decode := func(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
		t.Helper()
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	t.Run("signed", func(t *testing.T) {
		s := NewServer(&MockStore{}, nil, resolver)
		body := decode(t, doJSON(t, s.Handler(), http.MethodGet, "/assets/signed?path=logos/a.png&ttl=3600", nil))
		assert.Contains(t, body["url"], "https://blob.example.com/logos/a.png?")
		assert.Contains(t, body["url"], "sig=1")
		assert.InDelta(t, 3300, body["refresh_in"], 2)
	})

	t.Run("short ttl", func(t *testing.T) {
		s := NewServer(&MockStore{}, nil, resolver)
		body := decode(t, doJSON(t, s.Handler(), http.MethodGet, "/assets/signed?path=a.png&ttl=60", nil))
		assert.InDelta(t, 30, body["refresh_in"], 2)
	})

	t.Run("signing failure", func(t *testing.T) {
		s := NewServer(&MockStore{}, nil, resolver)
		body := decode(t, doJSON(t, s.Handler(), http.MethodGet, "/assets/signed?path=broken.png", nil))
		assert.Equal(t, "", body["url"])
	})

	t.Run("no path", func(t *testing.T) {
		s := NewServer(&MockStore{}, nil, resolver)
		body := decode(t, doJSON(t, s.Handler(), http.MethodGet, "/assets/signed", nil))
		assert.Equal(t, "", body["url"])
	})

	t.Run("configured default ttl", func(t *testing.T) {
		var got time.Duration
		s := NewServer(&MockStore{}, nil, resolverFunc(func(ctx context.Context, path string, ttl time.Duration) (storage.SignedURL, error) {
			got = ttl
			return resolver(ctx, path, ttl)
		}), WithSignedURLTTL(10*time.Minute))
		body := decode(t, doJSON(t, s.Handler(), http.MethodGet, "/assets/signed?path=a.png", nil))
		assert.Equal(t, 10*time.Minute, got)
		assert.InDelta(t, 300, body["refresh_in"], 2)
	})

	t.Run("built-in default ttl", func(t *testing.T) {
		var got time.Duration
		s := NewServer(&MockStore{}, nil, resolverFunc(func(ctx context.Context, path string, ttl time.Duration) (storage.SignedURL, error) {
			got = ttl
			return resolver(ctx, path, ttl)
		}))
		decode(t, doJSON(t, s.Handler(), http.MethodGet, "/assets/signed?path=a.png", nil))
		assert.Equal(t, storage.DefaultTTL, got)
	})

	t.Run("no backend", func(t *testing.T) {
		s := NewServer(&MockStore{}, nil, nil)
		body := decode(t, doJSON(t, s.Handler(), http.MethodGet, "/assets/signed?path=a.png", nil))
		assert.Equal(t, "", body["url"])
	})
}
