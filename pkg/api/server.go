package api

import (
	"context"
	"io"
	"time"

	"fiverflow/pkg/models"
	"fiverflow/pkg/services/storage"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 10 << 20 // 10MB

// InvoiceStore is the persistence the handlers depend on
type InvoiceStore interface {
	Create(ctx context.Context, inv *models.Invoice) error
	List(ctx context.Context) ([]models.Invoice, error)
	Get(ctx context.Context, id uint) (*models.Invoice, error)
}

// Scanner turns an uploaded invoice image into draft line items
type Scanner interface {
	Scan(ctx context.Context, r io.Reader) ([]models.InvoiceLine, error)
}

// URLResolver resolves stored objects to signed locators
type URLResolver interface {
	Get(ctx context.Context, path string, ttl time.Duration) (storage.SignedURL, error)
}

// Server is the FiverFlow HTTP API
type Server struct {
	store      InvoiceStore
	scanner    Scanner
	resolver   URLResolver
	defaultTTL time.Duration
	router     *gin.Engine
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithSignedURLTTL sets the validity of signed asset URLs when a request
// does not ask for one.
func WithSignedURLTTL(ttl time.Duration) ServerOption {
	return func(s *Server) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// NewServer wires the routes. scanner and resolver may be nil when the
// corresponding backend is not configured.
func NewServer(store InvoiceStore, scanner Scanner, resolver URLResolver, opts ...ServerOption) *Server {
	router := gin.Default()
	router.MaxMultipartMemory = maxUploadSize

	s := &Server{
		store:      store,
		scanner:    scanner,
		resolver:   resolver,
		defaultTTL: storage.DefaultTTL,
		router:     router,
	}
	for _, opt := range opts {
		opt(s)
	}

	router.POST("/invoices/calculate", s.calculateInvoice)
	router.POST("/invoices", s.createInvoice)
	router.GET("/invoices", s.getInvoices)
	router.GET("/invoices/:id", s.getInvoice)
	router.GET("/invoices/:id/pdf", s.getInvoicePDF)
	router.POST("/scan-invoice", s.scanInvoice)
	router.GET("/assets/signed", s.getSignedAsset)

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() *gin.Engine {
	return s.router
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
