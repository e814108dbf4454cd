package api

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"fiverflow/pkg/models"
	"fiverflow/pkg/services/calc"
	"fiverflow/pkg/services/ocr"
	"fiverflow/pkg/services/pdf"
	"fiverflow/pkg/services/storage"
	"fiverflow/pkg/store"

	"github.com/gin-gonic/gin"
)

func (s *Server) calculateInvoice(c *gin.Context) {
	var in calc.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, calc.ComputeInvoice(in))
}

func (s *Server) createInvoice(c *gin.Context) {
	var inv models.Invoice
	if err := c.ShouldBindJSON(&inv); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inv.ID = 0
	calc.Apply(&inv)

	if err := s.store.Create(c.Request.Context(), &inv); err != nil {
		log.Printf("create invoice: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save invoice"})
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (s *Server) getInvoices(c *gin.Context) {
	invoices, err := s.store.List(c.Request.Context())
	if err != nil {
		log.Printf("list invoices: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list invoices"})
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (s *Server) getInvoice(c *gin.Context) {
	inv, ok := s.loadInvoice(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) getInvoicePDF(c *gin.Context) {
	inv, ok := s.loadInvoice(c)
	if !ok {
		return
	}

	data, err := pdf.Render(inv)
	if err != nil {
		log.Printf("render invoice %d: %v", inv.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render invoice"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+inv.InvoiceNumber+".pdf")
	c.Data(http.StatusOK, "application/pdf", data)
}

func (s *Server) scanInvoice(c *gin.Context) {
	if s.scanner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "invoice scanning is not configured"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	items, err := s.scanner.Scan(c.Request.Context(), f)
	if errors.Is(err, ocr.ErrNoText) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("scan invoice: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to scan invoice"})
		return
	}

	draft := models.Invoice{Items: items}
	calc.Apply(&draft)
	c.JSON(http.StatusOK, draft)
}

// getSignedAsset never fails: a missing path, a missing backend or a
// signing error all resolve to an empty url.
func (s *Server) getSignedAsset(c *gin.Context) {
	path := c.Query("path")
	if path == "" || s.resolver == nil {
		c.JSON(http.StatusOK, gin.H{"url": ""})
		return
	}

	ttl := s.defaultTTL
	if secs, err := strconv.Atoi(c.Query("ttl")); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}

	signed, err := s.resolver.Get(c.Request.Context(), path, ttl)
	if err != nil {
		log.Printf("failed to resolve signed URL for %s: %v", path, err)
		c.JSON(http.StatusOK, gin.H{"url": ""})
		return
	}

	refreshIn := math.Max(time.Until(signed.RefreshAt()).Seconds(), 0)
	c.JSON(http.StatusOK, gin.H{
		"url":        storage.WithCacheBuster(signed.URL, signed.IssuedAt),
		"expires_at": signed.ExpiresAt,
		"refresh_in": int(refreshIn),
	})
}

func (s *Server) loadInvoice(c *gin.Context) (*models.Invoice, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return nil, false
	}

	inv, err := s.store.Get(c.Request.Context(), uint(id))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	if err != nil {
		log.Printf("get invoice %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load invoice"})
		return nil, false
	}
	return inv, true
}
