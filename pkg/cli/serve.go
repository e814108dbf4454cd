package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fiverflow/pkg/api"
	"fiverflow/pkg/config"
	"fiverflow/pkg/services/ocr"
	"fiverflow/pkg/services/storage"
	"fiverflow/pkg/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const cacheEvictInterval = 5 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFiles()...)
	if err != nil {
		return err
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	invoices := store.New(db)
	if err := invoices.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var scanner api.Scanner
	if cfg.OCREnabled() {
		scanner = ocr.NewService(cfg.VisionEndpoint, cfg.VisionKey)
	} else {
		log.Println("AZURE_VISION_ENDPOINT not set, invoice scanning disabled")
	}

	var resolver api.URLResolver
	signer, err := storage.NewSigner(cfg.StorageProvider, cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		log.Println("storage backend not configured, signed assets resolve to no image")
	case err != nil:
		log.Printf("storage backend unavailable: %v", err)
	default:
		cache := storage.NewURLCache(signer)
		go evictLoop(cmd.Context(), cache)
		resolver = cache
	}

	server := api.NewServer(invoices, scanner, resolver, api.WithSignedURLTTL(cfg.SignedURLTTL))
	return server.Run(":" + cfg.Port)
}

func evictLoop(ctx context.Context, cache *storage.URLCache) {
	if ctx == nil {
		ctx = context.Background()
	}
	ticker := time.NewTicker(cacheEvictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache.Evict()
		}
	}
}
