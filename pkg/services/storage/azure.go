package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	azblob "github.com/Azure/azure-sdk-for-go/storage"
)

// AzureSigner issues read-only SAS URLs for blobs in one container
type AzureSigner struct {
	container *azblob.Container
}

// NewAzureSigner creates a signer for the given storage account and container
func NewAzureSigner(account, key, container string) (*AzureSigner, error) {
	if account == "" || key == "" || container == "" {
		return nil, ErrNotConfigured
	}

	client, err := azblob.NewBasicClient(account, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	blobs := client.GetBlobService()
	return &AzureSigner{container: blobs.GetContainerReference(container)}, nil
}

// SignURL returns a SAS URL for path that expires after ttl
func (s *AzureSigner) SignURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	blob := s.container.GetBlobReference(strings.TrimPrefix(path, "/"))
	uri, err := blob.GetSASURI(azblob.BlobSASOptions{
		BlobServiceSASPermissions: azblob.BlobServiceSASPermissions{Read: true},
		SASOptions: azblob.SASOptions{
			Expiry:   time.Now().Add(ttl),
			UseHTTPS: true,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign blob %s: %w", path, err)
	}
	return uri, nil
}
