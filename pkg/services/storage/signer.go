// Package storage resolves stored objects to time-limited signed locators
// and keeps displayed locators fresh.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL is the validity of a signed locator when none is requested.
const DefaultTTL = time.Hour

const (
	refreshMargin   = 5 * time.Minute
	minRefreshDelay = 30 * time.Second
)

// ErrNotConfigured is returned when no storage backend is set up.
var ErrNotConfigured = errors.New("storage backend not configured")

// Signer issues signed locators for stored objects.
type Signer interface {
	SignURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// RefreshDelay returns how long after issuance a locator valid for ttl
// should be renewed: five minutes before expiry, but never sooner than
// 30 seconds.
func RefreshDelay(ttl time.Duration) time.Duration {
	return max(ttl-refreshMargin, minRefreshDelay)
}

// WithCacheBuster appends a t=<unix millis> query parameter to locator.
func WithCacheBuster(locator string, now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	u, err := url.Parse(locator)
	if err != nil {
		sep := "?"
		if strings.Contains(locator, "?") {
			sep = "&"
		}
		return locator + sep + "t=" + ts
	}
	q := u.Query()
	q.Set("t", ts)
	u.RawQuery = q.Encode()
	return u.String()
}

// NewSigner builds the signer selected by provider ("azure" or "s3").
// An empty provider yields ErrNotConfigured.
func NewSigner(provider string, opts SignerOptions) (Signer, error) {
	switch strings.ToLower(provider) {
	case "":
		return nil, ErrNotConfigured
	case "azure":
		return NewAzureSigner(opts.AzureAccount, opts.AzureKey, opts.Container)
	case "s3":
		return NewS3Signer(opts.AWSRegion, opts.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", provider)
	}
}

// SignerOptions carries backend credentials for NewSigner.
type SignerOptions struct {
	AzureAccount string
	AzureKey     string
	Container    string
	AWSRegion    string
	Bucket       string
}
