package foodref

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openkcal/openkcal/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultBaseURL        = "https://world.openfoodfacts.org"
	defaultRequestTimeout = 15 * time.Second
	defaultCacheMaxAge    = 24 * time.Hour
	searchPageSize        = 20
)

// Client looks up products in the external food database, caching barcode
// hits in the food_references table.
type Client struct {
	db      *gorm.DB
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewClient constructs a food database client.
func NewClient(db *gorm.DB) *Client {
	return &Client{
		db:      db,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultRequestTimeout},
		now:     time.Now,
	}
}

// LookupBarcode resolves one product by barcode, preferring a fresh cached
// reference over a remote round-trip.
func (c *Client) LookupBarcode(ctx context.Context, barcode string) (*models.FoodReference, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("foodref: client not initialized")
	}
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, fmt.Errorf("foodref: empty barcode")
	}

	cached, errCache := CachedReference(ctx, c.db, barcode, c.now(), defaultCacheMaxAge)
	if errCache == nil {
		return cached, nil
	}
	if !errors.Is(errCache, ErrNotCached) {
		log.WithError(errCache).Warn("foodref: cache lookup failed, falling back to remote")
	}

	body, errFetch := c.fetch(ctx, fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(barcode)))
	if errFetch != nil {
		return nil, errFetch
	}

	ref, errParse := ParseProductPayload(body, c.now())
	if errParse != nil {
		return nil, errParse
	}
	if errSave := SaveReference(ctx, c.db, ref); errSave != nil {
		log.WithError(errSave).Warn("foodref: cache write failed")
	}
	return ref, nil
}

// Search queries the external database by free text. Results are not cached;
// only barcode lookups are stable enough to key a cache on.
func (c *Client) Search(ctx context.Context, query string) ([]models.FoodReference, error) {
	if c == nil {
		return nil, fmt.Errorf("foodref: client not initialized")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("foodref: empty query")
	}

	searchURL := fmt.Sprintf(
		"%s/cgi/search.pl?search_terms=%s&json=1&page_size=%d",
		c.baseURL, url.QueryEscape(query), searchPageSize,
	)
	body, errFetch := c.fetch(ctx, searchURL)
	if errFetch != nil {
		return nil, errFetch
	}
	return ParseSearchPayload(body, c.now())
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	client := c.client
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}

	requestCtx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("foodref: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("foodref: request failed: %w", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warn("foodref: close response body failed")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("foodref: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("foodref: read response: %w", err)
	}
	return body, nil
}
