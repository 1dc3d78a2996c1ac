// Package pureapi is a client for the Pure marketplace HTTP API. It fetches
// the product catalog and per-variant trade activity.
package pureapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	productOptionsPath  = "/products/get-product-options/v1"
	productsPath        = "/products/get-products/v1"
	productActivityPath = "/products/get-product-activity/v1"
)

type Client struct {
	http             *http.Client
	apiKey           string
	baseURL          string
	retry            RetryConfig
	productBatchSize int
}

func NewClient(baseURL, apiKey string, retry RetryConfig, productBatchSize int) *Client {
	if productBatchSize <= 0 {
		productBatchSize = 20
	}
	return &Client{
		http:             &http.Client{Timeout: 30 * time.Second},
		apiKey:           apiKey,
		baseURL:          strings.TrimRight(baseURL, "/"),
		retry:            retry,
		productBatchSize: productBatchSize,
	}
}

// ProductOption is one entry of the marketplace's option catalog. Every
// variant listed under it is a tradable (product, variant) pair.
type ProductOption struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Variants  []VariantOption `json:"variants"`
}

type VariantOption struct {
	VariantID string `json:"variantId"`
	Title     string `json:"title"`
}

// ProductData is the detail record behind a product option, carrying the
// display fields and the per-variant market data.
type ProductData struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	SKU       string        `json:"sku"`
	Material  string        `json:"material"`
	ImageURL  string        `json:"imageUrl"`
	Variants  []VariantData `json:"variants"`
}

type VariantData struct {
	VariantID     string      `json:"variantId"`
	Title         string      `json:"title"`
	HighestOffer  *MarketData `json:"highestOffer"`
	LowestListing *MarketData `json:"lowestListing"`
}

type MarketData struct {
	SpotPremium float64 `json:"spotPremium"`
}

// ActivityEvent is one trade reported by the activity endpoint. Prices and
// premiums are dollar amounts.
type ActivityEvent struct {
	Event             string  `json:"event"`
	CreatedAt         string  `json:"createdAt"`
	Price             float64 `json:"price"`
	Quantity          int64   `json:"quantity"`
	SpotPremium       float64 `json:"spotPremium"`
	SpotPremiumDollar float64 `json:"spotPremiumDollar"`
}

// FlattenedVariant is a (product, variant) pair pulled out of the option
// catalog, one sync unit for the ingestion loop.
type FlattenedVariant struct {
	ProductID    string
	VariantID    string
	ProductName  string
	VariantTitle string
}

// FetchVariants downloads the option catalog and flattens it to one entry
// per (product, variant) pair.
func (c *Client) FetchVariants(ctx context.Context) ([]FlattenedVariant, error) {
	options, err := withRetry(ctx, c.retry, "fetch product options", func(ctx context.Context) ([]ProductOption, error) {
		var out []ProductOption
		err := c.post(ctx, productOptionsPath, struct{}{}, &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}

	var flat []FlattenedVariant
	for _, opt := range options {
		for _, v := range opt.Variants {
			flat = append(flat, FlattenedVariant{
				ProductID:    opt.ProductID,
				VariantID:    v.VariantID,
				ProductName:  opt.Name,
				VariantTitle: v.Title,
			})
		}
	}

	slog.InfoContext(ctx, "Fetched product options",
		"products", len(options),
		"variants", len(flat))
	return flat, nil
}

// DeduplicateProductIDs returns the distinct product ids of the flattened
// variants, sorted for deterministic batching.
func DeduplicateProductIDs(variants []FlattenedVariant) []string {
	seen := make(map[string]struct{}, len(variants))
	var ids []string
	for _, v := range variants {
		if _, ok := seen[v.ProductID]; ok {
			continue
		}
		seen[v.ProductID] = struct{}{}
		ids = append(ids, v.ProductID)
	}
	sort.Strings(ids)
	return ids
}

// FetchProducts downloads product details in batches. A failed batch is
// logged and skipped so one bad id cannot sink a whole sync.
func (c *Client) FetchProducts(ctx context.Context, productIDs []string) ([]ProductData, error) {
	var all []ProductData
	for start := 0; start < len(productIDs); start += c.productBatchSize {
		end := start + c.productBatchSize
		if end > len(productIDs) {
			end = len(productIDs)
		}
		batch := productIDs[start:end]

		products, err := withRetry(ctx, c.retry, "fetch products", func(ctx context.Context) ([]ProductData, error) {
			var out []ProductData
			err := c.post(ctx, productsPath, map[string][]string{"productIds": batch}, &out)
			return out, err
		})
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			slog.ErrorContext(ctx, "Product batch failed, skipping",
				"from", start, "size", len(batch), "error", err)
			continue
		}
		all = append(all, products...)
	}
	return all, nil
}

// FetchActivity downloads the trade activity of one variant.
func (c *Client) FetchActivity(ctx context.Context, productID, variantID string) ([]ActivityEvent, error) {
	return withRetry(ctx, c.retry, "fetch product activity", func(ctx context.Context) ([]ActivityEvent, error) {
		var out []ActivityEvent
		err := c.post(ctx, productActivityPath, map[string]string{
			"productId": productID,
			"variantId": variantID,
		}, &out)
		return out, err
	})
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("call %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
