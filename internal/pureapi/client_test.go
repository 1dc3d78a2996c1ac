package pureapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{MaxRetries: maxRetries, InitialBackoff: time.Millisecond, RateLimitDelay: 0}
}

func TestFetchVariantsFlattens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != productOptionsPath {
			t.Errorf("path = %q, want %q", r.URL.Path, productOptionsPath)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q, want test-key", r.Header.Get("x-api-key"))
		}
		json.NewEncoder(w).Encode([]ProductOption{
			{ProductID: "p1", Name: "Gold Eagle", Variants: []VariantOption{
				{VariantID: "v1", Title: "Standard"},
				{VariantID: "v2", Title: "Pure Priority"},
			}},
			{ProductID: "p2", Name: "Silver Maple", Variants: []VariantOption{
				{VariantID: "v1", Title: "Standard"},
			}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", fastRetry(0), 20)
	got, err := c.FetchVariants(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("variants = %d, want 3", len(got))
	}
	if got[1].ProductID != "p1" || got[1].VariantTitle != "Pure Priority" {
		t.Errorf("second variant = %+v", got[1])
	}
}

func TestDeduplicateProductIDs(t *testing.T) {
	variants := []FlattenedVariant{
		{ProductID: "p2"}, {ProductID: "p1"}, {ProductID: "p2"}, {ProductID: "p1"},
	}
	want := []string{"p1", "p2"}
	if got := DeduplicateProductIDs(variants); !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestFetchProductsBatchesAndSkipsFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var body struct {
			ProductIDs []string `json:"productIds"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.ProductIDs) > 2 {
			t.Errorf("batch size = %d, want <= 2", len(body.ProductIDs))
		}
		// Second batch always fails; the client must keep going.
		if n >= 2 && body.ProductIDs[0] == "p3" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		out := make([]ProductData, len(body.ProductIDs))
		for i, id := range body.ProductIDs {
			out[i] = ProductData{ProductID: id}
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", fastRetry(1), 2)
	got, err := c.FetchProducts(context.Background(), []string{"p1", "p2", "p3", "p4", "p5"})
	if err != nil {
		t.Fatal(err)
	}
	// Batches: [p1 p2] ok, [p3 p4] fails, [p5] ok.
	if len(got) != 3 {
		t.Fatalf("products = %d, want 3 with the failed batch skipped", len(got))
	}
}

func TestFetchActivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["productId"] != "p1" || body["variantId"] != "v1" {
			t.Errorf("request body = %v", body)
		}
		json.NewEncoder(w).Encode([]ActivityEvent{
			{Event: "buy", CreatedAt: "2024-03-01 10:00:00.000000+00", Price: 1000.50, Quantity: 2},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", fastRetry(0), 20)
	got, err := c.FetchActivity(context.Background(), "p1", "v1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Price != 1000.50 {
		t.Fatalf("activity = %+v", got)
	}
}

func TestWithRetryRecoversAfterFailures(t *testing.T) {
	attempts := 0
	got, err := withRetry(context.Background(), fastRetry(3), "op", func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 || attempts != 3 {
		t.Errorf("got %d after %d attempts, want 42 after 3", got, attempts)
	}
}

func TestWithRetryExhausts(t *testing.T) {
	attempts := 0
	_, err := withRetry(context.Background(), fastRetry(2), "op", func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("down")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", attempts)
	}
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxRetries: 5, InitialBackoff: time.Hour, RateLimitDelay: 0}
	_, err := withRetry(ctx, cfg, "op", func(ctx context.Context) (int, error) {
		return 0, errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
