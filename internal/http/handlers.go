package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"puremetrics/internal/core"
	"puremetrics/internal/market"
)

type transactionRowResponse struct {
	ProductID      string    `json:"product_id"`
	VariantID      string    `json:"variant_id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	Material       string    `json:"material"`
	Variant        string    `json:"variant"`
	EventTime      time.Time `json:"event_time"`
	EventType      string    `json:"event_type"`
	Classification string    `json:"classification"`
	Quantity       int64     `json:"quantity"`
	Price          float64   `json:"price"`
	Total          float64   `json:"total"`
	TotalFormatted string    `json:"total_formatted"`
	PremiumPercent float64   `json:"premium_percent"`
	PremiumDollar  float64   `json:"premium_dollar"`
}

type transactionListResponse struct {
	Rows    []transactionRowResponse `json:"rows"`
	Summary core.Summary             `json:"summary"`
}

type statsRowResponse struct {
	ProductID         string   `json:"product_id"`
	VariantID         string   `json:"variant_id"`
	Name              string   `json:"name"`
	SKU               string   `json:"sku"`
	Material          string   `json:"material"`
	Variant           string   `json:"variant"`
	TransactionCount  int      `json:"transaction_count"`
	BuyCount          int      `json:"buy_count"`
	SellCount         int      `json:"sell_count"`
	BuySellRatio      *float64 `json:"buy_sell_ratio"`
	TotalVolume       float64  `json:"total_volume"`
	TotalBuyQuantity  int64    `json:"total_buy_quantity"`
	TotalSellQuantity int64    `json:"total_sell_quantity"`
	TotalBuyAmount    float64  `json:"total_buy_amount"`
	TotalSellAmount   float64  `json:"total_sell_amount"`
}

type statsResponse struct {
	Rows    []statsRowResponse `json:"rows"`
	Summary core.Summary       `json:"summary"`
}

type productResponse struct {
	ProductID            string     `json:"product_id"`
	VariantID            string     `json:"variant_id"`
	Name                 string     `json:"name"`
	SKU                  string     `json:"sku"`
	Material             string     `json:"material"`
	Variant              string     `json:"variant"`
	ImageURL             string     `json:"image_url"`
	HighestOfferPremium  *float64   `json:"highest_offer_premium"`
	LowestListingPremium *float64   `json:"lowest_listing_premium"`
	MarketDataUpdatedAt  *time.Time `json:"market_data_updated_at"`
}

type detailResponse struct {
	Product productResponse          `json:"product"`
	Rows    []transactionRowResponse `json:"rows"`
	Stats   statsRowResponse         `json:"stats"`
	Demand  []core.DailyBucket       `json:"demand"`
	Summary core.Summary             `json:"summary"`
}

func toRowResponses(rows []core.TransactionRow) []transactionRowResponse {
	out := make([]transactionRowResponse, len(rows))
	for i, row := range rows {
		out[i] = transactionRowResponse{
			ProductID:      row.ProductID,
			VariantID:      row.VariantID,
			Name:           row.Name,
			SKU:            row.SKU,
			Material:       row.Material,
			Variant:        row.VariantLabel,
			EventTime:      row.EventTime,
			EventType:      string(row.EventType),
			Classification: string(row.Classification),
			Quantity:       row.Quantity,
			Price:          row.Price.Dollars(),
			Total:          row.Total.Dollars(),
			TotalFormatted: row.Total.Format(),
			PremiumPercent: row.SpotPremiumPercent,
			PremiumDollar:  row.SpotPremiumDollar.Dollars(),
		}
	}
	return out
}

func toStatsRowResponse(s core.ProductStats) statsRowResponse {
	return statsRowResponse{
		ProductID:         s.ProductID,
		VariantID:         s.VariantID,
		Name:              s.Name,
		SKU:               s.SKU,
		Material:          s.Material,
		Variant:           s.VariantLabel,
		TransactionCount:  s.TransactionCount,
		BuyCount:          s.BuyCount,
		SellCount:         s.SellCount,
		BuySellRatio:      s.BuySellRatio,
		TotalVolume:       s.TotalVolume.Dollars(),
		TotalBuyQuantity:  s.TotalBuyQuantity,
		TotalSellQuantity: s.TotalSellQuantity,
		TotalBuyAmount:    s.TotalBuyAmount.Dollars(),
		TotalSellAmount:   s.TotalSellAmount.Dollars(),
	}
}

func toProductResponse(p core.Product) productResponse {
	out := productResponse{
		ProductID:            p.ProductID,
		VariantID:            p.VariantID,
		Name:                 p.Name,
		SKU:                  p.SKU,
		Material:             p.Material,
		Variant:              p.VariantLabel,
		ImageURL:             p.ImageURL,
		HighestOfferPremium:  p.HighestOfferPremium,
		LowestListingPremium: p.LowestListingPremium,
	}
	if !p.MarketDataUpdatedAt.IsZero() {
		t := p.MarketDataUpdatedAt
		out.MarketDataUpdatedAt = &t
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := s.prodReader.ListMaterials(ctx); err != nil {
		slog.ErrorContext(ctx, "Readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"store":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	col, err := parseTransactionSort(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := r.URL.RawQuery
	if cached, ok := s.listCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	txs, err := s.txReader.ListTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	view := core.ComposeTransactionView(txs, core.TransactionViewState{
		Query:      parseQuery(r),
		Materials:  parseMaterials(r),
		SortColumn: col,
		Direction:  parseDirection(r, core.Descending),
	}, time.Now().UTC())

	resp := transactionListResponse{
		Rows:    toRowResponses(view.Rows),
		Summary: view.Summary,
	}
	s.listCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProductStats(w http.ResponseWriter, r *http.Request) {
	col, err := parseStatsSort(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := r.URL.RawQuery
	if cached, ok := s.statsCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	txs, err := s.txReader.ListTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	view := core.ComposeStatsView(txs, core.StatsViewState{
		Query:      parseQuery(r),
		Materials:  parseMaterials(r),
		SortColumn: col,
		Direction:  parseDirection(r, core.Descending),
	})

	rows := make([]statsRowResponse, len(view.Rows))
	for i, row := range view.Rows {
		rows[i] = toStatsRowResponse(row)
	}
	resp := statsResponse{Rows: rows, Summary: view.Summary}
	s.statsCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVariantTransactions(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product")
	variantID := r.PathValue("variant")

	col, err := parseTransactionSort(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := r.URL.Path + "?" + r.URL.RawQuery
	if cached, ok := s.detailCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	product, err := s.prodReader.GetProduct(r.Context(), productID, variantID)
	if errors.Is(err, market.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}

	txs, err := s.txReader.ListVariantTransactions(r.Context(), productID, variantID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list variant transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	view := core.ComposeDetailView(product, txs, col, parseDirection(r, core.Descending))
	resp := detailResponse{
		Product: toProductResponse(view.Product),
		Rows:    toRowResponses(view.Rows),
		Stats:   toStatsRowResponse(view.Stats),
		Demand:  view.Demand,
		Summary: view.Summary,
	}
	s.detailCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDailyChart(w http.ResponseWriter, r *http.Request) {
	cacheKey := r.URL.RawQuery
	if cached, ok := s.chartCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	txs, err := s.txReader.ListTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	filtered := core.FilterTransactions(txs, parseQuery(r), parseMaterials(r))
	buckets := core.BucketByDay(filtered)
	if buckets == nil {
		buckets = []core.DailyBucket{}
	}
	s.chartCache.Set(cacheKey, buckets)
	writeJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleMaterials(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.materialsCache.Get("materials"); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	materials, err := s.prodReader.ListMaterials(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list materials", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load materials")
		return
	}
	if materials == nil {
		materials = []string{}
	}
	s.materialsCache.Set("materials", materials)
	writeJSON(w, http.StatusOK, materials)
}
