// Package storage persists the market catalog and transaction log in sqlite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"puremetrics/internal/core"
	"puremetrics/internal/market"

	_ "modernc.org/sqlite"
)

// eventTimeLayout is the canonical event_time text stored in sqlite. RFC3339
// with fixed-width fractional seconds keeps lexical order equal to time
// order, which the event_time index relies on.
const eventTimeLayout = "2006-01-02T15:04:05.000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const transactionColumns = `
	t.product_id, t.variant_id, t.price_cents, t.quantity,
	t.spot_premium_percent, t.spot_premium_cents, t.event_time, t.event_type,
	COALESCE(p.name, ''), COALESCE(p.sku, ''),
	COALESCE(p.material, ''), COALESCE(p.variant_label, '')`

// ListTransactions implements market.TransactionReader.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN products p
			ON p.product_id = t.product_id AND p.variant_id = t.variant_id
		ORDER BY t.event_time DESC, t.product_id, t.variant_id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListVariantTransactions implements market.TransactionReader.
func (r *SQLiteRepository) ListVariantTransactions(ctx context.Context, productID, variantID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN products p
			ON p.product_id = t.product_id AND p.variant_id = t.variant_id
		WHERE t.product_id = ? AND t.variant_id = ?
		ORDER BY t.event_time DESC`, productID, variantID)
	if err != nil {
		return nil, fmt.Errorf("list variant transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		var (
			tx        core.Transaction
			eventTime string
			eventType string
		)
		if err := rows.Scan(
			&tx.ProductID, &tx.VariantID, &tx.Price.Cents, &tx.Quantity,
			&tx.SpotPremiumPercent, &tx.SpotPremiumDollar.Cents, &eventTime, &eventType,
			&tx.Name, &tx.SKU, &tx.Material, &tx.VariantLabel,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		ts, err := time.Parse(eventTimeLayout, eventTime)
		if err != nil {
			return nil, fmt.Errorf("parse event_time %q: %w", eventTime, err)
		}
		tx.EventTime = ts.UTC()
		tx.EventType = core.EventType(eventType)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// ListProducts implements market.ProductReader.
func (r *SQLiteRepository) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, variant_id, name, sku, material, variant_label,
			image_url, highest_offer_premium, lowest_listing_premium,
			market_data_updated_at
		FROM products
		ORDER BY product_id, variant_id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []core.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

// GetProduct implements market.ProductReader.
func (r *SQLiteRepository) GetProduct(ctx context.Context, productID, variantID string) (core.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT product_id, variant_id, name, sku, material, variant_label,
			image_url, highest_offer_premium, lowest_listing_premium,
			market_data_updated_at
		FROM products
		WHERE product_id = ? AND variant_id = ?`, productID, variantID)

	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Product{}, market.ErrProductNotFound
	}
	return p, err
}

func scanProduct(scan func(...any) error) (core.Product, error) {
	var (
		p         core.Product
		updatedAt sql.NullString
	)
	if err := scan(
		&p.ProductID, &p.VariantID, &p.Name, &p.SKU, &p.Material,
		&p.VariantLabel, &p.ImageURL, &p.HighestOfferPremium,
		&p.LowestListingPremium, &updatedAt,
	); err != nil {
		return core.Product{}, err
	}
	if updatedAt.Valid && updatedAt.String != "" {
		ts, err := time.Parse(eventTimeLayout, updatedAt.String)
		if err != nil {
			return core.Product{}, fmt.Errorf("parse market_data_updated_at %q: %w", updatedAt.String, err)
		}
		p.MarketDataUpdatedAt = ts.UTC()
	}
	return p, nil
}

// ListMaterials implements market.ProductReader.
func (r *SQLiteRepository) ListMaterials(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT material FROM products
		WHERE material != ''
		ORDER BY material`)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}
	return out, nil
}

// UpsertProducts implements market.ProductWriter.
func (r *SQLiteRepository) UpsertProducts(ctx context.Context, products []core.Product) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert products: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (
			product_id, variant_id, name, sku, material, variant_label,
			image_url, highest_offer_premium, lowest_listing_premium,
			market_data_updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id, variant_id) DO UPDATE SET
			name = excluded.name,
			sku = excluded.sku,
			material = excluded.material,
			variant_label = excluded.variant_label,
			image_url = excluded.image_url,
			highest_offer_premium = excluded.highest_offer_premium,
			lowest_listing_premium = excluded.lowest_listing_premium,
			market_data_updated_at = excluded.market_data_updated_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert products: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		var updatedAt any
		if !p.MarketDataUpdatedAt.IsZero() {
			updatedAt = p.MarketDataUpdatedAt.UTC().Format(eventTimeLayout)
		}
		if _, err := stmt.ExecContext(ctx,
			p.ProductID, p.VariantID, p.Name, p.SKU, p.Material,
			p.VariantLabel, p.ImageURL, p.HighestOfferPremium,
			p.LowestListingPremium, updatedAt,
		); err != nil {
			return 0, fmt.Errorf("upsert product %s/%s: %w", p.ProductID, p.VariantID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert products: %w", err)
	}

	slog.InfoContext(ctx, "Products upserted", "count", len(products))
	return len(products), nil
}

// UpsertTransactions implements market.TransactionWriter.
func (r *SQLiteRepository) UpsertTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert transactions: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (
			product_id, variant_id, price_cents, quantity,
			spot_premium_percent, spot_premium_cents, event_time, event_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_time, product_id, variant_id) DO UPDATE SET
			price_cents = excluded.price_cents,
			quantity = excluded.quantity,
			spot_premium_percent = excluded.spot_premium_percent,
			spot_premium_cents = excluded.spot_premium_cents,
			event_type = excluded.event_type`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert transactions: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		if _, err := stmt.ExecContext(ctx,
			t.ProductID, t.VariantID, t.Price.Cents, t.Quantity,
			t.SpotPremiumPercent, t.SpotPremiumDollar.Cents,
			t.EventTime.UTC().Format(eventTimeLayout), string(t.EventType),
		); err != nil {
			return 0, fmt.Errorf("upsert transaction %s/%s@%s: %w",
				t.ProductID, t.VariantID, t.EventTime.Format(time.RFC3339), err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions upserted", "count", len(txs))
	return len(txs), nil
}

// UpdateEventType implements market.TransactionWriter. eventTime must be the
// stored RFC3339 text of the row to restamp.
func (r *SQLiteRepository) UpdateEventType(ctx context.Context, productID, variantID string, eventTime string, eventType core.EventType) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET event_type = ?
		WHERE product_id = ? AND variant_id = ? AND event_time = ?`,
		string(eventType), productID, variantID, eventTime)
	if err != nil {
		return fmt.Errorf("update event type: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return market.ErrTransactionNotFound
	}
	return nil
}

// ListUnclassifiedTransactions implements market.UnclassifiedLister,
// returning rows whose event_type is missing with the stored event_time text
// so callers can address them for restamp.
func (r *SQLiteRepository) ListUnclassifiedTransactions(ctx context.Context) ([]market.UnclassifiedRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, variant_id, event_time, spot_premium_percent
		FROM transactions
		WHERE event_type = ''
		ORDER BY event_time`)
	if err != nil {
		return nil, fmt.Errorf("list unclassified transactions: %w", err)
	}
	defer rows.Close()

	var out []market.UnclassifiedRecord
	for rows.Next() {
		var u market.UnclassifiedRecord
		if err := rows.Scan(&u.ProductID, &u.VariantID, &u.EventTime, &u.SpotPremiumPercent); err != nil {
			return nil, fmt.Errorf("scan unclassified transaction: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unclassified transactions: %w", err)
	}
	return out, nil
}

var (
	_ market.TransactionReader  = (*SQLiteRepository)(nil)
	_ market.ProductReader      = (*SQLiteRepository)(nil)
	_ market.ProductWriter      = (*SQLiteRepository)(nil)
	_ market.TransactionWriter  = (*SQLiteRepository)(nil)
	_ market.UnclassifiedLister = (*SQLiteRepository)(nil)
)
