package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vinodex/invoice-reconciler/internal/common"
	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/normalize"
)

// CatalogRepository reads the product catalog and applies the few writes the
// core needs (aliases from ledger resolution, stock adjustments). Catalog
// management proper lives elsewhere.
type CatalogRepository interface {
	ListEntries(ctx context.Context) ([]entity.CatalogEntry, error)
	ListAliases(ctx context.Context) ([]entity.CatalogAlias, error)
	GetEntry(ctx context.Context, id int64) (*entity.CatalogEntry, error)
	CreateEntry(ctx context.Context, e entity.CatalogEntry) (int64, error)
	CreateAlias(ctx context.Context, aliasText string, entryID int64) (int64, error)
	AdjustStock(ctx context.Context, entryID int64, delta int64, reason string) error
}

type catalogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewCatalogRepository(db *sql.DB, logger *slog.Logger) CatalogRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &catalogRepository{db: db, logger: logger}
}

func (r *catalogRepository) ListEntries(ctx context.Context) ([]entity.CatalogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, canonical_name, reference_price, provider_ref, stock, created_at, updated_at
		 FROM catalog_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []entity.CatalogEntry
	for rows.Next() {
		var e entity.CatalogEntry
		var price string
		if err := rows.Scan(&e.ID, &e.CanonicalName, &price, &e.ProviderRef, &e.Stock, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if e.ReferencePrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("entry %d reference price: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *catalogRepository) ListAliases(ctx context.Context) ([]entity.CatalogAlias, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, alias_text, entry_id, created_at FROM catalog_aliases ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var aliases []entity.CatalogAlias
	for rows.Next() {
		var a entity.CatalogAlias
		if err := rows.Scan(&a.ID, &a.AliasText, &a.EntryID, &a.CreatedAt); err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

func (r *catalogRepository) GetEntry(ctx context.Context, id int64) (*entity.CatalogEntry, error) {
	var e entity.CatalogEntry
	var price string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, canonical_name, reference_price, provider_ref, stock, created_at, updated_at
		 FROM catalog_entries WHERE id = ?`, id).
		Scan(&e.ID, &e.CanonicalName, &price, &e.ProviderRef, &e.Stock, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	if e.ReferencePrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("entry %d reference price: %w", id, err)
	}
	return &e, nil
}

func (r *catalogRepository) CreateEntry(ctx context.Context, e entity.CatalogEntry) (int64, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO catalog_entries (canonical_name, reference_price, provider_ref, stock, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.CanonicalName, e.ReferencePrice.String(), e.ProviderRef, e.Stock, now, now)
	if err != nil {
		return 0, fmt.Errorf("create entry: %w", err)
	}
	return res.LastInsertId()
}

// CreateAlias persists an alias after checking the collision invariant: the
// alias text must not equal, under normalization, the canonical name of a
// different entry.
func (r *catalogRepository) CreateAlias(ctx context.Context, aliasText string, entryID int64) (int64, error) {
	if err := checkAliasCollision(ctx, r.db, aliasText, entryID); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO catalog_aliases (alias_text, entry_id, created_at) VALUES (?, ?, ?)`,
		aliasText, entryID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("create alias: %w", err)
	}
	return res.LastInsertId()
}

func (r *catalogRepository) AdjustStock(ctx context.Context, entryID int64, delta int64, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := adjustStockTx(ctx, tx, entryID, delta, reason); err != nil {
		return err
	}
	return tx.Commit()
}

// querier is the subset of *sql.DB / *sql.Tx the helpers need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func adjustStockTx(ctx context.Context, q querier, entryID int64, delta int64, reason string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE catalog_entries SET stock = stock + ?, updated_at = ? WHERE id = ?`,
		delta, time.Now().UTC(), entryID)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO stock_movements (entry_id, delta, reason, created_at) VALUES (?, ?, ?, ?)`,
		entryID, delta, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record stock movement: %w", err)
	}
	return nil
}

func checkAliasCollision(ctx context.Context, q querier, aliasText string, entryID int64) error {
	normAlias := normalize.Normalize(aliasText)
	rows, err := q.QueryContext(ctx, `SELECT id, canonical_name FROM catalog_entries`)
	if err != nil {
		return fmt.Errorf("check alias collision: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		if id != entryID && normalize.Normalize(name) == normAlias {
			return fmt.Errorf("alias %q vs entry %d: %w", aliasText, id, common.ErrAliasCollision)
		}
	}
	return rows.Err()
}
