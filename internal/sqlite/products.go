package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"modernc.org/sqlite"

	"github.com/jdholdren/stockroom/internal/stockroom"
)

const productNamespace = "-prd"

var productColumns = []string{
	"id",
	"external_id",
	"name",
	"description",
	"price",
	"stock",
	"status",
	"created_by",
	"created_at",
	"updated_at",
}

// UpsertProduct looks the product up by its external id and either inserts it
// or overwrites every mutable field, owner included, all in one transaction.
func (r Repo) UpsertProduct(ctx context.Context, args stockroom.UpsertProductArgs) (_ stockroom.Product, created bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return stockroom.Product{}, false, fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var id string
	err = tx.GetContext(ctx, &id, `SELECT id FROM products WHERE external_id = ?;`, args.ExternalID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString() + productNamespace
		created = true
		const q = `INSERT INTO products (id, external_id, name, description, price, stock, status, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);`
		if _, err = tx.ExecContext(ctx, q, id, args.ExternalID, args.Name, args.Description, args.Price, args.Stock, args.Status, args.CreatedBy); err != nil {
			return stockroom.Product{}, false, productWriteErr("inserting", err)
		}
	case err != nil:
		return stockroom.Product{}, false, fmt.Errorf("error looking up product: %w", err)
	default:
		const q = `UPDATE products
		SET name = ?, description = ?, price = ?, stock = ?, status = ?, created_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?;`
		if _, err = tx.ExecContext(ctx, q, args.Name, args.Description, args.Price, args.Stock, args.Status, args.CreatedBy, id); err != nil {
			return stockroom.Product{}, false, productWriteErr("updating", err)
		}
	}

	query, qArgs, err := sq.Select(productColumns...).From("products").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return stockroom.Product{}, false, fmt.Errorf("error constructing sql: %s", err)
	}
	var p stockroom.Product
	if err = tx.GetContext(ctx, &p, query, qArgs...); err != nil {
		return stockroom.Product{}, false, fmt.Errorf("error reading back product: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return stockroom.Product{}, false, fmt.Errorf("error committing product: %w", err)
	}

	return p, created, nil
}

func productWriteErr(verb string, err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case codeConstraintUnique:
			return stockroom.ErrConflict
		case codeConstraintForeignKey:
			return fmt.Errorf("error %s product, unknown creator: %w", verb, err)
		}
	}

	return fmt.Errorf("error %s product: %w", verb, err)
}

func (r Repo) ProductByExternalID(ctx context.Context, externalID string) (stockroom.Product, error) {
	query, args, err := sq.Select(productColumns...).From("products").Where(sq.Eq{"external_id": externalID}).ToSql()
	if err != nil {
		return stockroom.Product{}, fmt.Errorf("error constructing sql: %s", err)
	}

	var p stockroom.Product
	err = r.db.GetContext(ctx, &p, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return stockroom.Product{}, stockroom.ErrNotFound
	}
	if err != nil {
		return stockroom.Product{}, fmt.Errorf("error fetching product: %w", err)
	}

	return p, nil
}

// Products pages through the catalog, most recently created first.
func (r Repo) Products(ctx context.Context, args stockroom.ListProductsArgs) ([]stockroom.Product, error) {
	q := sq.Select(productColumns...).From("products").OrderBy("created_at DESC", "rowid DESC")
	if args.Limit > 0 {
		q = q.Limit(uint64(args.Limit))
	}
	if args.Offset > 0 {
		q = q.Offset(uint64(args.Offset))
	}

	query, qArgs, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	products := []stockroom.Product{}
	if err := r.db.SelectContext(ctx, &products, query, qArgs...); err != nil {
		return nil, fmt.Errorf("error selecting products: %w", err)
	}

	return products, nil
}

func (r Repo) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products;`); err != nil {
		return 0, fmt.Errorf("error counting products: %w", err)
	}

	return n, nil
}
