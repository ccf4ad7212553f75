package stockroom

import (
	"context"
	"time"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

type (
	ProductRepo interface {
		// UpsertProduct creates the product keyed by its external id, or overwrites
		// the existing row in place. Reports whether a new row was created.
		UpsertProduct(ctx context.Context, args UpsertProductArgs) (p Product, created bool, err error)
		ProductByExternalID(ctx context.Context, externalID string) (Product, error)
		Products(ctx context.Context, args ListProductsArgs) ([]Product, error)
		CountProducts(ctx context.Context) (int, error)
	}

	// Product is the persisted catalog record.
	Product struct {
		ID          string        `db:"id"`
		ExternalID  string        `db:"external_id"`
		Name        string        `db:"name"`
		Description string        `db:"description"`
		Price       float64       `db:"price"`
		Stock       int           `db:"stock"`
		Status      ProductStatus `db:"status"`
		CreatedBy   string        `db:"created_by"`
		CreatedAt   time.Time     `db:"created_at"`
		UpdatedAt   time.Time     `db:"updated_at"`
	}

	// Every field is written on both insert and update.
	UpsertProductArgs struct {
		ExternalID  string
		Name        string
		Description string
		Price       float64
		Stock       int
		Status      ProductStatus
		CreatedBy   string
	}

	ListProductsArgs struct {
		Limit  int
		Offset int
	}
)
