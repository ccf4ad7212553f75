package importer

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/jdholdren/stockroom/internal/catalog"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

// ErrNoActor means nobody could be found to own the imported products.
var ErrNoActor = errors.New("no admin user found for product import")

const (
	reasonMissingID   = "missing external id"
	reasonMissingName = "missing name"
)

// ItemError describes a feed item that didn't make it into the store.
type ItemError struct {
	Index      int    `json:"index"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Reason     string `json:"reason"`
}

type Report struct {
	Total   int         `json:"total"`
	Created int         `json:"created"`
	Updated int         `json:"updated"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Errors  []ItemError `json:"errors,omitempty"`
}

// Processed is what gets recorded as the source's import count.
func (r Report) Processed() int {
	return r.Created + r.Updated
}

// ExternalKey namespaces a feed's raw id by its source, so equal ids from two
// suppliers never land on the same product.
func ExternalKey(sourceID, rawID string) string {
	return sourceID + "_" + rawID
}

type Reconciler struct {
	products stockroom.ProductRepo
}

func NewReconciler(products stockroom.ProductRepo) *Reconciler {
	return &Reconciler{products: products}
}

// Reconcile upserts every valid item in order. A bad item is recorded in the
// report and never stops the batch; the only error is ErrNoActor.
func (r *Reconciler) Reconcile(ctx context.Context, sourceID, actorID string, items []catalog.Item) (Report, error) {
	if actorID == "" {
		return Report{}, ErrNoActor
	}

	report := Report{Total: len(items)}
	for i, item := range items {
		switch {
		case item.ExternalID == "":
			report.skip(i, item, reasonMissingID)
			slog.WarnContext(ctx, "product skipped: missing external id", "index", i, "name", item.Name)
			continue
		case item.Name == "":
			report.skip(i, item, reasonMissingName)
			slog.WarnContext(ctx, "product skipped: missing name", "index", i, "external_id", item.ExternalID)
			continue
		}

		_, created, err := r.products.UpsertProduct(ctx, stockroom.UpsertProductArgs{
			ExternalID:  ExternalKey(sourceID, item.ExternalID),
			Name:        item.Name,
			Description: item.Description,
			Price:       roundPrice(item.Price),
			Stock:       item.Stock,
			Status:      stockroom.ProductStatusActive,
			CreatedBy:   actorID,
		})
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, ItemError{Index: i, ExternalID: item.ExternalID, Name: item.Name, Reason: err.Error()})
			slog.ErrorContext(ctx, "error importing product", "index", i, "external_id", item.ExternalID, "err", err)
			continue
		}

		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}

	return report, nil
}

func (r *Report) skip(i int, item catalog.Item, reason string) {
	r.Skipped++
	r.Errors = append(r.Errors, ItemError{Index: i, ExternalID: item.ExternalID, Name: item.Name, Reason: reason})
}

// Prices are kept to cents.
func roundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}
