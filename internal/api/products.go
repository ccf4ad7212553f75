package api

import (
	"net/http"

	productsv1 "github.com/jdholdren/stockroom/api/products/v1"
	"github.com/jdholdren/stockroom/internal/serverutil"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

func (s Server) getProducts(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	limit, offset := parsePaginationParams(r, defaultPageLimit, maxPageLimit)

	products, err := s.repo.Products(ctx, stockroom.ListProductsArgs{Limit: limit, Offset: offset})
	if err != nil {
		return err
	}
	total, err := s.repo.CountProducts(ctx)
	if err != nil {
		return err
	}

	resp := productsv1.ListProductsResponse{
		Products: make([]productsv1.Product, 0, len(products)),
		Pagination: productsv1.Pagination{
			Limit:  limit,
			Offset: offset,
			Total:  total,
		},
	}
	for _, p := range products {
		resp.Products = append(resp.Products, productsv1.Product{
			ID:          p.ID,
			ExternalID:  p.ExternalID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
			Status:      string(p.Status),
			CreatedBy:   p.CreatedBy,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		})
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}
