package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prostorehq/prostore-backend/api/responses"
	"github.com/prostorehq/prostore-backend/api/validators"
	productsvc "github.com/prostorehq/prostore-backend/internal/products"
	pkgerrors "github.com/prostorehq/prostore-backend/pkg/errors"
	"github.com/prostorehq/prostore-backend/pkg/logger"
)

// ProductList answers a filtered, paginated catalog page.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := productsvc.ListFilters{
			Query:    validators.QueryString(r, "q"),
			Category: validators.QueryString(r, "category"),
			Page:     validators.QueryInt(r, "page", 1),
			PageSize: validators.QueryInt(r, "page_size", productsvc.DefaultPageSize),
		}

		page, err := svc.List(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ProductLatest answers the newest catalog entries for the landing page.
func ProductLatest(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListLatest(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ProductFeatured answers banner-carrying featured products.
func ProductFeatured(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := validators.QueryInt(r, "limit", productsvc.LatestProductsLimit)

		rows, err := svc.ListFeatured(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ProductCategories answers the distinct catalog categories.
func ProductCategories(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

// ProductBySlug answers a single product detail page.
func ProductBySlug(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dto, err := svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type createProductRequest struct {
	Name        string   `json:"name" validate:"required,min=3"`
	Slug        string   `json:"slug" validate:"required,min=3"`
	Category    string   `json:"category" validate:"required"`
	Brand       string   `json:"brand" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Images      []string `json:"images" validate:"required,min=1"`
	Price       string   `json:"price" validate:"required"`
	Stock       int      `json:"stock" validate:"gte=0"`
	IsFeatured  bool     `json:"is_featured"`
	Banner      *string  `json:"banner"`
}

func (req createProductRequest) toInput() (productsvc.CreateProductInput, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return productsvc.CreateProductInput{},
			pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a decimal string")
	}
	return productsvc.CreateProductInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Category:    req.Category,
		Brand:       req.Brand,
		Description: req.Description,
		Images:      req.Images,
		Price:       price,
		Stock:       req.Stock,
		IsFeatured:  req.IsFeatured,
		Banner:      req.Banner,
	}, nil
}

// AdminCreateProduct inserts a catalog entry.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

type updateProductRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=3"`
	Slug        *string   `json:"slug" validate:"omitempty,min=3"`
	Category    *string   `json:"category"`
	Brand       *string   `json:"brand"`
	Description *string   `json:"description"`
	Images      *[]string `json:"images" validate:"omitempty,min=1"`
	Price       *string   `json:"price"`
	Stock       *int      `json:"stock" validate:"omitempty,gte=0"`
	IsFeatured  *bool     `json:"is_featured"`
	Banner      *string   `json:"banner"`
}

func (req updateProductRequest) toInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Category:    req.Category,
		Brand:       req.Brand,
		Description: req.Description,
		Images:      req.Images,
		Stock:       req.Stock,
		IsFeatured:  req.IsFeatured,
		Banner:      req.Banner,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			return productsvc.UpdateProductInput{},
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a decimal string")
		}
		input.Price = &price
	}
	return input, nil
}

// AdminUpdateProduct applies a partial update to a catalog entry.
func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminDeleteProduct removes a catalog entry.
func AdminDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func productIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	return id, nil
}
