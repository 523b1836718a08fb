package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prostorehq/prostore-backend/api/middleware"
	"github.com/prostorehq/prostore-backend/api/responses"
	"github.com/prostorehq/prostore-backend/api/validators"
	cartsvc "github.com/prostorehq/prostore-backend/internal/cart"
	pkgerrors "github.com/prostorehq/prostore-backend/pkg/errors"
	"github.com/prostorehq/prostore-backend/pkg/logger"
)

// CartFetch returns the caller's cart. An absent cart answers an empty
// success payload rather than an error.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetCart(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// CartAddItem adds one unit of the product and answers the mutation envelope.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteMutationError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteMutationError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteMutationError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		message, err := svc.AddItem(r.Context(), owner, productID)
		if err != nil {
			responses.WriteMutationError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMutation(w, message)
	}
}

// CartRemoveItem removes one unit of the product and answers the mutation
// envelope.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteMutationError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteMutationError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		message, err := svc.RemoveItem(r.Context(), owner, productID)
		if err != nil {
			responses.WriteMutationError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMutation(w, message)
	}
}

// cartOwner keys the cart by the authenticated user when present, else by the
// anonymous session token the SessionCart middleware guarantees.
func cartOwner(r *http.Request) (cartsvc.Owner, error) {
	owner := cartsvc.Owner{
		SessionCartID: middleware.SessionCartIDFromContext(r.Context()),
	}

	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return cartsvc.Owner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		owner.UserID = &userID
	}

	if owner.UserID == nil && owner.SessionCartID == "" {
		return cartsvc.Owner{}, pkgerrors.New(pkgerrors.CodeValidation, "session cart id missing")
	}
	return owner, nil
}
