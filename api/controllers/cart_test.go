package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prostorehq/prostore-backend/api/middleware"
	cartsvc "github.com/prostorehq/prostore-backend/internal/cart"
	pkgerrors "github.com/prostorehq/prostore-backend/pkg/errors"
	"github.com/prostorehq/prostore-backend/pkg/types"
)

type stubCartService struct {
	cart       *cartsvc.CartDTO
	getErr     error
	addMessage string
	addErr     error
	rmMessage  string
	rmErr      error

	lastOwner   cartsvc.Owner
	lastProduct uuid.UUID
}

func (s *stubCartService) GetCart(ctx context.Context, owner cartsvc.Owner) (*cartsvc.CartDTO, error) {
	s.lastOwner = owner
	return s.cart, s.getErr
}

func (s *stubCartService) AddItem(ctx context.Context, owner cartsvc.Owner, productID uuid.UUID) (string, error) {
	s.lastOwner = owner
	s.lastProduct = productID
	return s.addMessage, s.addErr
}

func (s *stubCartService) RemoveItem(ctx context.Context, owner cartsvc.Owner, productID uuid.UUID) (string, error) {
	s.lastOwner = owner
	s.lastProduct = productID
	return s.rmMessage, s.rmErr
}

func (s *stubCartService) MergeAnonymousIntoUser(ctx context.Context, userID uuid.UUID, sessionCartID string) error {
	return nil
}

func withSessionCart(req *http.Request, token string) *http.Request {
	return req.WithContext(middleware.WithSessionCartID(req.Context(), token))
}

func TestCartFetchAnonymous(t *testing.T) {
	svc := &stubCartService{cart: &cartsvc.CartDTO{ItemsPrice: "50.00", TotalPrice: "67.50"}}
	handler := CartFetch(svc, nil)

	req := withSessionCart(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), "session-token")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastOwner.SessionCartID != "session-token" {
		t.Fatalf("unexpected owner session token %q", svc.lastOwner.SessionCartID)
	}
	if svc.lastOwner.UserID != nil {
		t.Fatalf("anonymous request should not carry a user id")
	}
}

func TestCartFetchPrefersAuthenticatedUser(t *testing.T) {
	svc := &stubCartService{}
	handler := CartFetch(svc, nil)

	userID := uuid.New()
	req := withSessionCart(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), "session-token")
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastOwner.UserID == nil || *svc.lastOwner.UserID != userID {
		t.Fatalf("expected owner user id %s got %v", userID, svc.lastOwner.UserID)
	}
}

func TestCartFetchWithoutOwnerContext(t *testing.T) {
	handler := CartFetch(&stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartAddItemAnswersMutationEnvelope(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{addMessage: "Widget added to cart"}
	handler := CartAddItem(svc, nil)

	body := strings.NewReader(`{"product_id":"` + productID.String() + `"}`)
	req := withSessionCart(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", body), "session-token")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastProduct != productID {
		t.Fatalf("unexpected product id %s", svc.lastProduct)
	}

	var envelope types.MutationEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Success || envelope.Message != "Widget added to cart" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
}

func TestCartAddItemRejectsMalformedProductID(t *testing.T) {
	handler := CartAddItem(&stubCartService{}, nil)

	body := strings.NewReader(`{"product_id":"not-a-uuid"}`)
	req := withSessionCart(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", body), "session-token")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	var envelope types.MutationEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Success {
		t.Fatalf("expected success=false for malformed payload")
	}
}

func TestCartAddItemSurfacesStockConflict(t *testing.T) {
	svc := &stubCartService{addErr: pkgerrors.New(pkgerrors.CodeConflict, "not enough stock")}
	handler := CartAddItem(svc, nil)

	body := strings.NewReader(`{"product_id":"` + uuid.NewString() + `"}`)
	req := withSessionCart(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", body), "session-token")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}

	var envelope types.MutationEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Success || envelope.Message != "not enough stock" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
}

func TestCartRemoveItemRejectsMalformedProductID(t *testing.T) {
	handler := CartRemoveItem(&stubCartService{}, nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productId", "not-a-uuid")

	req := withSessionCart(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/not-a-uuid", nil), "session-token")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartRemoveItemAnswersMutationEnvelope(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{rmMessage: "Widget was removed from cart"}
	handler := CartRemoveItem(svc, nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productId", productID.String())

	req := withSessionCart(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/"+productID.String(), nil), "session-token")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope types.MutationEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Success || envelope.Message != "Widget was removed from cart" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
}
