package cart

import (
	"github.com/google/uuid"

	"github.com/prostorehq/prostore-backend/pkg/db/models"
)

// CartDTO is the cart read model. All money fields are fixed two-decimal
// strings; clients display them verbatim.
type CartDTO struct {
	ID            uuid.UUID     `json:"id"`
	Items         []CartItemDTO `json:"items"`
	ItemsPrice    string        `json:"items_price"`
	ShippingPrice string        `json:"shipping_price"`
	TaxPrice      string        `json:"tax_price"`
	TotalPrice    string        `json:"total_price"`
}

// CartItemDTO is one line of the cart read model.
type CartItemDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Image     string    `json:"image"`
	Price     string    `json:"price"`
	Qty       int       `json:"qty"`
}

func toCartDTO(cart *models.Cart) *CartDTO {
	if cart == nil {
		return nil
	}
	items := make([]CartItemDTO, 0, len(cart.Items))
	for i := range cart.Items {
		item := cart.Items[i]
		items = append(items, CartItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Slug:      item.Slug,
			Image:     item.Image,
			Price:     item.UnitPrice.StringFixed(2),
			Qty:       item.Quantity,
		})
	}
	return &CartDTO{
		ID:            cart.ID,
		Items:         items,
		ItemsPrice:    cart.ItemsPrice.StringFixed(2),
		ShippingPrice: cart.ShippingPrice.StringFixed(2),
		TaxPrice:      cart.TaxPrice.StringFixed(2),
		TotalPrice:    cart.TotalPrice.StringFixed(2),
	}
}
