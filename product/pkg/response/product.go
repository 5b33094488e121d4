package response

import (
	"time"

	"github.com/google/uuid"

	"github.com/Alturino/catalog/internal/repository"
)

type CartItem struct {
	ID        uuid.UUID `json:"id"`
	Quantity  int32     `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Price        string     `json:"price"`
	SaleStart    *time.Time `json:"sale_start"`
	SaleEnd      *time.Time `json:"sale_end"`
	IsOnSale     bool       `json:"is_on_sale"`
	CurrentPrice float64    `json:"current_price"`
	CartItems    []CartItem `json:"cart_items"`
	Photo        *string    `json:"photo"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ProductPage is one limit/offset page. Next and Previous are filled in by the
// http layer, which knows the request URL.
type ProductPage struct {
	Count    int64     `json:"count"`
	Next     *string   `json:"next"`
	Previous *string   `json:"previous"`
	Results  []Product `json:"results"`
}

// Stats holds cart quantities grouped by UTC day (YYYY-MM-DD).
type Stats struct {
	Stats map[string][]int32 `json:"stats"`
}

// NewProduct renders p at time now. photoURL turns a stored photo path into
// the url clients fetch it from.
func NewProduct(
	p repository.Product,
	items []repository.CartItem,
	now time.Time,
	photoURL func(string) string,
) Product {
	onSale := IsOnSale(p.SaleStart, p.SaleEnd, now)

	cartItems := make([]CartItem, 0, len(items))
	for _, item := range items {
		cartItems = append(cartItems, CartItem{
			ID:        item.ID,
			Quantity:  item.Quantity,
			CreatedAt: item.CreatedAt,
		})
	}

	var photo *string
	if p.Photo != "" {
		url := p.Photo
		if photoURL != nil {
			url = photoURL(p.Photo)
		}
		photo = &url
	}

	return Product{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price.StringFixed(2),
		SaleStart:    p.SaleStart,
		SaleEnd:      p.SaleEnd,
		IsOnSale:     onSale,
		CurrentPrice: CurrentPrice(p.Price, onSale).InexactFloat64(),
		CartItems:    cartItems,
		Photo:        photo,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func NewStats(items []repository.CartItem) Stats {
	stats := Stats{Stats: map[string][]int32{}}
	for _, item := range items {
		day := item.CreatedAt.UTC().Format(time.DateOnly)
		stats.Stats[day] = append(stats.Stats[day], item.Quantity)
	}
	return stats
}
