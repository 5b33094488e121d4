package response

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/catalog/internal/repository"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestIsOnSale(t *testing.T) {
	now := time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC)
	before, after := now.Add(-time.Hour), now.Add(time.Hour)

	tests := []struct {
		name      string
		saleStart *time.Time
		saleEnd   *time.Time
		expected  bool
	}{
		{name: "given no sale start should not be on sale", saleStart: nil, saleEnd: timePtr(after), expected: false},
		{name: "given now inside window should be on sale", saleStart: timePtr(before), saleEnd: timePtr(after), expected: true},
		{name: "given now equal to bounds should be on sale", saleStart: timePtr(now), saleEnd: timePtr(now), expected: true},
		{name: "given window in the future should not be on sale", saleStart: timePtr(after), saleEnd: nil, expected: false},
		{name: "given window in the past should not be on sale", saleStart: timePtr(before), saleEnd: timePtr(before), expected: false},
		{name: "given open ended window should be on sale", saleStart: timePtr(before), saleEnd: nil, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsOnSale(tt.saleStart, tt.saleEnd, now))
		})
	}
}

func TestCurrentPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		onSale   bool
		expected string
	}{
		{name: "given not on sale should keep price", price: "123.45", onSale: false, expected: "123.45"},
		{name: "given on sale should discount ten percent", price: "100", onSale: true, expected: "90"},
		{name: "given on sale should round to cents", price: "10.55", onSale: true, expected: "9.5"},
		{name: "given on sale with half cent should round half up", price: "0.05", onSale: true, expected: "0.05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := CurrentPrice(decimal.RequireFromString(tt.price), tt.onSale)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(actual), actual.String())
		})
	}
}

func TestNewProduct(t *testing.T) {
	now := time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC)
	p := repository.Product{
		ID:          uuid.New(),
		Name:        "Mineral Water",
		Description: "Strawberry flavour",
		Price:       decimal.RequireFromString("10"),
		SaleStart:   timePtr(now.Add(-time.Hour)),
		Photo:       "products/water.png",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	items := []repository.CartItem{{ID: uuid.New(), ProductID: p.ID, Quantity: 2, CreatedAt: now}}

	actual := NewProduct(p, items, now, func(path string) string { return "/media/" + path })

	assert.Equal(t, "10.00", actual.Price)
	assert.True(t, actual.IsOnSale)
	assert.Equal(t, 9.0, actual.CurrentPrice)
	require.NotNil(t, actual.Photo)
	assert.Equal(t, "/media/products/water.png", *actual.Photo)
	require.Len(t, actual.CartItems, 1)
	assert.EqualValues(t, 2, actual.CartItems[0].Quantity)

	b, err := json.Marshal(actual)
	require.NoError(t, err)
	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(b, &body))
	assert.Equal(t, "10.00", body["price"])
	assert.Equal(t, 9.0, body["current_price"])
	assert.Nil(t, body["sale_end"])
}

func TestNewProductWithoutPhoto(t *testing.T) {
	actual := NewProduct(repository.Product{Price: decimal.NewFromInt(1)}, nil, time.Now(), nil)

	assert.Nil(t, actual.Photo)
	assert.NotNil(t, actual.CartItems)
	assert.Empty(t, actual.CartItems)
}

func TestNewStats(t *testing.T) {
	day := time.Date(2024, 11, 20, 23, 0, 0, 0, time.UTC)
	items := []repository.CartItem{
		{Quantity: 5, CreatedAt: day},
		{Quantity: 10, CreatedAt: day.Add(30 * time.Minute)},
		{Quantity: 1, CreatedAt: day.Add(2 * time.Hour)},
	}

	actual := NewStats(items)

	assert.Equal(t, map[string][]int32{
		"2024-11-20": {5, 10},
		"2024-11-21": {1},
	}, actual.Stats)
}
