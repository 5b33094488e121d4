package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("record not found")

type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	SaleStart   *time.Time      `json:"sale_start"`
	SaleEnd     *time.Time      `json:"sale_end"`
	Photo       string          `json:"photo"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CartItem struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// FindProductsParams narrows a product listing. Zero values disable a filter.
type FindProductsParams struct {
	ID          *uuid.UUID
	OnSaleAt    *time.Time
	SearchTerms []string
	Limit       int32
	Offset      int32
}

type InsertProductParams struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	SaleStart   *time.Time
	SaleEnd     *time.Time
	Photo       string
	CreatedAt   time.Time
}

type UpdateProductParams struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	SaleStart   *time.Time
	SaleEnd     *time.Time
	Photo       string
	UpdatedAt   time.Time
}

type InsertCartItemParams struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	CreatedAt time.Time
}

type Querier interface {
	CountProducts(c context.Context, arg FindProductsParams) (int64, error)
	FindProducts(c context.Context, arg FindProductsParams) ([]Product, error)
	FindProductById(c context.Context, id uuid.UUID) (Product, error)
	InsertProduct(c context.Context, arg InsertProductParams) (Product, error)
	UpdateProduct(c context.Context, arg UpdateProductParams) (Product, error)
	DeleteProduct(c context.Context, id uuid.UUID) (Product, error)
	InsertCartItem(c context.Context, arg InsertCartItemParams) (CartItem, error)
	FindCartItemsByProductId(c context.Context, productID uuid.UUID) ([]CartItem, error)
	FindCartItemsByProductIds(c context.Context, productIDs []uuid.UUID) ([]CartItem, error)
}

// Store runs queries directly or, through ExecTx, inside one transaction that
// is committed when fn returns nil and rolled back otherwise.
type Store interface {
	Querier
	ExecTx(c context.Context, fn func(Querier) error) error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns a search term into a LIKE pattern matching it anywhere,
// with wildcard characters in the term taken literally.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
