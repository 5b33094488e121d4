package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Alturino/catalog/internal/repository"
)

const cartItemColumns = `id, product_id, quantity, created_at`

const insertCartItem = `-- name: InsertCartItem :one
INSERT INTO cart_items (id, product_id, quantity, created_at)
VALUES ($1, $2, $3, $4)
RETURNING ` + cartItemColumns

func (q *Queries) InsertCartItem(c context.Context, arg repository.InsertCartItemParams) (repository.CartItem, error) {
	var i repository.CartItem
	err := q.db.QueryRow(c, insertCartItem, arg.ID, arg.ProductID, arg.Quantity, arg.CreatedAt).
		Scan(&i.ID, &i.ProductID, &i.Quantity, &i.CreatedAt)
	i.CreatedAt = i.CreatedAt.UTC()
	return i, err
}

const findCartItemsByProductId = `-- name: FindCartItemsByProductId :many
SELECT ` + cartItemColumns + ` FROM cart_items
WHERE product_id = $1
ORDER BY created_at, id`

func (q *Queries) FindCartItemsByProductId(c context.Context, productID uuid.UUID) ([]repository.CartItem, error) {
	rows, err := q.db.Query(c, findCartItemsByProductId, productID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCartItem)
}

const findCartItemsByProductIds = `-- name: FindCartItemsByProductIds :many
SELECT ` + cartItemColumns + ` FROM cart_items
WHERE product_id = ANY($1::uuid[])
ORDER BY created_at, id`

func (q *Queries) FindCartItemsByProductIds(c context.Context, productIDs []uuid.UUID) ([]repository.CartItem, error) {
	rows, err := q.db.Query(c, findCartItemsByProductIds, productIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCartItem)
}

func scanCartItem(row pgx.CollectableRow) (repository.CartItem, error) {
	var i repository.CartItem
	err := row.Scan(&i.ID, &i.ProductID, &i.Quantity, &i.CreatedAt)
	i.CreatedAt = i.CreatedAt.UTC()
	return i, err
}
