package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Alturino/catalog/internal/repository"
)

const cartItemColumns = `id, product_id, quantity, created_at`

type cartItemRow struct {
	ID        string `db:"id"`
	ProductID string `db:"product_id"`
	Quantity  int32  `db:"quantity"`
	CreatedAt string `db:"created_at"`
}

func (r cartItemRow) cartItem() (repository.CartItem, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return repository.CartItem{}, fmt.Errorf("failed parsing cart item id=%s with error=%w", r.ID, err)
	}
	productID, err := uuid.Parse(r.ProductID)
	if err != nil {
		return repository.CartItem{}, fmt.Errorf("failed parsing product id=%s with error=%w", r.ProductID, err)
	}
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return repository.CartItem{}, err
	}
	return repository.CartItem{
		ID:        id,
		ProductID: productID,
		Quantity:  r.Quantity,
		CreatedAt: createdAt,
	}, nil
}

const insertCartItem = `INSERT INTO cart_items (id, product_id, quantity, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) InsertCartItem(c context.Context, arg repository.InsertCartItemParams) (repository.CartItem, error) {
	_, err := q.db.ExecContext(c, insertCartItem,
		arg.ID.String(),
		arg.ProductID.String(),
		arg.Quantity,
		formatTime(arg.CreatedAt),
	)
	if err != nil {
		return repository.CartItem{}, err
	}
	return repository.CartItem{
		ID:        arg.ID,
		ProductID: arg.ProductID,
		Quantity:  arg.Quantity,
		CreatedAt: arg.CreatedAt.UTC(),
	}, nil
}

func (q *Queries) FindCartItemsByProductId(c context.Context, productID uuid.UUID) ([]repository.CartItem, error) {
	return q.FindCartItemsByProductIds(c, []uuid.UUID{productID})
}

func (q *Queries) FindCartItemsByProductIds(c context.Context, productIDs []uuid.UUID) ([]repository.CartItem, error) {
	if len(productIDs) == 0 {
		return []repository.CartItem{}, nil
	}
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		ids = append(ids, id.String())
	}

	query, args, err := sqlx.In(
		"SELECT "+cartItemColumns+" FROM cart_items WHERE product_id IN (?) ORDER BY created_at, id",
		ids,
	)
	if err != nil {
		return nil, err
	}

	rows := []cartItemRow{}
	if err = sqlx.SelectContext(c, q.db, &rows, q.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	items := make([]repository.CartItem, 0, len(rows))
	for _, row := range rows {
		item, err := row.cartItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
