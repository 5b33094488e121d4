package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Alturino/catalog/internal/repository"
)

const productColumns = `id, name, description, price, sale_start, sale_end, photo, created_at, updated_at`

type productRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	Price       string         `db:"price"`
	SaleStart   sql.NullString `db:"sale_start"`
	SaleEnd     sql.NullString `db:"sale_end"`
	Photo       string         `db:"photo"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

func (r productRow) product() (repository.Product, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return repository.Product{}, fmt.Errorf("failed parsing product id=%s with error=%w", r.ID, err)
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return repository.Product{}, fmt.Errorf("failed parsing price=%s with error=%w", r.Price, err)
	}
	saleStart, err := parseNullTime(r.SaleStart)
	if err != nil {
		return repository.Product{}, err
	}
	saleEnd, err := parseNullTime(r.SaleEnd)
	if err != nil {
		return repository.Product{}, err
	}
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return repository.Product{}, err
	}
	updatedAt, err := parseTime(r.UpdatedAt)
	if err != nil {
		return repository.Product{}, err
	}
	return repository.Product{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Price:       price,
		SaleStart:   saleStart,
		SaleEnd:     saleEnd,
		Photo:       r.Photo,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

func productFilter(arg repository.FindProductsParams) (string, []interface{}) {
	where := []string{"1 = 1"}
	args := []interface{}{}
	if arg.ID != nil {
		where = append(where, "id = ?")
		args = append(args, arg.ID.String())
	}
	if arg.OnSaleAt != nil {
		now := formatTime(*arg.OnSaleAt)
		where = append(where, "sale_start <= ? AND sale_end >= ?")
		args = append(args, now, now)
	}
	for _, term := range arg.SearchTerms {
		pattern := repository.ContainsPattern(term)
		where = append(where, `(name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (q *Queries) CountProducts(c context.Context, arg repository.FindProductsParams) (int64, error) {
	where, args := productFilter(arg)
	var count int64
	err := sqlx.GetContext(c, q.db, &count, "SELECT count(*) FROM products"+where, args...)
	return count, err
}

func (q *Queries) FindProducts(c context.Context, arg repository.FindProductsParams) ([]repository.Product, error) {
	where, args := productFilter(arg)
	query := "SELECT " + productColumns + " FROM products" + where +
		" ORDER BY created_at, id LIMIT ? OFFSET ?"
	args = append(args, arg.Limit, arg.Offset)

	rows := []productRow{}
	if err := sqlx.SelectContext(c, q.db, &rows, query, args...); err != nil {
		return nil, err
	}

	products := make([]repository.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.product()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

const findProductById = `SELECT ` + productColumns + ` FROM products WHERE id = ?`

func (q *Queries) FindProductById(c context.Context, id uuid.UUID) (repository.Product, error) {
	return q.getProduct(c, findProductById, id.String())
}

const insertProduct = `INSERT INTO products (id, name, description, price, sale_start, sale_end, photo, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertProduct(c context.Context, arg repository.InsertProductParams) (repository.Product, error) {
	createdAt := formatTime(arg.CreatedAt)
	_, err := q.db.ExecContext(c, insertProduct,
		arg.ID.String(),
		arg.Name,
		arg.Description,
		arg.Price.String(),
		formatNullTime(arg.SaleStart),
		formatNullTime(arg.SaleEnd),
		arg.Photo,
		createdAt,
		createdAt,
	)
	if err != nil {
		return repository.Product{}, err
	}
	return q.FindProductById(c, arg.ID)
}

const updateProduct = `UPDATE products
SET name = ?, description = ?, price = ?, sale_start = ?, sale_end = ?, photo = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateProduct(c context.Context, arg repository.UpdateProductParams) (repository.Product, error) {
	result, err := q.db.ExecContext(c, updateProduct,
		arg.Name,
		arg.Description,
		arg.Price.String(),
		formatNullTime(arg.SaleStart),
		formatNullTime(arg.SaleEnd),
		arg.Photo,
		formatTime(arg.UpdatedAt),
		arg.ID.String(),
	)
	if err != nil {
		return repository.Product{}, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return repository.Product{}, repository.ErrNotFound
	}
	return q.FindProductById(c, arg.ID)
}

const deleteProduct = `DELETE FROM products WHERE id = ?`

func (q *Queries) DeleteProduct(c context.Context, id uuid.UUID) (repository.Product, error) {
	product, err := q.FindProductById(c, id)
	if err != nil {
		return repository.Product{}, err
	}
	if _, err = q.db.ExecContext(c, deleteProduct, id.String()); err != nil {
		return repository.Product{}, err
	}
	return product, nil
}

func (q *Queries) getProduct(c context.Context, query string, args ...interface{}) (repository.Product, error) {
	row := productRow{}
	if err := sqlx.GetContext(c, q.db, &row, query, args...); err != nil {
		return repository.Product{}, notFound(err)
	}
	return row.product()
}
