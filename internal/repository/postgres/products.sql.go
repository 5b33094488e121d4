package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Alturino/catalog/internal/repository"
)

const productColumns = `id, name, description, price, sale_start, sale_end, photo, created_at, updated_at`

const productFilter = `
WHERE ($1::uuid IS NULL OR id = $1::uuid)
  AND ($2::timestamptz IS NULL OR (sale_start <= $2::timestamptz AND sale_end >= $2::timestamptz))
  AND NOT EXISTS (
    SELECT 1 FROM unnest($3::text[]) AS pattern
    WHERE NOT (name ILIKE pattern OR description ILIKE pattern)
  )`

const countProducts = `-- name: CountProducts :one
SELECT count(*) FROM products` + productFilter

func (q *Queries) CountProducts(c context.Context, arg repository.FindProductsParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(c, countProducts, filterArgs(arg)...).Scan(&count)
	return count, err
}

const findProducts = `-- name: FindProducts :many
SELECT ` + productColumns + ` FROM products` + productFilter + `
ORDER BY created_at, id
LIMIT $4 OFFSET $5`

func (q *Queries) FindProducts(c context.Context, arg repository.FindProductsParams) ([]repository.Product, error) {
	args := append(filterArgs(arg), arg.Limit, arg.Offset)
	rows, err := q.db.Query(c, findProducts, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.Product, error) {
		return scanProduct(row)
	})
}

const findProductById = `-- name: FindProductById :one
SELECT ` + productColumns + ` FROM products WHERE id = $1`

func (q *Queries) FindProductById(c context.Context, id uuid.UUID) (repository.Product, error) {
	product, err := scanProduct(q.db.QueryRow(c, findProductById, id))
	return product, notFound(err)
}

const insertProduct = `-- name: InsertProduct :one
INSERT INTO products (id, name, description, price, sale_start, sale_end, photo, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
RETURNING ` + productColumns

func (q *Queries) InsertProduct(c context.Context, arg repository.InsertProductParams) (repository.Product, error) {
	row := q.db.QueryRow(c, insertProduct,
		arg.ID,
		arg.Name,
		arg.Description,
		toNumeric(arg.Price),
		toTimestamptz(arg.SaleStart),
		toTimestamptz(arg.SaleEnd),
		arg.Photo,
		arg.CreatedAt,
	)
	return scanProduct(row)
}

const updateProduct = `-- name: UpdateProduct :one
UPDATE products
SET name = $2, description = $3, price = $4, sale_start = $5, sale_end = $6, photo = $7, updated_at = $8
WHERE id = $1
RETURNING ` + productColumns

func (q *Queries) UpdateProduct(c context.Context, arg repository.UpdateProductParams) (repository.Product, error) {
	row := q.db.QueryRow(c, updateProduct,
		arg.ID,
		arg.Name,
		arg.Description,
		toNumeric(arg.Price),
		toTimestamptz(arg.SaleStart),
		toTimestamptz(arg.SaleEnd),
		arg.Photo,
		arg.UpdatedAt,
	)
	product, err := scanProduct(row)
	return product, notFound(err)
}

const deleteProduct = `-- name: DeleteProduct :one
DELETE FROM products WHERE id = $1
RETURNING ` + productColumns

func (q *Queries) DeleteProduct(c context.Context, id uuid.UUID) (repository.Product, error) {
	product, err := scanProduct(q.db.QueryRow(c, deleteProduct, id))
	return product, notFound(err)
}

func filterArgs(arg repository.FindProductsParams) []interface{} {
	patterns := make([]string, 0, len(arg.SearchTerms))
	for _, term := range arg.SearchTerms {
		patterns = append(patterns, repository.ContainsPattern(term))
	}
	return []interface{}{arg.ID, arg.OnSaleAt, patterns}
}

func scanProduct(row pgx.Row) (repository.Product, error) {
	var (
		p         repository.Product
		price     pgtype.Numeric
		saleStart pgtype.Timestamptz
		saleEnd   pgtype.Timestamptz
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&price,
		&saleStart,
		&saleEnd,
		&p.Photo,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return repository.Product{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	p.Price = fromNumeric(price)
	p.SaleStart = fromTimestamptz(saleStart)
	p.SaleEnd = fromTimestamptz(saleEnd)
	return p, nil
}
