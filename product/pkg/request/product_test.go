package request

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/catalog/internal/validate"
)

func TestCreateProductDecode(t *testing.T) {
	body := `{
		"name": "Mineral Water",
		"description": "Strawberry flavour",
		"price": 10.5,
		"sale_start": "12:01 AM 28 July 2019",
		"sale_end": "2019-07-29T00:00:00Z",
		"cart_items": [{"quantity": 5}]
	}`

	req := CreateProduct{}
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, Price("10.5"), req.Price)
	require.NotNil(t, req.SaleStart.Time)
	assert.Equal(t, time.Date(2019, 7, 28, 0, 1, 0, 0, time.UTC), *req.SaleStart.Time)
	require.NotNil(t, req.SaleEnd.Time)
	assert.Equal(t, time.Date(2019, 7, 29, 0, 0, 0, 0, time.UTC), *req.SaleEnd.Time)
	assert.Equal(t, []CartItem{{Quantity: 5}}, req.CartItems)
	assert.NoError(t, req.Validate(context.Background()))
}

func TestCreateProductValidate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected validate.FieldErrors
	}{
		{
			name:     "given string price should accept it",
			body:     `{"name": "Mineral Water", "description": "Strawberry", "price": "123.45"}`,
			expected: nil,
		},
		{
			name:     "given non numeric price should reject it",
			body:     `{"name": "Mineral Water", "description": "Strawberry", "price": "abc"}`,
			expected: validate.FieldErrors{"price": {validate.MsgNumber}},
		},
		{
			name:     "given boolean price should reject it",
			body:     `{"name": "Mineral Water", "description": "Strawberry", "price": true}`,
			expected: validate.FieldErrors{"price": {validate.MsgNumber}},
		},
		{
			name:     "given zero price should reject it",
			body:     `{"name": "Mineral Water", "description": "Strawberry", "price": 0}`,
			expected: validate.FieldErrors{"price": {validate.MsgPositive}},
		},
		{
			name:     "given missing price should require it",
			body:     `{"name": "Mineral Water", "description": "Strawberry"}`,
			expected: validate.FieldErrors{"price": {validate.MsgRequired}},
		},
		{
			name: "given zero quantity should reject cart item",
			body: `{"name": "Mineral Water", "description": "Strawberry", "price": 1, "cart_items": [{"quantity": 0}]}`,
			expected: validate.FieldErrors{
				"cart_items[0].quantity": {"must be greater than or equal to 1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreateProduct{}
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			err := req.Validate(context.Background())
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			var fieldErrors validate.FieldErrors
			require.ErrorAs(t, err, &fieldErrors)
			assert.Equal(t, tt.expected, fieldErrors)
		})
	}
}

func TestUpdateProductValidate(t *testing.T) {
	name, description, price := "New Product", "Awesome product", Price("123.45")
	badPrice := Price("-1")

	tests := []struct {
		name     string
		arg      UpdateProduct
		expected validate.FieldErrors
	}{
		{
			name:     "given partial update with single field should pass",
			arg:      UpdateProduct{Name: &name, Partial: true},
			expected: nil,
		},
		{
			name: "given full update without description and price should require them",
			arg:  UpdateProduct{Name: &name},
			expected: validate.FieldErrors{
				"description": {validate.MsgRequired},
				"price":       {validate.MsgRequired},
			},
		},
		{
			name:     "given full update with every field should pass",
			arg:      UpdateProduct{Name: &name, Description: &description, Price: &price},
			expected: nil,
		},
		{
			name:     "given partial update with negative price should reject it",
			arg:      UpdateProduct{Price: &badPrice, Partial: true},
			expected: validate.FieldErrors{"price": {validate.MsgPositive}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.arg.Validate(context.Background())
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			var fieldErrors validate.FieldErrors
			require.ErrorAs(t, err, &fieldErrors)
			assert.Equal(t, tt.expected, fieldErrors)
		})
	}
}

func TestSaleTimeNullIsSet(t *testing.T) {
	req := UpdateProduct{}
	require.NoError(t, json.Unmarshal([]byte(`{"sale_start": null}`), &req))

	assert.True(t, req.SaleStart.Set)
	assert.Nil(t, req.SaleStart.Time)
	assert.False(t, req.SaleEnd.Set)
}

func TestSaleTimeRejectsUnknownFormat(t *testing.T) {
	req := UpdateProduct{}
	err := json.Unmarshal([]byte(`{"sale_start": "yesterday"}`), &req)
	assert.Error(t, err)
}

func TestParseFindProducts(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name     string
		query    url.Values
		expected FindProducts
	}{
		{
			name:     "given empty query should use defaults",
			query:    url.Values{},
			expected: FindProducts{Limit: 10, Search: []string{}},
		},
		{
			name: "given every filter should parse them",
			query: url.Values{
				"id":      {id.String()},
				"on_sale": {"True"},
				"search":  {"vitamin, iron  water"},
				"limit":   {"2"},
				"offset":  {"4"},
			},
			expected: FindProducts{
				ID:     &id,
				OnSale: true,
				Search: []string{"vitamin", "iron", "water"},
				Limit:  2,
				Offset: 4,
			},
		},
		{
			name:     "given limit above max should cap it",
			query:    url.Values{"limit": {"1000"}, "offset": {"-3"}, "on_sale": {"false"}},
			expected: FindProducts{Limit: 100, Search: []string{}},
		},
		{
			name:     "given malformed limit should fall back to default",
			query:    url.Values{"limit": {"ten"}},
			expected: FindProducts{Limit: 10, Search: []string{}},
		},
		{
			name:     "given on_sale 1 should not filter on sale",
			query:    url.Values{"on_sale": {"1"}},
			expected: FindProducts{Limit: 10, Search: []string{}},
		},
		{
			name:     "given offset above int32 should cap it",
			query:    url.Values{"offset": {"4294967296"}},
			expected: FindProducts{Limit: 10, Offset: MaxOffset, Search: []string{}},
		},
		{
			name:     "given offset above int64 should cap it",
			query:    url.Values{"offset": {"99999999999999999999"}},
			expected: FindProducts{Limit: 10, Offset: MaxOffset, Search: []string{}},
		},
		{
			name:     "given offset below int64 should read as zero",
			query:    url.Values{"offset": {"-99999999999999999999"}},
			expected: FindProducts{Limit: 10, Search: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := ParseFindProducts(tt.query, 10, 100)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestParseFindProductsRejectsMalformedId(t *testing.T) {
	_, err := ParseFindProducts(url.Values{"id": {"1"}}, 10, 100)

	var fieldErrors validate.FieldErrors
	require.ErrorAs(t, err, &fieldErrors)
	assert.Equal(t, validate.FieldErrors{"id": {validate.MsgUUID}}, fieldErrors)
}

func TestUpdateProductFromForm(t *testing.T) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("name", "New Product"))
	require.NoError(t, writer.WriteField("sale_end", ""))
	require.NoError(t, writer.WriteField("cart_items", `[{"quantity": 3}]`))
	part, err := writer.CreateFormFile(FormFieldWarranty, "warranty.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("line one\nline two\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)

	req, files, err := UpdateProductFromForm(form, true)
	require.NoError(t, err)

	require.NotNil(t, req.Name)
	assert.Equal(t, "New Product", *req.Name)
	assert.Nil(t, req.Description)
	assert.Nil(t, req.Price)
	assert.False(t, req.SaleStart.Set)
	assert.True(t, req.SaleEnd.Set)
	assert.Nil(t, req.SaleEnd.Time)
	assert.Equal(t, []CartItem{{Quantity: 3}}, req.CartItems)
	assert.True(t, req.Partial)

	assert.Nil(t, files.Photo)
	require.NotNil(t, files.Warranty)
	assert.Equal(t, "warranty.txt", files.Warranty.Filename)
	assert.Equal(t, "line one\nline two\n", string(files.Warranty.Content))
}
