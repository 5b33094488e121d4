package request

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
)

const (
	FormFieldPhoto    = "photo"
	FormFieldWarranty = "warranty"
)

func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// formCartItems reads cart_items sent as a JSON array inside a text part.
func formCartItems(form *multipart.Form) ([]CartItem, error) {
	raw, ok := formValue(form, "cart_items")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	items := []CartItem{}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed decoding cart_items with error=%w", err)
	}
	return items, nil
}

func formSaleTime(form *multipart.Form, key string) (SaleTime, error) {
	raw, ok := formValue(form, key)
	if !ok {
		return SaleTime{}, nil
	}
	return ParseSaleTime(raw)
}

func CreateProductFromForm(form *multipart.Form) (CreateProduct, Files, error) {
	req := CreateProduct{}
	req.Name, _ = formValue(form, "name")
	req.Description, _ = formValue(form, "description")
	price, _ := formValue(form, "price")
	req.Price = Price(strings.TrimSpace(price))

	var err error
	if req.SaleStart, err = formSaleTime(form, "sale_start"); err != nil {
		return CreateProduct{}, Files{}, err
	}
	if req.SaleEnd, err = formSaleTime(form, "sale_end"); err != nil {
		return CreateProduct{}, Files{}, err
	}
	if req.CartItems, err = formCartItems(form); err != nil {
		return CreateProduct{}, Files{}, err
	}

	files, err := FilesFromForm(form)
	if err != nil {
		return CreateProduct{}, Files{}, err
	}
	return req, files, nil
}

func UpdateProductFromForm(form *multipart.Form, partial bool) (UpdateProduct, Files, error) {
	req := UpdateProduct{Partial: partial}
	if name, ok := formValue(form, "name"); ok {
		req.Name = &name
	}
	if description, ok := formValue(form, "description"); ok {
		req.Description = &description
	}
	if raw, ok := formValue(form, "price"); ok {
		price := Price(strings.TrimSpace(raw))
		req.Price = &price
	}

	var err error
	if req.SaleStart, err = formSaleTime(form, "sale_start"); err != nil {
		return UpdateProduct{}, Files{}, err
	}
	if req.SaleEnd, err = formSaleTime(form, "sale_end"); err != nil {
		return UpdateProduct{}, Files{}, err
	}
	if req.CartItems, err = formCartItems(form); err != nil {
		return UpdateProduct{}, Files{}, err
	}

	files, err := FilesFromForm(form)
	if err != nil {
		return UpdateProduct{}, Files{}, err
	}
	return req, files, nil
}

func FilesFromForm(form *multipart.Form) (Files, error) {
	photo, err := formFile(form, FormFieldPhoto)
	if err != nil {
		return Files{}, err
	}
	warranty, err := formFile(form, FormFieldWarranty)
	if err != nil {
		return Files{}, err
	}
	return Files{Photo: photo, Warranty: warranty}, nil
}

func formFile(form *multipart.Form, key string) (*File, error) {
	headers, ok := form.File[key]
	if !ok || len(headers) == 0 {
		return nil, nil
	}
	header := headers[0]

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed opening %s with error=%w", key, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed reading %s with error=%w", key, err)
	}
	return &File{Filename: header.Filename, Content: content}, nil
}
