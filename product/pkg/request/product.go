package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Alturino/catalog/internal/validate"
)

// Price keeps the raw text of a JSON number or string so validation can tell
// a malformed value apart from an out of range one.
type Price string

func (p *Price) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Price(strings.TrimSpace(s))
		return nil
	}
	*p = Price(b)
	return nil
}

func (p Price) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(string(p))
}

var saleTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"03:04 PM 02 January 2006",
	"2006-01-02",
}

// SaleTime is an optional timestamp that remembers whether the client sent
// it, so an explicit null can clear a stored value.
type SaleTime struct {
	Time *time.Time
	Set  bool
}

func NewSaleTime(t time.Time) SaleTime {
	return SaleTime{Time: &t, Set: true}
}

func ParseSaleTime(s string) (SaleTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SaleTime{Set: true}, nil
	}
	for _, layout := range saleTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewSaleTime(t.UTC()), nil
		}
	}
	return SaleTime{}, fmt.Errorf(
		"invalid datetime=%s, use one of the formats YYYY-MM-DDThh:mm:ssZ or hh:mm AM DD Month YYYY",
		s,
	)
}

func (s *SaleTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = SaleTime{Set: true}
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("failed decoding datetime with error=%w", err)
	}
	parsed, err := ParseSaleTime(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s SaleTime) MarshalJSON() ([]byte, error) {
	if s.Time == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.Time.UTC())
}

type CartItem struct {
	Quantity int `json:"quantity" validate:"min=1,max=100"`
}

type CreateProduct struct {
	Name        string     `json:"name"        validate:"required,max=200"`
	Description string     `json:"description" validate:"required,min=2,max=100"`
	Price       Price      `json:"price"       validate:"required,numeric,positive,max_price,decimal_places"`
	SaleStart   SaleTime   `json:"sale_start"`
	SaleEnd     SaleTime   `json:"sale_end"`
	CartItems   []CartItem `json:"cart_items"  validate:"dive"`
}

func (r CreateProduct) Validate(c context.Context) error {
	return validate.Struct(c, r)
}

// UpdateProduct carries a full (PUT) or partial (PATCH) update. Nil fields are
// left unchanged on a partial update and are required on a full one.
type UpdateProduct struct {
	Name        *string    `json:"name"        validate:"omitnil,max=200"`
	Description *string    `json:"description" validate:"omitnil,min=2,max=100"`
	Price       *Price     `json:"price"       validate:"omitnil,numeric,positive,max_price,decimal_places"`
	SaleStart   SaleTime   `json:"sale_start"`
	SaleEnd     SaleTime   `json:"sale_end"`
	CartItems   []CartItem `json:"cart_items"  validate:"dive"`
	Partial     bool       `json:"-"`
}

func (r UpdateProduct) Validate(c context.Context) error {
	fieldErrors := validate.FieldErrors{}
	if !r.Partial {
		if r.Name == nil {
			fieldErrors.Add("name", validate.MsgRequired)
		}
		if r.Description == nil {
			fieldErrors.Add("description", validate.MsgRequired)
		}
		if r.Price == nil {
			fieldErrors.Add("price", validate.MsgRequired)
		}
	}

	err := validate.Struct(c, r)
	if err != nil {
		structErrors, ok := err.(validate.FieldErrors)
		if !ok {
			return err
		}
		fieldErrors.Merge(structErrors)
	}

	if len(fieldErrors) > 0 {
		return fieldErrors
	}
	return nil
}

// File is an uploaded multipart file read into memory.
type File struct {
	Filename string
	Content  []byte
}

type Files struct {
	Photo    *File
	Warranty *File
}
