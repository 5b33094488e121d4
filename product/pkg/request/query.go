package request

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/Alturino/catalog/internal/validate"
)

type FindProducts struct {
	ID     *uuid.UUID
	OnSale bool
	Search []string
	Limit  int
	Offset int
}

// MaxOffset is the largest offset the repositories accept.
const MaxOffset = math.MaxInt32

// ParseFindProducts reads the list filters from a query string. A missing or
// malformed limit falls back to defaultLimit and a limit above maxLimit is
// capped. A malformed or negative offset reads as 0, one above MaxOffset is
// capped.
func ParseFindProducts(query url.Values, defaultLimit int, maxLimit int) (FindProducts, error) {
	req := FindProducts{Limit: defaultLimit}

	if raw := strings.TrimSpace(query.Get("id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return FindProducts{}, validate.NewFieldError("id", validate.MsgUUID)
		}
		req.ID = &id
	}

	onSale := strings.TrimSpace(query.Get("on_sale"))
	req.OnSale = strings.EqualFold(onSale, "true")

	req.Search = SearchTerms(query.Get("search"))

	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		req.Limit = limit
	}
	if maxLimit > 0 && req.Limit > maxLimit {
		req.Limit = maxLimit
	}
	req.Limit = min(req.Limit, math.MaxInt32)
	req.Offset = parseOffset(strings.TrimSpace(query.Get("offset")))

	return req, nil
}

func parseOffset(raw string) int {
	offset, err := strconv.ParseInt(raw, 10, 64)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
		return MaxOffset
	}
	if err != nil || offset <= 0 {
		return 0
	}
	return int(min(offset, MaxOffset))
}

// SearchTerms splits a search parameter on whitespace and commas.
func SearchTerms(search string) []string {
	return strings.FieldsFunc(search, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}
