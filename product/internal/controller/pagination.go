package controller

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Alturino/catalog/product/pkg/request"
	"github.com/Alturino/catalog/product/pkg/response"
)

// baseURL is the scheme and host the client used to reach us.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

func pageURL(r *http.Request, limit int, offset int) *string {
	query := r.URL.Query()
	query.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	} else {
		query.Del("offset")
	}
	u := url.URL{Path: r.URL.Path, RawQuery: query.Encode()}
	link := baseURL(r) + u.String()
	return &link
}

// pageLinks returns the next and previous limit/offset pages, nil when the
// page is the last or the first one.
func pageLinks(r *http.Request, count int64, limit int, offset int) (next *string, previous *string) {
	nextOffset := int64(offset) + int64(limit)
	if nextOffset < count && nextOffset <= request.MaxOffset {
		next = pageURL(r, limit, int(nextOffset))
	}
	if offset > 0 {
		previous = pageURL(r, limit, max(offset-limit, 0))
	}
	return next, previous
}

func absolutePhoto(r *http.Request, product *response.Product) {
	if product.Photo == nil || !strings.HasPrefix(*product.Photo, "/") {
		return
	}
	photo := baseURL(r) + *product.Photo
	product.Photo = &photo
}
