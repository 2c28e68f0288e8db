package common

import (
	"net/http"
	"strings"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// Page is the envelope returned by list endpoints.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ParsePagination extracts page and per-page parameters from query values.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	query := r.URL.Query()
	page = AtoiDefault(strings.TrimSpace(query.Get("page")), 1)
	if page < 1 {
		page = 1
	}
	perPage = AtoiDefault(strings.TrimSpace(query.Get("limit")), defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > 100 {
		perPage = 100
	}
	return
}

// Paginate slices items for the requested page.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = len(items)
	}
	start := (page - 1) * perPage
	if start > len(items) {
		start = len(items)
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	data := items[start:end]
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Data:       data,
		Pagination: Pagination{Page: page, PerPage: perPage, TotalItems: len(items)},
	}
}
