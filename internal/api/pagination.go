package api

import (
	"net/http"
	"strconv"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PaginationParams is the page window requested by ?page=&limit=.
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginatedResponse is the envelope of every list endpoint.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

type PaginationMeta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// ParsePagination never fails: junk or missing values become page 1 and
// the default limit, and the limit is clamped to maxPageLimit.
func ParsePagination(r *http.Request) PaginationParams {
	q := r.URL.Query()
	page := queryInt(q.Get("page"), 1)
	limit := min(queryInt(q.Get("limit"), defaultPageLimit), maxPageLimit)
	return PaginationParams{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// queryInt parses a positive integer, returning def otherwise.
func queryInt(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func NewPaginatedResponse(data interface{}, p PaginationParams, total int) PaginatedResponse {
	pages := max((total+p.Limit-1)/p.Limit, 1)
	return PaginatedResponse{
		Data: data,
		Pagination: PaginationMeta{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: pages,
			HasMore:    p.Offset+p.Limit < total,
		},
	}
}
