package pagination

import (
	"strconv"

	"foodlink/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Page size bounds for list endpoints
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is the requested window into a listing
type Params struct {
	Page  int
	Limit int
}

// Offset is the number of rows skipped before this page
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// FromQuery reads ?page= and ?limit=; missing or out-of-range values fall
// back to page 1 and DefaultLimit, and limit is capped at MaxLimit
func FromQuery(c *fiber.Ctx) Params {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{Page: page, Limit: limit}
}

// Meta describes where a page sits in the full listing
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Page is the data payload of every list endpoint
type Page[R any] struct {
	Data []R  `json:"data"`
	Meta Meta `json:"meta"`
}

// NewPage renders rows with render and attaches the page metadata
func NewPage[M any, R any](p Params, rows []M, total int64, render func(M) R) Page[R] {
	data := make([]R, len(rows))
	for i, row := range rows {
		data[i] = render(row)
	}

	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Page[R]{
		Data: data,
		Meta: Meta{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    p.Page < totalPages,
			HasPrev:    p.Page > 1,
		},
	}
}

// Send writes one rendered page inside the success envelope
func Send[M any, R any](c *fiber.Ctx, message string, p Params, rows []M, total int64, render func(M) R) error {
	return response.Success(c, message, NewPage(p, rows, total, render))
}
