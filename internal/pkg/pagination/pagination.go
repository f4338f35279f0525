package pagination

import (
	"github.com/gofiber/fiber/v2"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is one requested page
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Offset is the number of rows before the page
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// FromQuery reads ?page= and ?limit=. Missing or bad values fall back to defaults.
func FromQuery(c *fiber.Ctx) Params {
	page, limit := Normalize(c.QueryInt("page", 1), c.QueryInt("limit", DefaultLimit))
	return Params{Page: page, Limit: limit}
}

// Normalize clamps page to at least 1 and limit to 1..MaxLimit, using
// DefaultLimit for a non-positive limit.
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return page, limit
}

// Pages is how many pages of limit rows hold total rows
func Pages(total int64, limit int) int {
	if limit < 1 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
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

// Response is a page of data with its metadata
type Response struct {
	Data interface{} `json:"data"`
	Meta Meta        `json:"meta"`
}

func NewResponse(data interface{}, page, limit int, total int64) *Response {
	pages := Pages(total, limit)
	return &Response{
		Data: data,
		Meta: Meta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: pages,
			HasNext:    page < pages,
			HasPrev:    page > 1,
		},
	}
}
