package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// MaxPageLimit caps caller-supplied page sizes.
const MaxPageLimit = 100

// Pagination holds pagination parameters.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"-"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// GetPagination reads page and limit from the query string, falling back to
// the defaults on bad input and capping limit at MaxPageLimit.
func GetPagination(c *fiber.Ctx, defaultPage, defaultLimit int) Pagination {
	return NewPagination(
		queryInt(c, "page", defaultPage),
		queryInt(c, "limit", defaultLimit),
		defaultPage, defaultLimit,
	)
}

// NewPagination normalizes page and limit.
func NewPagination(page, limit, defaultPage, defaultLimit int) Pagination {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return n
}

func (p *Pagination) SetTotal(total int64) {
	p.Total = total
	p.TotalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
}
