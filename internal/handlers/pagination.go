package handlers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListPage is the envelope returned by paginated archive endpoints.
type ListPage struct {
	Data       interface{} `json:"data"`
	TotalRows  int64       `json:"totalRows"`
	TotalPages int         `json:"totalPages"`
	Page       int         `json:"page"`
	PerPage    int         `json:"perPage"`
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// pageParams reads the page and perPage query parameters, clamping both so
// a client can neither request page zero nor drain a whole table at once.
func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page <= 0 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.Query("perPage"))
	switch {
	case perPage <= 0:
		perPage = defaultPerPage
	case perPage > maxPerPage:
		perPage = maxPerPage
	}
	return page, perPage
}

// paged is a GORM scope applying the offset and limit of the requested
// page.
func paged(c *gin.Context) func(db *gorm.DB) *gorm.DB {
	page, perPage := pageParams(c)
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * perPage).Limit(perPage)
	}
}

// newListPage wraps one page of results with its paging metadata.
func newListPage(c *gin.Context, data interface{}, totalRows int64) ListPage {
	page, perPage := pageParams(c)
	totalPages := 0
	if totalRows > 0 {
		totalPages = int(math.Ceil(float64(totalRows) / float64(perPage)))
	}
	return ListPage{
		Data:       data,
		TotalRows:  totalRows,
		TotalPages: totalPages,
		Page:       page,
		PerPage:    perPage,
	}
}
