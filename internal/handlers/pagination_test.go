package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func queryContext(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return c
}

func TestPageParams(t *testing.T) {
	cases := []struct {
		name        string
		query       string
		wantPage    int
		wantPerPage int
	}{
		{"defaults", "", 1, defaultPerPage},
		{"explicit", "page=3&perPage=50", 3, 50},
		{"zero page clamps to one", "page=0", 1, defaultPerPage},
		{"negative perPage uses default", "perPage=-5", 1, defaultPerPage},
		{"oversized perPage clamps", "perPage=5000", 1, maxPerPage},
		{"garbage falls back", "page=abc&perPage=xyz", 1, defaultPerPage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, perPage := pageParams(queryContext(tc.query))
			if page != tc.wantPage || perPage != tc.wantPerPage {
				t.Errorf("pageParams(%q) = %d,%d, want %d,%d",
					tc.query, page, perPage, tc.wantPage, tc.wantPerPage)
			}
		})
	}
}

func TestNewListPage(t *testing.T) {
	t.Run("rounds total pages up", func(t *testing.T) {
		p := newListPage(queryContext("page=2&perPage=20"), nil, 41)
		if p.TotalPages != 3 {
			t.Errorf("TotalPages = %d, want 3", p.TotalPages)
		}
		if p.Page != 2 || p.PerPage != 20 || p.TotalRows != 41 {
			t.Errorf("page metadata = %+v", p)
		}
	})

	t.Run("empty result has zero pages", func(t *testing.T) {
		p := newListPage(queryContext(""), nil, 0)
		if p.TotalPages != 0 {
			t.Errorf("TotalPages = %d, want 0", p.TotalPages)
		}
	})
}
