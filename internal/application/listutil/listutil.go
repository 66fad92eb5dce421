// Package listutil parses list query strings and shapes paged JSON results.
package listutil

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPerPage applies when per_page is absent or unparseable.
	DefaultPerPage = 20
	// MaxPerPage caps per_page so one request cannot page the whole table.
	MaxPerPage = 100
)

// PageParams is the requested window into a list.
type PageParams struct {
	Page    int // 1-indexed
	PerPage int
}

// FilterParams holds the free-text query (q) and exact-match filters.
type FilterParams struct {
	Search  string
	Filters map[string]string
}

// ListParams is everything a list endpoint reads from its query string.
type ListParams struct {
	PageParams
	FilterParams
}

// PageInfo describes where a page sits in the full result set.
type PageInfo struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// Page is one page of items with its position.
type Page[T any] struct {
	Items []T
	PageInfo
}

// NewPage wraps items with info. A nil slice becomes empty so it encodes as [].
func NewPage[T any](items []T, info PageInfo) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, PageInfo: info}
}

// ParseListParams reads page, per_page, q and the named filters from q.
// Keys outside filterKeys are ignored, as are blank values.
func ParseListParams(q url.Values, filterKeys []string) ListParams {
	lp := ListParams{
		PageParams: PageParams{
			Page:    atoiOr(q.Get("page"), 1),
			PerPage: atoiOr(q.Get("per_page"), DefaultPerPage),
		},
		FilterParams: FilterParams{
			Search:  strings.TrimSpace(q.Get("q")),
			Filters: make(map[string]string, len(filterKeys)),
		},
	}
	if lp.Page < 1 {
		lp.Page = 1
	}
	lp.PerPage = clampPerPage(lp.PerPage)
	for _, key := range filterKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			lp.Filters[key] = v
		}
	}
	return lp
}

// NewPageInfo computes the page count for total rows and pulls page back
// into [1, TotalPages]. An empty result still has one page.
func NewPageInfo(page, perPage, total int) PageInfo {
	perPage = clampPerPage(perPage)
	pages := max(1, (total+perPage-1)/perPage)
	return PageInfo{
		Page:       min(max(page, 1), pages),
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
	}
}

// Offset is the number of rows before this page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

func clampPerPage(n int) int {
	switch {
	case n < 1:
		return DefaultPerPage
	case n > MaxPerPage:
		return MaxPerPage
	}
	return n
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
