package domain

import "strings"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	// MaxPage keeps (page-1)*limit well inside int range.
	MaxPage          = 10_000_000
)

// PageRequest is a 1-based page window.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest clamps page to 1..MaxPage and limit to 1..MaxPageLimit. A zero or
// negative limit means DefaultPageLimit.
func NewPageRequest(page, limit int) PageRequest {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

// Offset is the number of rows skipped before this page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// SortField is one column of a multi-field ordering.
type SortField struct {
	Field string
	Desc  bool
}

// ParseSort pairs a comma-separated sortBy list with a comma-separated order
// list. Fields not in allowed are dropped; missing orders fall back to the last
// one given, then to desc. An empty result yields fallback.
func ParseSort(sortBy, order string, allowed map[string]string, fallback SortField) []SortField {
	fields := splitCSV(sortBy)
	orders := splitCSV(order)

	out := make([]SortField, 0, len(fields))
	for i, f := range fields {
		column, ok := allowed[f]
		if !ok {
			continue
		}
		dir := "desc"
		switch {
		case i < len(orders):
			dir = orders[i]
		case len(orders) > 0:
			dir = orders[len(orders)-1]
		}
		out = append(out, SortField{Field: column, Desc: !strings.EqualFold(dir, "asc")})
	}
	if len(out) == 0 {
		return []SortField{fallback}
	}
	return out
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Pagination is the metadata block returned with every listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPagination derives page metadata from a request and a total count.
func NewPagination(p PageRequest, total int64) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    int64(p.Page*p.Limit) < total,
		HasPrev:    p.Page > 1,
	}
}

// Page is a generic listing result.
type Page[T any] struct {
	Items      []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
