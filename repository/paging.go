package repository

// MaxPageSize caps page_size for every paged surface.
const MaxPageSize = 50

// PageRequest carries pagination and sorting intent. Callers may pass
// anything; Normalize clamps it to something safe before the query
// runs.
type PageRequest struct {
	Number   int    `json:"page_number" form:"page"`
	Size     int    `json:"page_size" form:"page_size"`
	SortBy   string `json:"sort_by" form:"sort_by"`
	SortDesc bool   `json:"sort_desc" form:"sort_desc"`
}

// Normalize clamps page number to >= 1 and page size into
// [1, MaxPageSize], substituting defaultSize when size is out of range
// on the low side. Unrecognized sort fields fall back to defaultSort
// with defaultDesc direction. sortFields maps lowercased request
// values to the column expression used by the repository.
func (r PageRequest) Normalize(defaultSize int, sortFields map[string]string, defaultSort string, defaultDesc bool) PageRequest {
	if r.Number < 1 {
		r.Number = 1
	}
	if r.Size < 1 {
		r.Size = defaultSize
	} else if r.Size > MaxPageSize {
		r.Size = MaxPageSize
	}
	if _, ok := sortFields[normalizeSortKey(r.SortBy)]; !ok {
		r.SortBy = defaultSort
		r.SortDesc = defaultDesc
	}
	return r
}

// Offset is the row offset of the (normalized) request.
func (r PageRequest) Offset() int {
	return (r.Number - 1) * r.Size
}

func normalizeSortKey(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// PagedResult is the response envelope for every paged query: one page
// of items plus the metadata clients need to compute page links.
// TotalCount is always the filtered-but-unpaginated count.
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	PageNumber int   `json:"page_number"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
}

// TotalPages derives the page count from TotalCount and PageSize.
func (p *PagedResult[T]) TotalPages() int64 {
	if p.PageSize == 0 {
		return 0
	}
	return (p.TotalCount + int64(p.PageSize) - 1) / int64(p.PageSize)
}

// HasMore reports whether pages exist beyond this one.
func (p *PagedResult[T]) HasMore() bool {
	return p.TotalCount > int64(p.PageNumber*p.PageSize)
}
