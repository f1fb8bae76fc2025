package model

import "math"

// Page is one page of a paginated user listing.
type Page struct {
	Items      []User
	Total      int64
	TotalPages int64
	Page       int
	PageSize   int
}

// Default and maximum page parameters.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// NormalizePaging applies defaults to non-positive values and caps the page size.
func NormalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Offset returns the number of records preceding the given page. An offset
// too large for an int saturates at math.MaxInt, which is past the end of
// any store.
func Offset(page, pageSize int) int {
	if page <= 1 || pageSize <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

// TotalPages is ceil(total / pageSize).
func TotalPages(total int64, pageSize int) int64 {
	if pageSize <= 0 {
		return 0
	}
	size := int64(pageSize)
	return (total + size - 1) / size
}
