// Package common defines cross-cutting identifier and pagination types shared
// between the application, infrastructure, and interface layers.
package common

import (
	"github.com/google/uuid"
)

// ID is a string alias for a UUID v4.
type ID string

// NewID generates a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// Valid reports whether the ID parses as a UUID.
func (id ID) Valid() bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}

// String returns the ID as a plain string.
func (id ID) String() string { return string(id) }

// Metadata is an open-ended key-value bag.
type Metadata map[string]interface{}

// Pagination defines parameters for paginated requests and responses.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total,omitempty"`
}

// Offset returns the row offset implied by Page/PageSize.
func (p Pagination) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.PageSize
	if size < 1 {
		size = 20
	}
	return (page - 1) * size
}

// Limit returns the row limit implied by PageSize, clamped to [1, 100].
func (p Pagination) Limit() int {
	size := p.PageSize
	if size < 1 {
		return 20
	}
	if size > 100 {
		return 100
	}
	return size
}

// SortOrder defines the direction of sorting.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)
