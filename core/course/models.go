package course

import (
	"github.com/shopspring/decimal"

	"github.com/aprende/academia/core"
)

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// Course is the catalog entry a student enrolls in. Managed by the course administration.
type Course struct {
	ID     int             `json:"id"`
	Title  string          `json:"title"`
	Price  decimal.Decimal `json:"price"`
	Status string          `json:"status"`
}

// IsFree reports whether enrolling in the course costs nothing.
func (c Course) IsFree() bool {
	return !c.Price.IsPositive()
}

var (
	// errors
	ErrNotFound = core.NewNotFoundError("course not found")
)
