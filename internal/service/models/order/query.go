package order

import "fmt"

// Status filters listed orders by their processed flag.
type Status string

const (
	StatusAll       Status = "all"
	StatusProcessed Status = "processed"
	StatusPending   Status = "pending"
)

// ParseStatus parses a status filter. Empty input means StatusAll.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusProcessed:
		return StatusProcessed, nil
	case StatusPending:
		return StatusPending, nil
	default:
		return "", fmt.Errorf("unknown status filter %q", s)
	}
}

// Matches reports whether o passes the filter.
func (s Status) Matches(o *Order) bool {
	switch s {
	case StatusProcessed:
		return o.Processed
	case StatusPending:
		return !o.Processed
	default:
		return true
	}
}

// QueryOrdersModel represents filter parameters for listing orders.
type QueryOrdersModel struct {
	Status Status `json:"status,omitempty"`
}
