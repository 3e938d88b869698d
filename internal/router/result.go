package router

import "github.com/shopspring/decimal"

// Result is the structured outcome every handler returns across the channel
// boundary. Optional fields are omitted from the wire form when empty; the
// correlating identifier is whichever of OrderID/ProductID applies.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	OrderID     string           `json:"order_id,omitempty"`
	Status      string           `json:"status,omitempty"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`

	ProductID   string `json:"product_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Quantity    *int   `json:"quantity,omitempty"`
	IsAvailable *bool  `json:"is_available,omitempty"`

	OldQuantity *int   `json:"old_quantity,omitempty"`
	NewQuantity *int   `json:"new_quantity,omitempty"`
	Change      *int   `json:"change,omitempty"`
	Reason      string `json:"reason,omitempty"`

	UnavailableItems []string `json:"unavailable_items,omitempty"`
}

// CorrelationID returns the identifier the surrounding layer keys results by.
func (r Result) CorrelationID() string {
	if r.OrderID != "" {
		return r.OrderID
	}
	return r.ProductID
}

func failure(err error) Result {
	return Result{Error: err.Error()}
}

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }
