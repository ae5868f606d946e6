package order

import "time"

// DateLayout is the layout of Order.Date. Lexical order matches chronological order.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// Address is a postal address snapshot taken from the checkout session.
type Address struct {
	City       *string `json:"city,omitempty"`
	Country    *string `json:"country,omitempty"`
	Line1      *string `json:"line1,omitempty"`
	Line2      *string `json:"line2,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	State      *string `json:"state,omitempty"`
}

// CustomerDetails is the buyer contact snapshot.
type CustomerDetails struct {
	Email   *string  `json:"email,omitempty"`
	Name    *string  `json:"name,omitempty"`
	Phone   *string  `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// ShippingDetails is the delivery snapshot.
type ShippingDetails struct {
	Name    *string  `json:"name,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// Order represents a completed checkout persisted by the order store.
type Order struct {
	ID              string            `json:"id"`
	Date            string            `json:"date"`
	Email           *string           `json:"email"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	Metadata        map[string]string `json:"metadata"`
	PaymentStatus   string            `json:"payment_status"`
	Processed       bool              `json:"processed"`
	CustomerDetails *CustomerDetails  `json:"customer_details,omitempty"`
	ShippingDetails *ShippingDetails  `json:"shipping_details,omitempty"`
}

// Metadata keys written at checkout and read back from completed sessions.
const (
	MetaVariantID    = "variantId"
	MetaVariantLabel = "variantLabel"
	MetaQty          = "qty"
	MetaUpsell       = "upsell"
)

// FormatDate renders t the way Order.Date stores it.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ReceivedAt parses Order.Date. The zero time is returned for unparsable dates.
func (o *Order) ReceivedAt() time.Time {
	t, err := time.Parse(time.RFC3339Nano, o.Date)
	if err != nil {
		return time.Time{}
	}

	return t
}

// EmailOrEmpty returns the buyer email or "".
func (o *Order) EmailOrEmpty() string {
	if o.Email == nil {
		return ""
	}

	return *o.Email
}

// Meta returns a metadata value or "".
func (o *Order) Meta(key string) string {
	if o.Metadata == nil {
		return ""
	}

	return o.Metadata[key]
}

// StoredOrder pairs an order with the opaque handle the store uses to address it.
type StoredOrder struct {
	Handle string `json:"handle"`
	Order  Order  `json:"order"`
}
