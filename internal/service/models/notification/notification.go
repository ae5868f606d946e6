// Package notification holds the order confirmation message model.
package notification

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/noelbox/storefront/internal/service/models/currency"
	"github.com/noelbox/storefront/internal/service/models/order"
)

// FreeShippingMinQty is the quantity from which shipping is offered.
const FreeShippingMinQty = 2

// OrderConfirmation is the payload handed to the notification sender.
// It travels over AMQP as JSON when the rabbitmq transport is enabled.
type OrderConfirmation struct {
	To           string `json:"to"`
	OrderID      string `json:"orderId"`
	AmountTotal  int64  `json:"amountTotal"`
	Currency     string `json:"currency"`
	VariantLabel string `json:"variantLabel,omitempty"`
	Qty          string `json:"qty,omitempty"`
}

// FromOrder builds a confirmation for a persisted order.
func FromOrder(o *order.Order) OrderConfirmation {
	return OrderConfirmation{
		To:           o.EmailOrEmpty(),
		OrderID:      o.ID,
		AmountTotal:  o.AmountTotal,
		Currency:     o.Currency,
		VariantLabel: o.Meta(order.MetaVariantLabel),
		Qty:          o.Meta(order.MetaQty),
	}
}

// FreeShipping reports whether the ordered quantity qualifies for free shipping.
func (c OrderConfirmation) FreeShipping() bool {
	qty, err := strconv.Atoi(c.Qty)
	if err != nil {
		return false
	}

	return qty >= FreeShippingMinQty
}

// Subject returns the email subject line.
func (c OrderConfirmation) Subject() string {
	return "Confirmation de commande #" + c.OrderID
}

// Lines returns the message body, one entry per line.
func (c OrderConfirmation) Lines() []string {
	cur, err := currency.ParseCurrency(c.Currency)
	if err != nil {
		cur = currency.Default
	}

	lines := []string{
		"Merci pour votre commande !",
		"Montant: " + cur.FormatMinor(c.AmountTotal),
	}
	if c.VariantLabel != "" {
		lines = append(lines, "Coffret: "+c.VariantLabel)
	}
	if c.Qty != "" {
		lines = append(lines, "Quantité: "+c.Qty)
	}
	if c.FreeShipping() {
		lines = append(lines, "Livraison offerte")
	}

	return append(lines, "Référence: "+c.OrderID)
}

// Text renders the plain-text body.
func (c OrderConfirmation) Text() string {
	return strings.Join(c.Lines(), "\n")
}

// HTML renders the HTML alternative body.
func (c OrderConfirmation) HTML() string {
	lines := c.Lines()
	escaped := make([]string, 0, len(lines))
	for _, l := range lines {
		escaped = append(escaped, html.EscapeString(l))
	}

	return fmt.Sprintf("<p>%s</p>", strings.Join(escaped, "<br/>"))
}
