package order

import (
	"strconv"
	"strings"
)

// CSVHeader is the fixed column order of the admin export.
var CSVHeader = []string{
	"date",
	"email",
	"variantLabel",
	"qty",
	"upsell",
	"amount_total",
	"currency",
	"payment_status",
	"processed",
}

// CSVRow projects an order onto CSVHeader.
func (o *Order) CSVRow() []string {
	return []string{
		o.Date,
		o.EmailOrEmpty(),
		o.Meta(MetaVariantLabel),
		o.Meta(MetaQty),
		o.Meta(MetaUpsell),
		strconv.FormatInt(o.AmountTotal, 10),
		o.Currency,
		o.PaymentStatus,
		strconv.FormatBool(o.Processed),
	}
}

// RenderCSV renders the header line followed by one fully quoted row per order.
// Embedded quotes are doubled. Lines are separated by "\n" without a trailing newline.
func RenderCSV(items []StoredOrder) string {
	var b strings.Builder
	b.WriteString(strings.Join(CSVHeader, ","))

	for i := range items {
		b.WriteByte('\n')
		for j, field := range items[i].Order.CSVRow() {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(field, `"`, `""`))
			b.WriteByte('"')
		}
	}

	return b.String()
}
