package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"":          StatusAll,
		"all":       StatusAll,
		"processed": StatusProcessed,
		"pending":   StatusPending,
	} {
		got, err := ParseStatus(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseStatus("done")
	assert.Error(t, err)
}

func TestFormatDateRoundTrip(t *testing.T) {
	at := time.Date(2025, 12, 24, 18, 30, 15, 123_000_000, time.FixedZone("CET", 3600))
	o := Order{Date: FormatDate(at)}

	assert.Equal(t, "2025-12-24T17:30:15.123Z", o.Date)
	assert.True(t, at.Equal(o.ReceivedAt()))
}

func TestRenderCSV(t *testing.T) {
	email := `a"b@example.com`
	items := []StoredOrder{
		{Handle: "2.json", Order: Order{
			Date: "2025-12-02T00:00:00.000Z", Email: &email, AmountTotal: 3980, Currency: "eur",
			Metadata:      map[string]string{MetaVariantLabel: "Sapin", MetaQty: "2", MetaUpsell: "true"},
			PaymentStatus: "paid", Processed: true,
		}},
		{Handle: "1.json", Order: Order{Date: "2025-12-01T00:00:00.000Z", Currency: "eur", PaymentStatus: "paid"}},
	}

	want := "date,email,variantLabel,qty,upsell,amount_total,currency,payment_status,processed\n" +
		`"2025-12-02T00:00:00.000Z","a""b@example.com","Sapin","2","true","3980","eur","paid","true"` + "\n" +
		`"2025-12-01T00:00:00.000Z","","","","","0","eur","paid","false"`

	assert.Equal(t, want, RenderCSV(items))
}

func TestRenderCSV_HeaderOnlyWhenEmpty(t *testing.T) {
	assert.Equal(t, "date,email,variantLabel,qty,upsell,amount_total,currency,payment_status,processed", RenderCSV(nil))
}
