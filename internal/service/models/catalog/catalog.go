// Package catalog describes the single product's purchasable variants.
package catalog

import "github.com/noelbox/storefront/internal/service/models/currency"

// Variant is one purchasable configuration of the product.
type Variant struct {
	ID            string `mapstructure:"id"              json:"id"`
	Label         string `mapstructure:"label"           json:"label"`
	PriceCents    int64  `mapstructure:"price_cents"     json:"priceCents"`
	StripePriceID string `mapstructure:"stripe_price_id" json:"stripePriceId,omitempty"`
	Image         string `mapstructure:"image"           json:"image,omitempty"`
}

// Catalog is the static variant table.
type Catalog struct {
	Currency currency.Currency `mapstructure:"currency" json:"currency"`
	Variants []Variant         `mapstructure:"variants" json:"variants"`
}

// Lookup returns the variant with the given id.
func (c *Catalog) Lookup(id string) (Variant, bool) {
	for _, v := range c.Variants {
		if v.ID == id {
			return v, true
		}
	}

	return Variant{}, false
}

// Purchasable reports whether the variant is wired to a processor price.
func (v Variant) Purchasable() bool {
	return v.StripePriceID != ""
}
