// Package plan defines the capacity plan catalog keyed by payment price reference.
package plan

// Plan is read-only reference data describing a purchasable capacity tier.
type Plan struct {
	Code         string  `json:"code" yaml:"code"`
	Name         string  `json:"name" yaml:"name"`
	PriceRef     string  `json:"price_ref" yaml:"price_ref"`
	HoursMonthly float64 `json:"hours_monthly" yaml:"hours_monthly"`
}

// Catalog resolves payment-provider price references to plans.
type Catalog struct {
	byPrice map[string]Plan
	byCode  map[string]Plan
}

// NewCatalog builds a catalog from a plan list. Later entries win on
// duplicate price refs, matching config override semantics.
func NewCatalog(plans []Plan) *Catalog {
	c := &Catalog{
		byPrice: make(map[string]Plan, len(plans)),
		byCode:  make(map[string]Plan, len(plans)),
	}
	for _, p := range plans {
		c.byPrice[p.PriceRef] = p
		c.byCode[p.Code] = p
	}
	return c
}

// ByPriceRef looks up the plan for a payment price reference.
func (c *Catalog) ByPriceRef(ref string) (Plan, bool) {
	p, ok := c.byPrice[ref]
	return p, ok
}

// ByCode looks up a plan by its code.
func (c *Catalog) ByCode(code string) (Plan, bool) {
	p, ok := c.byCode[code]
	return p, ok
}

// Defaults returns the built-in plan tiers used when no catalog is
// configured.
func Defaults() []Plan {
	return []Plan{
		{Code: "starter", Name: "Starter", PriceRef: "price_starter", HoursMonthly: 40},
		{Code: "growth", Name: "Growth", PriceRef: "price_growth", HoursMonthly: 80},
		{Code: "scale", Name: "Scale", PriceRef: "price_scale", HoursMonthly: 120},
		{Code: "dedicated", Name: "Dedicated", PriceRef: "price_dedicated", HoursMonthly: 160},
	}
}
