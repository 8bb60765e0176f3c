package models

// Rate holds the USD quote for one currency symbol.
type Rate struct {
	USD float64 `json:"usd"`
}

// ExchangeRateTable maps a rate provider symbol ("bitcoin", "litecoin") to
// its current quote. Staleness is tolerated; a conversion that needs an
// absent entry fails explicitly rather than using zero.
type ExchangeRateTable map[string]Rate
