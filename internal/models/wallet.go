package models

// Currency identifies one of the supported wallet types.
type Currency string

const (
	CurrencyBitcoin   Currency = "bitcoin"
	CurrencyLightning Currency = "lightning"
	CurrencyLitecoin  Currency = "litecoin"
)

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyBitcoin, CurrencyLightning, CurrencyLitecoin:
		return true
	}
	return false
}

// Wallet represents one on-chain or Lightning account as reported by the
// backend. Balance is denominated in the wallet's native unit: BTC for
// bitcoin, satoshis for lightning, LTC for litecoin. Wallets are never
// mutated locally to reflect an unconfirmed send; the store re-syncs from
// the backend instead.
type Wallet struct {
	ID       string   `json:"id"`
	Type     Currency `json:"type"`
	Address  string   `json:"address"`
	Balance  float64  `json:"balance"`
	IsActive bool     `json:"isActive"`
}
