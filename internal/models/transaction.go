package models

import "time"

// Transaction is an immutable record of a historical transfer. The address
// field holds the counterparty. Transactions are append-only from the
// client's perspective and displayed newest first.
type Transaction struct {
	ID         string    `json:"id"`
	WalletType Currency  `json:"walletType"`
	Amount     float64   `json:"amount"`
	Address    string    `json:"address"`
	Timestamp  time.Time `json:"timestamp"`
}
