package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/BumpBTC/bumpcore/internal/address"
	"github.com/BumpBTC/bumpcore/internal/api"
	"github.com/BumpBTC/bumpcore/internal/currency"
	"github.com/BumpBTC/bumpcore/internal/metrics"
	"github.com/BumpBTC/bumpcore/internal/models"
)

// Gateway is the slice of the backend client the store needs.
type Gateway interface {
	GetWalletInfo(ctx context.Context) (*api.WalletInfo, error)
	Send(ctx context.Context, currency models.Currency, toAddress string, amount float64) (*api.SendResult, error)
	SetActiveWallet(ctx context.Context, currency models.Currency, walletID string) error
}

// ValidationError reports malformed local input. It is caught before any
// network call and never lands in the store's error state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// State is a point-in-time snapshot of everything the screens render.
type State struct {
	Wallets        []models.Wallet
	Transactions   []models.Transaction
	ExchangeRates  models.ExchangeRateTable
	RatesFetchedAt time.Time
	IsLoading      bool
	ErrorKind      api.ErrorKind
	ErrorMessage   string
	SelectedUnit   currency.Unit
}

// Store is the single source of truth for wallets, transactions, balances,
// and exchange rates. Mutations go through its methods only; screens read
// via Snapshot. Refreshes replace wallets and transactions wholesale, and a
// sequence number implements last-response-wins: a response that arrives
// after a newer refresh was issued is discarded rather than clobbering
// newer data. Balances are never decremented optimistically; a successful
// send re-syncs from the backend instead.
type Store struct {
	gateway   Gateway
	validator *address.Validator
	log       zerolog.Logger

	mu             sync.Mutex
	wallets        []models.Wallet
	transactions   []models.Transaction
	rates          models.ExchangeRateTable
	ratesFetchedAt time.Time
	selectedUnit   currency.Unit
	errorKind      api.ErrorKind
	errorMessage   string

	refreshSeq uint64 // latest issued refresh
	inFlight   int
}

// New creates a store over the given gateway and validator.
func New(gateway Gateway, validator *address.Validator, log zerolog.Logger) *Store {
	return &Store{
		gateway:      gateway,
		validator:    validator,
		selectedUnit: currency.UnitUSD,
		log:          log.With().Str("component", "wallet_store").Logger(),
	}
}

// Snapshot returns a copy of the current state. The copy is deep enough
// that callers cannot mutate the store through it.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Wallets:        make([]models.Wallet, len(s.wallets)),
		Transactions:   make([]models.Transaction, len(s.transactions)),
		RatesFetchedAt: s.ratesFetchedAt,
		IsLoading:      s.inFlight > 0,
		ErrorKind:      s.errorKind,
		ErrorMessage:   s.errorMessage,
		SelectedUnit:   s.selectedUnit,
	}
	copy(state.Wallets, s.wallets)
	copy(state.Transactions, s.transactions)
	if s.rates != nil {
		state.ExchangeRates = make(models.ExchangeRateTable, len(s.rates))
		for k, v := range s.rates {
			state.ExchangeRates[k] = v
		}
	}
	return state
}

// Refresh fetches wallets and transactions and replaces the held slices
// wholesale. On failure the prior data stays intact and the error lands in
// the store's error state; stale-but-available beats a blank screen.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.refreshSeq++
	seq := s.refreshSeq
	s.inFlight++
	s.mu.Unlock()

	info, err := s.gateway.GetWalletInfo(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--

	if seq < s.refreshSeq {
		// A newer refresh was issued while this one was in flight; its
		// response is authoritative regardless of arrival order.
		metrics.RecordStoreRefresh("discarded")
		s.log.Debug().Uint64("seq", seq).Msg("Discarding stale refresh response")
		return nil
	}

	if err != nil {
		metrics.RecordStoreRefresh("failed")
		s.errorKind, s.errorMessage = classify(err)
		s.log.Warn().Err(err).Msg("Refresh failed, keeping prior state")
		return err
	}

	wallets := make([]models.Wallet, len(info.Wallets))
	copy(wallets, info.Wallets)
	transactions := make([]models.Transaction, len(info.Transactions))
	copy(transactions, info.Transactions)
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].Timestamp.After(transactions[j].Timestamp)
	})

	s.wallets = wallets
	s.transactions = transactions
	s.errorKind = ""
	s.errorMessage = ""

	metrics.RecordStoreRefresh("success")
	s.log.Debug().Int("wallets", len(wallets)).Int("transactions", len(transactions)).Msg("State refreshed")
	return nil
}

// SetRates installs a fresh exchange rate table. Rate staleness degrades
// gracefully, so this never touches the user-visible error state.
func (s *Store) SetRates(table models.ExchangeRateTable) {
	s.mu.Lock()
	s.rates = table
	s.ratesFetchedAt = time.Now()
	s.mu.Unlock()
	metrics.SetRateTableAge(0)
}

// Send validates the destination and amount locally, submits the transfer,
// and on success re-syncs state from the backend. A failed send leaves
// wallets and transactions untouched and returns the error directly; only
// operations that refresh shared state write to the store's error field.
func (s *Store) Send(ctx context.Context, cur models.Currency, toAddress string, amount decimal.Decimal) (string, error) {
	if !cur.Valid() {
		return "", &ValidationError{Field: "currency", Reason: fmt.Sprintf("unsupported currency %q", cur)}
	}
	if !amount.IsPositive() {
		return "", &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if !s.validator.Valid(toAddress, cur) {
		return "", &ValidationError{Field: "toAddress", Reason: fmt.Sprintf("not a valid %s address", cur)}
	}

	// The in-flight counter covers the gateway call so IsLoading is true
	// for the whole round trip. The UI disables the send button on it,
	// which is what stops a second tap from double-submitting.
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()

	amt, _ := amount.Float64()
	result, err := s.gateway.Send(ctx, cur, toAddress, amt)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	if err != nil {
		metrics.RecordSend(string(cur), "failed")
		s.log.Warn().Err(err).Str("currency", string(cur)).Msg("Send failed")
		return "", err
	}

	metrics.RecordSend(string(cur), "success")
	s.log.Info().Str("currency", string(cur)).Str("txid", result.TxID).Msg("Send accepted")

	// Reconcile balances from the backend; there is no optimistic local
	// decrement to undo if this fails.
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Post-send refresh failed")
	}

	return result.TxID, nil
}

// SetActiveWallet marks walletID as the default wallet for its currency.
// Local flags flip only after the backend confirms, and every other wallet
// of the same currency is cleared in the same mutation so at most one stays
// active per type.
func (s *Store) SetActiveWallet(ctx context.Context, cur models.Currency, walletID string) error {
	if !cur.Valid() {
		return &ValidationError{Field: "currency", Reason: fmt.Sprintf("unsupported currency %q", cur)}
	}

	s.mu.Lock()
	known := false
	for _, w := range s.wallets {
		if w.ID == walletID && w.Type == cur {
			known = true
			break
		}
	}
	s.mu.Unlock()
	if !known {
		return &ValidationError{Field: "walletId", Reason: fmt.Sprintf("no %s wallet with id %q", cur, walletID)}
	}

	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()

	err := s.gateway.SetActiveWallet(ctx, cur, walletID)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	if err != nil {
		s.mu.Lock()
		s.errorKind, s.errorMessage = classify(err)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	for i := range s.wallets {
		if s.wallets[i].Type == cur {
			s.wallets[i].IsActive = s.wallets[i].ID == walletID
		}
	}
	s.errorKind = ""
	s.errorMessage = ""
	s.mu.Unlock()
	return nil
}

// ActiveWallet returns the active wallet for a currency, or nil.
func (s *Store) ActiveWallet(cur models.Currency) *models.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wallets {
		if w.Type == cur && w.IsActive {
			copied := w
			return &copied
		}
	}
	return nil
}

// SetSelectedUnit changes the display unit. Purely local.
func (s *Store) SetSelectedUnit(unit currency.Unit) {
	s.mu.Lock()
	s.selectedUnit = unit
	s.mu.Unlock()
}

// ClearError resets the error state. Errors are otherwise cleared only by
// the next successful operation, never by a timer.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errorKind = ""
	s.errorMessage = ""
	s.mu.Unlock()
}

// FiatValue converts a wallet's balance to USD using the current table.
// Every displayed fiat amount derives from the table; a missing quote
// surfaces as an error the UI renders as a dash, not as zero.
func (s *Store) FiatValue(w models.Wallet) (decimal.Decimal, error) {
	s.mu.Lock()
	rates := s.rates
	s.mu.Unlock()

	return currency.Convert(decimal.NewFromFloat(w.Balance), currency.Native(w.Type), currency.UnitUSD, rates)
}

// classify buckets a gateway error for the store's error state.
func classify(err error) (api.ErrorKind, string) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, apiErr.Message
	}
	return api.KindNetwork, err.Error()
}
