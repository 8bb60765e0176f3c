package currency

import (
	"fmt"

	"github.com/BumpBTC/bumpcore/internal/models"
	"github.com/shopspring/decimal"
)

// Unit is a denomination an amount can be expressed in.
type Unit string

const (
	UnitBTC     Unit = "BTC"
	UnitSatoshi Unit = "satoshi"
	UnitLTC     Unit = "LTC"
	UnitUSD     Unit = "USD"
)

// SatoshisPerBTC is the fixed scale between bitcoin's display unit and its
// smallest unit.
const SatoshisPerBTC = 100_000_000

// MissingRateError is returned when a conversion needs a quote the table
// does not carry (or carries as zero, which is treated the same).
type MissingRateError struct {
	Symbol string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("no usable exchange rate for %q", e.Symbol)
}

// ErrNegativeAmount is returned for negative inputs; conversion is only
// defined over non-negative amounts.
var ErrNegativeAmount = fmt.Errorf("amount must be non-negative")

// ErrUnknownUnit is returned when a unit is not one of the supported
// denominations.
var ErrUnknownUnit = fmt.Errorf("unknown currency unit")

// rateSymbol maps a crypto unit to its rate provider symbol.
func rateSymbol(u Unit) (string, error) {
	switch u {
	case UnitBTC, UnitSatoshi:
		return string(models.CurrencyBitcoin), nil
	case UnitLTC:
		return string(models.CurrencyLitecoin), nil
	case UnitUSD:
		return "", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, u)
}

// Convert converts amount between any two supported units using the current
// rate table. Satoshi and BTC are two denominations of the same asset and
// convert by an exact decimal shift with no rate lookup. Every other
// cross-currency conversion routes through USD, so a BTC->LTC conversion
// costs two quotes and carries the rounding of two divisions. A missing or
// non-positive quote fails with MissingRateError instead of producing zero,
// NaN, or infinity.
func Convert(amount decimal.Decimal, from, to Unit, rates models.ExchangeRateTable) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	if _, err := rateSymbol(from); err != nil {
		return decimal.Zero, err
	}
	if _, err := rateSymbol(to); err != nil {
		return decimal.Zero, err
	}
	if from == to {
		return amount, nil
	}

	// Same-asset shift: no rate involved, exact for integer satoshi input.
	if isBitcoinUnit(from) && isBitcoinUnit(to) {
		if from == UnitSatoshi {
			return amount.Shift(-8), nil
		}
		return amount.Shift(8), nil
	}

	usd, err := toUSD(amount, from, rates)
	if err != nil {
		return decimal.Zero, err
	}
	return fromUSD(usd, to, rates)
}

// Native returns the display unit a wallet's balance is denominated in.
func Native(c models.Currency) Unit {
	switch c {
	case models.CurrencyLightning:
		return UnitSatoshi
	case models.CurrencyLitecoin:
		return UnitLTC
	default:
		return UnitBTC
	}
}

func isBitcoinUnit(u Unit) bool {
	return u == UnitBTC || u == UnitSatoshi
}

// lookupRate fetches the USD quote for a symbol, failing closed on absent
// or non-positive values so no division by zero can slip through.
func lookupRate(symbol string, rates models.ExchangeRateTable) (decimal.Decimal, error) {
	r, ok := rates[symbol]
	if !ok || r.USD <= 0 {
		return decimal.Zero, &MissingRateError{Symbol: symbol}
	}
	return decimal.NewFromFloat(r.USD), nil
}

func toUSD(amount decimal.Decimal, from Unit, rates models.ExchangeRateTable) (decimal.Decimal, error) {
	if from == UnitUSD {
		return amount, nil
	}
	symbol, _ := rateSymbol(from)
	rate, err := lookupRate(symbol, rates)
	if err != nil {
		return decimal.Zero, err
	}
	if from == UnitSatoshi {
		amount = amount.Shift(-8)
	}
	return amount.Mul(rate), nil
}

func fromUSD(amount decimal.Decimal, to Unit, rates models.ExchangeRateTable) (decimal.Decimal, error) {
	if to == UnitUSD {
		return amount, nil
	}
	symbol, _ := rateSymbol(to)
	rate, err := lookupRate(symbol, rates)
	if err != nil {
		return decimal.Zero, err
	}
	out := amount.Div(rate)
	if to == UnitSatoshi {
		out = out.Shift(8)
	}
	return out, nil
}
