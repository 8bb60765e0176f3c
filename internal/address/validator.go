package address

import (
	"encoding/hex"
	"fmt"
	"strings"

	btcchaincfg "github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/txscript"
	ltcchaincfg "github.com/ltcsuite/ltcd/chaincfg"
	"github.com/ltcsuite/ltcd/ltcutil"

	"github.com/BumpBTC/bumpcore/internal/models"
)

// Network selects which chain parameters addresses are validated against.
// It is an explicit input; the validator never infers the network from the
// addresses it sees.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// LightningForm is the variant a Lightning destination string decodes to.
// A destination is either a node public key or a BOLT11 payment request;
// the two forms are disjoint and validated by separate rules.
type LightningForm int

const (
	LightningFormInvalid LightningForm = iota
	LightningFormPubKey
	LightningFormInvoice
)

// Validator checks address well-formedness per currency. All methods are
// pure predicates: no I/O, and malformed input of any kind returns false
// rather than panicking.
type Validator struct {
	btcParams     *btcchaincfg.Params
	ltcParams     *ltcchaincfg.Params
	invoicePrefix string
}

// NewValidator builds a validator scoped to one network.
func NewValidator(network Network) (*Validator, error) {
	switch network {
	case NetworkMainnet:
		return &Validator{
			btcParams:     &btcchaincfg.MainNetParams,
			ltcParams:     &ltcchaincfg.MainNetParams,
			invoicePrefix: "lnbc",
		}, nil
	case NetworkTestnet:
		return &Validator{
			btcParams:     &btcchaincfg.TestNet3Params,
			ltcParams:     &ltcchaincfg.TestNet4Params,
			invoicePrefix: "lntb",
		}, nil
	}
	return nil, fmt.Errorf("unknown network %q", network)
}

// Valid reports whether addr is a well-formed destination for the given
// currency on the validator's network.
func (v *Validator) Valid(addr string, currency models.Currency) bool {
	if addr == "" {
		return false
	}
	switch currency {
	case models.CurrencyBitcoin:
		return v.validBitcoin(addr)
	case models.CurrencyLightning:
		return v.LightningAddressForm(addr) != LightningFormInvalid
	case models.CurrencyLitecoin:
		return v.validLitecoin(addr)
	}
	return false
}

// validBitcoin accepts any address that decodes for the configured network
// and yields a spendable output script.
func (v *Validator) validBitcoin(addr string) bool {
	decoded, err := btcutil.DecodeAddress(addr, v.btcParams)
	if err != nil {
		return false
	}
	if !decoded.IsForNet(v.btcParams) {
		return false
	}
	if _, err := txscript.PayToAddrScript(decoded); err != nil {
		return false
	}
	return true
}

func (v *Validator) validLitecoin(addr string) bool {
	decoded, err := ltcutil.DecodeAddress(addr, v.ltcParams)
	if err != nil {
		return false
	}
	return decoded.IsForNet(v.ltcParams)
}

// LightningAddressForm classifies a Lightning destination as a node pubkey,
// a BOLT11 invoice, or neither.
func (v *Validator) LightningAddressForm(addr string) LightningForm {
	if IsLightningPubKey(addr) {
		return LightningFormPubKey
	}
	if v.IsLightningInvoice(addr) {
		return LightningFormInvoice
	}
	return LightningFormInvalid
}

// IsLightningPubKey reports whether s is a hex-encoded 33-byte compressed
// secp256k1 public key (02/03 prefix, 66 hex characters) that parses as a
// point on the curve.
func IsLightningPubKey(s string) bool {
	if len(s) != 66 {
		return false
	}
	if s[0] != '0' || (s[1] != '2' && s[1] != '3') {
		return false
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return false
	}
	_, err = btcec.ParsePubKey(raw)
	return err == nil
}

// IsLightningInvoice reports whether s looks like a BOLT11 payment request
// for the validator's network: single-case, human-readable part starting
// with ln plus the network tag, and a bech32 body with a valid checksum.
// BOLT11 strings exceed bech32's usual 90-character cap, so the unlimited
// decoder is used. Tagged-field and signature validation stays with the
// backend that actually pays the invoice.
func (v *Validator) IsLightningInvoice(s string) bool {
	if len(s) < len(v.invoicePrefix)+8 {
		return false
	}
	lower := strings.ToLower(s)
	if s != lower && s != strings.ToUpper(s) {
		// Mixed case is invalid in bech32.
		return false
	}
	if !strings.HasPrefix(lower, v.invoicePrefix) {
		return false
	}
	hrp, _, err := bech32.DecodeNoLimit(lower)
	if err != nil {
		return false
	}
	return strings.HasPrefix(hrp, v.invoicePrefix)
}
