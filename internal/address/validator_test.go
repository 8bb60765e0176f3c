package address

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/bech32"
	ltcchaincfg "github.com/ltcsuite/ltcd/chaincfg"
	"github.com/ltcsuite/ltcd/ltcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BumpBTC/bumpcore/internal/models"
)

func mustValidator(t *testing.T, network Network) *Validator {
	t.Helper()
	v, err := NewValidator(network)
	require.NoError(t, err)
	return v
}

func TestNewValidatorRejectsUnknownNetwork(t *testing.T) {
	_, err := NewValidator(Network("signet"))
	assert.Error(t, err)
}

func TestBitcoinTestnetAddress(t *testing.T) {
	v := mustValidator(t, NetworkTestnet)

	const valid = "tb1quh87hzaw32sspf2ngufp6k9well2ms3t3rjw90"
	assert.True(t, v.Valid(valid, models.CurrencyBitcoin))

	// Checksum corruption and truncation must both fail.
	corrupted := valid[:len(valid)-1] + "1"
	assert.False(t, v.Valid(corrupted, models.CurrencyBitcoin))
	assert.False(t, v.Valid(valid[:20], models.CurrencyBitcoin))

	// A testnet address is not valid on mainnet.
	main := mustValidator(t, NetworkMainnet)
	assert.False(t, main.Valid(valid, models.CurrencyBitcoin))
}

func TestBitcoinMainnetAddress(t *testing.T) {
	v := mustValidator(t, NetworkMainnet)

	for _, addr := range []string{
		"bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
	} {
		assert.True(t, v.Valid(addr, models.CurrencyBitcoin), addr)
	}

	assert.False(t, v.Valid("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t5", models.CurrencyBitcoin))
	assert.False(t, v.Valid("not an address", models.CurrencyBitcoin))
	assert.False(t, v.Valid("", models.CurrencyBitcoin))
}

func TestLitecoinAddress(t *testing.T) {
	v := mustValidator(t, NetworkMainnet)

	hash := bytes.Repeat([]byte{0x2a}, 20)

	legacy, err := ltcutil.NewAddressPubKeyHash(hash, &ltcchaincfg.MainNetParams)
	require.NoError(t, err)
	assert.True(t, v.Valid(legacy.EncodeAddress(), models.CurrencyLitecoin))

	segwit, err := ltcutil.NewAddressWitnessPubKeyHash(hash, &ltcchaincfg.MainNetParams)
	require.NoError(t, err)
	assert.True(t, v.Valid(segwit.EncodeAddress(), models.CurrencyLitecoin))

	// Corrupt the segwit checksum.
	enc := segwit.EncodeAddress()
	corrupted := enc[:len(enc)-1] + "q"
	if corrupted == enc {
		corrupted = enc[:len(enc)-1] + "p"
	}
	assert.False(t, v.Valid(corrupted, models.CurrencyLitecoin))

	// A mainnet Litecoin address fails under the testnet validator.
	test := mustValidator(t, NetworkTestnet)
	assert.False(t, test.Valid(legacy.EncodeAddress(), models.CurrencyLitecoin))

	// Bitcoin addresses are not Litecoin addresses.
	assert.False(t, v.Valid("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", models.CurrencyLitecoin))
}

func TestLightningPubKeyForm(t *testing.T) {
	v := mustValidator(t, NetworkTestnet)

	_, pub := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x11}, 32))
	pubHex := hex.EncodeToString(pub.SerializeCompressed())
	require.Len(t, pubHex, 66)

	assert.True(t, IsLightningPubKey(pubHex))
	assert.Equal(t, LightningFormPubKey, v.LightningAddressForm(pubHex))
	assert.True(t, v.Valid(pubHex, models.CurrencyLightning))

	// A pubkey is not an invoice.
	assert.False(t, v.IsLightningInvoice(pubHex))

	// Wrong prefix, wrong length, and non-hex all fail.
	assert.False(t, IsLightningPubKey("04"+pubHex[2:]))
	assert.False(t, IsLightningPubKey(pubHex[:64]))
	assert.False(t, IsLightningPubKey(strings.Replace(pubHex, pubHex[2:4], "zz", 1)))

	// 66 hex chars with a 02 prefix that is not a curve point.
	notOnCurve := "02" + strings.Repeat("00", 32)
	assert.False(t, IsLightningPubKey(notOnCurve))
}

func TestLightningInvoiceForm(t *testing.T) {
	v := mustValidator(t, NetworkTestnet)

	// Build a checksum-valid bech32 string with the testnet invoice prefix.
	data := make([]byte, 60)
	for i := range data {
		data[i] = byte(i % 32)
	}
	invoice, err := bech32.Encode("lntb", data)
	require.NoError(t, err)

	assert.True(t, v.IsLightningInvoice(invoice))
	assert.Equal(t, LightningFormInvoice, v.LightningAddressForm(invoice))
	assert.True(t, v.Valid(invoice, models.CurrencyLightning))

	// Uppercase form is accepted, mixed case is not.
	assert.True(t, v.IsLightningInvoice(strings.ToUpper(invoice)))
	mixed := strings.ToUpper(invoice[:10]) + invoice[10:]
	assert.False(t, v.IsLightningInvoice(mixed))

	// An invoice is not a pubkey.
	assert.False(t, IsLightningPubKey(invoice))

	// Checksum corruption fails.
	corrupted := invoice[:len(invoice)-1] + "q"
	if corrupted == invoice {
		corrupted = invoice[:len(invoice)-1] + "p"
	}
	assert.False(t, v.IsLightningInvoice(corrupted))

	// A testnet invoice is rejected by the mainnet validator.
	main := mustValidator(t, NetworkMainnet)
	assert.False(t, main.IsLightningInvoice(invoice))
	assert.Equal(t, LightningFormInvalid, main.LightningAddressForm(invoice))
}

func TestValidRejectsJunk(t *testing.T) {
	v := mustValidator(t, NetworkMainnet)

	for _, addr := range []string{"", " ", "ln", "0x52908400098527886E0F7030069857D2E4169EE7", "tb1"} {
		for _, c := range []models.Currency{models.CurrencyBitcoin, models.CurrencyLightning, models.CurrencyLitecoin} {
			assert.False(t, v.Valid(addr, c), "%q should be invalid for %s", addr, c)
		}
	}

	assert.False(t, v.Valid("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", models.Currency("dogecoin")))
}
