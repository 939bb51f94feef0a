// Package chain defines the adapter contract every supported blockchain
// implements, plus the registry that resolves a chain identifier to a
// configured adapter instance.
package chain

import (
	"context"
	"math/big"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// ID represents a supported blockchain.
type ID string

// Supported blockchain identifiers. This is a closed set: adding a chain
// means adding an adapter variant, never string matching at call sites.
const (
	EVM     ID = "evm"
	Binance ID = "binance"
	Polygon ID = "polygon"
	Solana  ID = "solana"
)

// String returns the chain identifier string.
func (id ID) String() string {
	return string(id)
}

// IsValid returns true if the chain ID is a known chain.
func (id ID) IsValid() bool {
	switch id {
	case EVM, Binance, Polygon, Solana:
		return true
	default:
		return false
	}
}

// WalletPrefix returns the 3-letter prefix used in service wallet ids.
func (id ID) WalletPrefix() string {
	switch id {
	case EVM:
		return "ETN"
	case Binance:
		return "BNB"
	case Polygon:
		return "MAT"
	case Solana:
		return "SOL"
	default:
		return ""
	}
}

// DisplayName returns the user-facing chain name for menu prompts.
func (id ID) DisplayName() string {
	switch id {
	case EVM:
		return "Electroneum"
	case Binance:
		return "Binance"
	case Polygon:
		return "Polygon"
	case Solana:
		return "Solana"
	default:
		return string(id)
	}
}

// ParseID parses a string into a chain ID.
func ParseID(s string) (ID, bool) {
	id := ID(s)
	return id, id.IsValid()
}

// AllChains returns all known chain IDs.
func AllChains() []ID {
	return []ID{EVM, Binance, Polygon, Solana}
}

// Credentials identify a sender for a value transfer. PrivateKey is the
// chain-native encoding (hex for EVM variants, base58 for Solana) and must
// be wiped by the caller after use.
type Credentials struct {
	Address    string
	PrivateKey string
}

// Keypair is the result of creating or recovering a wallet. SeedWords is
// empty for variants without seed-phrase support.
type Keypair struct {
	Address    string
	PrivateKey string
	SeedWords  []string
}

// Receipt is the outcome of a submitted value transfer. BlockNumber is zero
// until the transaction is mined; the fee is in smallest on-chain units.
type Receipt struct {
	TxHash      string
	NetworkFee  *big.Int
	BlockNumber uint64
}

// TxSummary describes one historical transaction in normalized form.
type TxSummary struct {
	Hash        string
	From        string
	To          string
	Value       *big.Int
	BlockNumber uint64
}

// History maps transaction hash to its summary.
type History map[string]TxSummary

// HistorySelector selects what GetHistory resolves. Exactly one field is
// set: a block height, a block-or-transaction reference string, or a list
// of transaction ids.
type HistorySelector struct {
	BlockHeight *uint64
	Ref         string
	TxIDs       []string
}

// ByHeight selects the block at the given height.
func ByHeight(height uint64) HistorySelector {
	return HistorySelector{BlockHeight: &height}
}

// ByRef selects by a reference string, tried first as a block identifier
// and then as a single transaction identifier.
func ByRef(ref string) HistorySelector {
	return HistorySelector{Ref: ref}
}

// ByTxIDs selects a list of transactions, resolved concurrently.
func ByTxIDs(ids ...string) HistorySelector {
	return HistorySelector{TxIDs: ids}
}

// Adapter is the contract every chain variant implements. Amounts are
// always integers in the smallest on-chain unit (wei, lamports); floating
// types never cross this boundary.
type Adapter interface {
	// ID returns the chain identifier.
	ID() ID

	// Decimals returns the number of decimals of the native unit.
	Decimals() int

	// SendValue signs and submits a native transfer of amount (smallest
	// unit) from the credentialed sender to the recipient address.
	SendValue(ctx context.Context, creds Credentials, to string, amount *big.Int) (*Receipt, error)

	// GetBalance retrieves the native balance for an address in the
	// smallest on-chain unit.
	GetBalance(ctx context.Context, address string) (*big.Int, error)

	// GetHistory resolves a selector to a mapping keyed by transaction
	// hash. A list selector fails entirely if any entry is unresolved.
	GetHistory(ctx context.Context, sel HistorySelector) (History, error)

	// CreateWallet derives a keypair from the given seed words, or from
	// fresh entropy when seedWords is nil. Variants without seed-phrase
	// support always return empty seed words.
	CreateWallet(seedWords []string) (*Keypair, error)

	// RecoverWallet re-derives a keypair from seed words. Variants without
	// seed-phrase support fail with ErrUnsupportedOperation.
	RecoverWallet(seedWords []string) (*Keypair, error)
}

// ValidateAmount rejects non-positive transfer amounts before any network
// call is made.
func ValidateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return dialerr.ErrInvalidAmount
	}
	return nil
}
