package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/cryptodial/cryptodial/internal/chain"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// entropyBits yields a 12-word mnemonic.
const entropyBits = 128

// derivationPath is the BIP-44 account path for the first external address:
// m/44'/60'/0'/0/0. All EVM variants share coin type 60.
var derivationPath = []uint32{
	bip32.FirstHardenedChild + 44,
	bip32.FirstHardenedChild + 60,
	bip32.FirstHardenedChild,
	0,
	0,
}

// CreateWallet derives a keypair from the given seed words, or from fresh
// entropy when seedWords is nil. Networks without mnemonic support generate
// an opaque random key and always return empty seed words.
func (c *Client) CreateWallet(seedWords []string) (*chain.Keypair, error) {
	if !c.opts.MnemonicSupported {
		return generateOpaqueKeypair()
	}

	mnemonic := strings.Join(seedWords, " ")
	if len(seedWords) == 0 {
		entropy, err := bip39.NewEntropy(entropyBits)
		if err != nil {
			return nil, dialerr.Wrap(err, "generating entropy")
		}
		mnemonic, err = bip39.NewMnemonic(entropy)
		if err != nil {
			return nil, dialerr.Wrap(err, "generating mnemonic")
		}
	}

	return c.deriveKeypair(mnemonic)
}

// RecoverWallet re-derives the keypair from an existing seed phrase.
func (c *Client) RecoverWallet(seedWords []string) (*chain.Keypair, error) {
	if !c.opts.MnemonicSupported {
		return nil, dialerr.WithDetails(dialerr.ErrUnsupportedOperation, map[string]string{
			"chain":     c.opts.Chain.String(),
			"operation": "recover",
		})
	}
	if len(seedWords) == 0 {
		return nil, dialerr.ErrInvalidSeed
	}
	return c.deriveKeypair(strings.Join(seedWords, " "))
}

// deriveKeypair walks the BIP-44 path from the mnemonic seed and returns the
// first external account.
func (c *Client) deriveKeypair(mnemonic string) (*chain.Keypair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, dialerr.ErrInvalidSeed
	}

	seed := bip39.NewSeed(mnemonic, "")
	node, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrInvalidSeed, "deriving master key")
	}
	for _, index := range derivationPath {
		node, err = node.NewChildKey(index)
		if err != nil {
			return nil, dialerr.WrapWith(err, dialerr.ErrInvalidSeed, "deriving child key")
		}
	}

	key, err := crypto.ToECDSA(node.Key)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrInvalidSeed, "converting derived key")
	}

	return &chain.Keypair{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
		SeedWords:  strings.Fields(mnemonic),
	}, nil
}

// generateOpaqueKeypair creates a random secp256k1 key with no seed phrase.
func generateOpaqueKeypair() (*chain.Keypair, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, dialerr.Wrap(err, "generating key")
	}
	return &chain.Keypair{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}, nil
}
