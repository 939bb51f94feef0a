package sol

import (
	"crypto/ed25519"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/tyler-smith/go-bip39"

	"github.com/cryptodial/cryptodial/internal/chain"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// entropyBits yields a 12-word mnemonic.
const entropyBits = 128

// CreateWallet derives an ed25519 keypair from the given seed words, or
// from fresh entropy when seedWords is nil.
func (c *Client) CreateWallet(seedWords []string) (*chain.Keypair, error) {
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
	return deriveKeypair(mnemonic)
}

// RecoverWallet re-derives the keypair from an existing seed phrase.
func (c *Client) RecoverWallet(seedWords []string) (*chain.Keypair, error) {
	if len(seedWords) == 0 {
		return nil, dialerr.ErrInvalidSeed
	}
	return deriveKeypair(strings.Join(seedWords, " "))
}

// deriveKeypair seeds ed25519 with the first 32 bytes of the BIP-39 seed.
// Deterministic: the same mnemonic always yields the same address.
func deriveKeypair(mnemonic string) (*chain.Keypair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, dialerr.ErrInvalidSeed
	}

	seed := bip39.NewSeed(mnemonic, "")
	key := solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize]))

	return &chain.Keypair{
		Address:    key.PublicKey().String(),
		PrivateKey: key.String(),
		SeedWords:  strings.Fields(mnemonic),
	}, nil
}
