// Package sol implements the chain adapter for Solana. Unlike the EVM
// family it deals in lamports, base58 keys and slot-addressed blocks.
package sol

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/cryptodial/cryptodial/internal/chain"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// solDecimals is the number of decimals of the native unit (lamports).
const solDecimals = 9

// signatureFee is the flat per-signature fee in lamports. A single-signer
// transfer always costs exactly this much.
const signatureFee = 5000

// Client is a chain adapter backed by a Solana JSON-RPC endpoint.
type Client struct {
	rpcURL  string
	timeout time.Duration

	mu  sync.Mutex
	sol *rpc.Client
}

// Compile-time interface checks.
var (
	_ chain.Adapter       = (*Client)(nil)
	_ chain.HistorySource = (*Client)(nil)
)

// NewClient creates a Solana adapter for the given endpoint.
func NewClient(ep chain.Endpoint) (*Client, error) {
	if ep.RPCURL == "" {
		return nil, dialerr.New("VALIDATION", "rpc url is required")
	}
	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		rpcURL:  ep.RPCURL,
		timeout: timeout,
	}, nil
}

// ID returns the chain identifier.
func (c *Client) ID() chain.ID { return chain.Solana }

// Decimals returns the native unit precision.
func (c *Client) Decimals() int { return solDecimals }

func (c *Client) connect() *rpc.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sol == nil {
		c.sol = rpc.New(c.rpcURL)
	}
	return c.sol
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// ValidAddress reports whether s is a well-formed base58 Solana public key.
func ValidAddress(s string) bool {
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}

// GetBalance retrieves the finalized balance for an address in lamports.
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, dialerr.WithDetails(dialerr.ErrAddressInvalid, map[string]string{
			"address": address,
		})
	}

	cl := c.connect()
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	return chain.Retry(ctx, func() (*big.Int, error) {
		out, err := cl.GetBalance(ctx, pubkey, rpc.CommitmentFinalized)
		if err != nil {
			return nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "querying balance")
		}
		return new(big.Int).SetUint64(out.Value), nil
	})
}

// SendValue builds, signs and submits a system transfer of amount lamports.
// The receipt fee is the flat signature fee.
func (c *Client) SendValue(ctx context.Context, creds chain.Credentials, to string, amount *big.Int) (*chain.Receipt, error) {
	if err := chain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if !amount.IsUint64() {
		return nil, dialerr.ErrInvalidAmount
	}

	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return nil, dialerr.WithDetails(dialerr.ErrAddressInvalid, map[string]string{
			"address": to,
		})
	}

	sender, err := solana.PrivateKeyFromBase58(creds.PrivateKey)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrDecryption, "parsing private key")
	}
	senderPub := sender.PublicKey()

	cl := c.connect()
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	recent, err := cl.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "fetching recent blockhash")
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(amount.Uint64(), senderPub, recipient).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(senderPub),
	)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "building transaction")
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(senderPub) {
			return &sender
		}
		return nil
	})
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "signing transaction")
	}

	sig, err := cl.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "submitting transaction")
	}

	return &chain.Receipt{
		TxHash:     sig.String(),
		NetworkFee: big.NewInt(signatureFee),
	}, nil
}

// GetHistory resolves the selector against slots and signatures.
func (c *Client) GetHistory(ctx context.Context, sel chain.HistorySelector) (chain.History, error) {
	c.connect()
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	return chain.ResolveHistory(ctx, c, sel)
}
