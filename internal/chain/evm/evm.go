// Package evm implements the chain adapter for EVM-compatible networks.
// One client type serves Electroneum, Binance Smart Chain and Polygon;
// per-network quirks are captured in Options rather than separate types.
package evm

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/cryptodial/cryptodial/internal/chain"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// evmDecimals is the number of decimals of the native unit (wei) on every
// EVM-compatible network this service supports.
const evmDecimals = 18

// transferGasLimit is the fixed gas limit for a native value transfer.
const transferGasLimit = 21000

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Options selects the per-network behavior of the shared EVM client.
type Options struct {
	// Chain is the identifier this adapter reports.
	Chain chain.ID

	// MnemonicSupported controls whether wallets carry a recoverable seed
	// phrase. Networks without it generate opaque keys and cannot recover.
	MnemonicSupported bool

	// LegacyGas forces pre-EIP-1559 transactions with a suggested gas price.
	// Required on networks whose nodes reject dynamic-fee transactions.
	LegacyGas bool
}

// Client is a chain adapter backed by an EVM JSON-RPC endpoint. The
// connection is established lazily on first use and reused afterwards.
type Client struct {
	opts    Options
	rpcURL  string
	chainID *big.Int
	timeout time.Duration

	mu  sync.Mutex
	eth *ethclient.Client
}

// Compile-time interface checks.
var (
	_ chain.Adapter       = (*Client)(nil)
	_ chain.HistorySource = (*Client)(nil)
)

// NewClient creates an EVM adapter for the given endpoint. No connection is
// made until the first RPC call.
func NewClient(ep chain.Endpoint, opts Options) (*Client, error) {
	if ep.RPCURL == "" {
		return nil, dialerr.New("VALIDATION", "rpc url is required")
	}
	if ep.ChainID <= 0 {
		return nil, dialerr.New("VALIDATION", "chain id is required")
	}
	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		opts:    opts,
		rpcURL:  ep.RPCURL,
		chainID: big.NewInt(ep.ChainID),
		timeout: timeout,
	}, nil
}

// ID returns the chain identifier this adapter serves.
func (c *Client) ID() chain.ID { return c.opts.Chain }

// Decimals returns the native unit precision.
func (c *Client) Decimals() int { return evmDecimals }

// connect dials the RPC endpoint once and caches the client.
func (c *Client) connect(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eth != nil {
		return c.eth, nil
	}

	eth, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "connecting to rpc endpoint")
	}
	c.eth = eth
	return eth, nil
}

// callCtx derives a per-call context bounded by the endpoint timeout.
func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// ValidAddress reports whether s is a well-formed EVM address.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// GetBalance retrieves the latest native balance in wei.
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	if !ValidAddress(address) {
		return nil, dialerr.WithDetails(dialerr.ErrAddressInvalid, map[string]string{
			"address": address,
		})
	}

	eth, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	return chain.Retry(ctx, func() (*big.Int, error) {
		balance, err := eth.BalanceAt(ctx, common.HexToAddress(address), nil)
		if err != nil {
			return nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "querying balance")
		}
		return balance, nil
	})
}

// SendValue signs a native transfer with the sender's key and submits it.
// The receipt fee is the worst-case fee at the signed price; the transaction
// is not awaited, so BlockNumber is zero.
func (c *Client) SendValue(ctx context.Context, creds chain.Credentials, to string, amount *big.Int) (*chain.Receipt, error) {
	if err := chain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if !ValidAddress(to) {
		return nil, dialerr.WithDetails(dialerr.ErrAddressInvalid, map[string]string{
			"address": to,
		})
	}

	key, from, err := parsePrivateKey(creds.PrivateKey)
	if err != nil {
		return nil, err
	}

	eth, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	nonce, err := eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "fetching nonce")
	}

	recipient := common.HexToAddress(to)
	signed, maxFee, err := c.buildSignedTransfer(ctx, eth, key, nonce, recipient, amount)
	if err != nil {
		return nil, err
	}

	if err := eth.SendTransaction(ctx, signed); err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "submitting transaction")
	}

	return &chain.Receipt{
		TxHash:     signed.Hash().Hex(),
		NetworkFee: maxFee,
	}, nil
}

// buildSignedTransfer assembles and signs the transfer, choosing legacy or
// dynamic-fee form per the network options. The returned fee is the
// worst-case fee at the chosen price.
func (c *Client) buildSignedTransfer(
	ctx context.Context,
	eth *ethclient.Client,
	key *ecdsa.PrivateKey,
	nonce uint64,
	recipient common.Address,
	amount *big.Int,
) (*types.Transaction, *big.Int, error) {
	gasLimit := big.NewInt(transferGasLimit)

	if c.opts.LegacyGas {
		gasPrice, err := eth.SuggestGasPrice(ctx)
		if err != nil {
			return nil, nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "fetching gas price")
		}

		tx := types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &recipient,
			Value:    amount,
			Gas:      transferGasLimit,
			GasPrice: gasPrice,
		})
		signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), key)
		if err != nil {
			return nil, nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "signing transaction")
		}
		return signed, new(big.Int).Mul(gasPrice, gasLimit), nil
	}

	tipCap, err := eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "fetching gas tip cap")
	}
	head, err := eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "fetching chain head")
	}

	// Fee cap covers a doubling of the current base fee plus the tip.
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		To:        &recipient,
		Value:     amount,
		Gas:       transferGasLimit,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return nil, nil, dialerr.WrapWith(err, dialerr.ErrChainSubmission, "signing transaction")
	}
	return signed, new(big.Int).Mul(feeCap, gasLimit), nil
}

// GetHistory resolves the selector against blocks and transactions.
func (c *Client) GetHistory(ctx context.Context, sel chain.HistorySelector) (chain.History, error) {
	if _, err := c.connect(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	return chain.ResolveHistory(ctx, c, sel)
}

// parsePrivateKey decodes a hex private key, with or without the 0x prefix,
// and returns its sender address.
func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, common.Address{}, dialerr.WrapWith(err, dialerr.ErrDecryption, "parsing private key")
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}
