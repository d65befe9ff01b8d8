package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/evmkeeper/custodial-wallet/internal/errs"
)

// transferGasLimit is the fixed gas cost of a native value transfer.
const transferGasLimit = 21000

// Gateway is the chain-facing interface consumed by the transaction
// coordinator. Receipts are the sole sealing oracle; transfer history comes
// from an external indexer and is only eventually consistent with it.
type Gateway interface {
	// GetBalance returns the native balance in ether as a decimal string.
	GetBalance(ctx context.Context, chainID uint64, address string) (string, error)
	// SubmitTransaction builds, signs and broadcasts a native value transfer.
	SubmitTransaction(ctx context.Context, chainID uint64, key *ecdsa.PrivateKey, to string, amountInEth float64) (hash string, nonce uint64, err error)
	// GetTransactionReceipt returns nil (with nil error) while the
	// transaction is still pending.
	GetTransactionReceipt(ctx context.Context, chainID uint64, hash string) (*types.Receipt, error)
	// GetTransferHistory returns up to 100 transfers, newest first.
	GetTransferHistory(ctx context.Context, chainID uint64, address string) ([]Transfer, error)
}

// Client implements Gateway over JSON-RPC plus an Etherscan-style indexer.
type Client struct {
	registry *Registry
	httpc    *http.Client
}

var _ Gateway = (*Client)(nil)

// NewClient constructs a Gateway over the given chain registry. httpc is
// used for indexer calls; nil means http.DefaultClient.
func NewClient(registry *Registry, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{registry: registry, httpc: httpc}
}

// dial resolves the chain config and opens an RPC connection. The registry
// lookup happens first so an unconfigured chain never dials out.
func (c *Client) dial(ctx context.Context, chainID uint64) (*ethclient.Client, ChainConfig, error) {
	cfg, err := c.registry.Lookup(chainID)
	if err != nil {
		return nil, ChainConfig{}, err
	}
	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, ChainConfig{}, fmt.Errorf("dial %s: %w", cfg.Name, err)
	}
	return ec, cfg, nil
}

// GetBalance implements Gateway.
func (c *Client) GetBalance(ctx context.Context, chainID uint64, address string) (string, error) {
	ec, _, err := c.dial(ctx, chainID)
	if err != nil {
		return "", err
	}
	defer ec.Close()

	wei, err := ec.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return "", classifyRPCError(err)
	}
	return WeiToEther(wei), nil
}

// SubmitTransaction implements Gateway. The signer's pending nonce and the
// suggested gas price come from the node; the transfer is a legacy
// 21000-gas value transaction signed for the target chain.
func (c *Client) SubmitTransaction(ctx context.Context, chainID uint64, key *ecdsa.PrivateKey, to string, amountInEth float64) (string, uint64, error) {
	ec, _, err := c.dial(ctx, chainID)
	if err != nil {
		return "", 0, err
	}
	defer ec.Close()

	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := ec.PendingNonceAt(ctx, from)
	if err != nil {
		return "", 0, classifyRPCError(err)
	}
	gasPrice, err := ec.SuggestGasPrice(ctx)
	if err != nil {
		return "", 0, classifyRPCError(err)
	}

	toAddr := common.HexToAddress(to)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    EtherToWei(amountInEth),
		Gas:      transferGasLimit,
		GasPrice: gasPrice,
	})

	signer := types.LatestSignerForChainID(new(big.Int).SetUint64(chainID))
	signed, err := types.SignTx(tx, signer, key)
	if err != nil {
		return "", 0, fmt.Errorf("sign tx: %w", err)
	}

	if err := ec.SendTransaction(ctx, signed); err != nil {
		return "", 0, classifyRPCError(err)
	}
	return signed.Hash().Hex(), nonce, nil
}

// GetTransactionReceipt implements Gateway.
func (c *Client) GetTransactionReceipt(ctx context.Context, chainID uint64, hash string) (*types.Receipt, error) {
	ec, _, err := c.dial(ctx, chainID)
	if err != nil {
		return nil, err
	}
	defer ec.Close()

	rcpt, err := ec.TransactionReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil // still pending
		}
		return nil, classifyRPCError(err)
	}
	return rcpt, nil
}

// GetTransferHistory implements Gateway.
func (c *Client) GetTransferHistory(ctx context.Context, chainID uint64, address string) ([]Transfer, error) {
	cfg, err := c.registry.Lookup(chainID)
	if err != nil {
		return nil, err
	}
	return c.fetchTransfers(ctx, cfg, address)
}

// classifyRPCError maps known upstream failures onto sentinels the
// coordinator understands. Anything unrecognized propagates unmodified.
func classifyRPCError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("%s: %w", err, errs.ErrInsufficientFunds)
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "-32000"),
		strings.Contains(msg, "could not coalesce"):
		return fmt.Errorf("%s: %w", err, errs.ErrRateLimited)
	}
	return err
}
