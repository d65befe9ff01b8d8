// Package evm is the only component that talks to blockchain networks. It
// abstracts JSON-RPC connectivity, balance lookups, transaction broadcast,
// receipt polling and indexed transfer history behind a registry of
// supported chains. Unknown chain ids always fail closed.
package evm

import (
	"fmt"

	"github.com/evmkeeper/custodial-wallet/internal/errs"
)

// Supported chain ids. Adding a chain means adding both an RPC endpoint and
// an indexer endpoint to the registry in cmd/server.
const (
	ChainSepolia     uint64 = 11155111
	ChainBaseSepolia uint64 = 84532
)

// ChainConfig describes one supported network.
type ChainConfig struct {
	ChainID    uint64
	Name       string
	RPCURL     string // JSON-RPC endpoint for balance/broadcast/receipts
	IndexerURL string // Etherscan-style API base for transfer history
	IndexerKey string
}

// Registry is the closed set of configured chains.
type Registry struct {
	chains map[uint64]ChainConfig
}

// NewRegistry validates the chain set at startup. Every entry must carry a
// chain id, an RPC URL and an indexer URL.
func NewRegistry(chains ...ChainConfig) (*Registry, error) {
	m := make(map[uint64]ChainConfig, len(chains))
	for _, c := range chains {
		if c.ChainID == 0 {
			return nil, fmt.Errorf("chain %q: missing chain id", c.Name)
		}
		if c.RPCURL == "" {
			return nil, fmt.Errorf("chain %d: missing rpc url", c.ChainID)
		}
		if c.IndexerURL == "" {
			return nil, fmt.Errorf("chain %d: missing indexer url", c.ChainID)
		}
		if _, dup := m[c.ChainID]; dup {
			return nil, fmt.Errorf("chain %d: configured twice", c.ChainID)
		}
		m[c.ChainID] = c
	}
	return &Registry{chains: m}, nil
}

// Lookup resolves a chain config or fails with InvalidChainIDError.
func (r *Registry) Lookup(chainID uint64) (ChainConfig, error) {
	c, ok := r.chains[chainID]
	if !ok {
		return ChainConfig{}, &errs.InvalidChainIDError{ChainID: chainID}
	}
	return c, nil
}
