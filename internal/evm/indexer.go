package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// historyCap bounds how many indexed transfers a history read returns.
const historyCap = 100

// Transfer is one indexed on-chain transfer.
type Transfer struct {
	From      string
	To        string
	Hash      string
	Nonce     uint64
	Value     *big.Int // wei
	Timestamp time.Time
}

// txlistResponse is the Etherscan-style account txlist envelope. All result
// fields arrive as decimal strings.
type txlistResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  []struct {
		TimeStamp string `json:"timeStamp"`
		Hash      string `json:"hash"`
		Nonce     string `json:"nonce"`
		From      string `json:"from"`
		To        string `json:"to"`
		Value     string `json:"value"`
	} `json:"result"`
}

// fetchTransfers reads the newest transfers for address from the chain's
// indexer, capped at historyCap, newest first.
func (c *Client) fetchTransfers(ctx context.Context, cfg ChainConfig, address string) ([]Transfer, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("page", "1")
	q.Set("offset", strconv.Itoa(historyCap))
	q.Set("sort", "desc")
	if cfg.IndexerKey != "" {
		q.Set("apikey", cfg.IndexerKey)
	}

	u := strings.TrimSuffix(cfg.IndexerURL, "/") + "/api?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer %s: %w", cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, classifyRPCError(fmt.Errorf("indexer %s: status 429", cfg.Name))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer %s: status %d", cfg.Name, resp.StatusCode)
	}

	var body txlistResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("indexer %s: decode: %w", cfg.Name, err)
	}

	// Status "0" with "No transactions found" is an empty history, not an error.
	if body.Status != "1" && !strings.Contains(body.Message, "No transactions found") {
		if strings.Contains(strings.ToLower(body.Message), "rate limit") {
			return nil, classifyRPCError(fmt.Errorf("indexer %s: too many requests", cfg.Name))
		}
		return nil, fmt.Errorf("indexer %s: %s", cfg.Name, body.Message)
	}

	out := make([]Transfer, 0, len(body.Result))
	for _, r := range body.Result {
		if len(out) == historyCap {
			break
		}
		ts, err := strconv.ParseInt(r.TimeStamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("indexer %s: bad timestamp %q", cfg.Name, r.TimeStamp)
		}
		nonce, err := strconv.ParseUint(r.Nonce, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("indexer %s: bad nonce %q", cfg.Name, r.Nonce)
		}
		value, ok := new(big.Int).SetString(r.Value, 10)
		if !ok {
			return nil, fmt.Errorf("indexer %s: bad value %q", cfg.Name, r.Value)
		}
		out = append(out, Transfer{
			From:      r.From,
			To:        r.To,
			Hash:      r.Hash,
			Nonce:     nonce,
			Value:     value,
			Timestamp: time.Unix(ts, 0).UTC(),
		})
	}
	return out, nil
}
