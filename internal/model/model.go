// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// User is an account keyed by the identity provider's subject id.
// Created lazily on first wallet creation.
type User struct {
	ID            uuid.UUID // PK
	DynamicUserID string    // unique, issued by the identity provider
	CreatedAt     time.Time
}

// CustodialWallet is a server-held EVM key pair. The private key is stored
// only as AES-CBC ciphertext with its IV alongside.
type CustodialWallet struct {
	ID            uuid.UUID // PK
	UserID        uuid.UUID // FK -> users.id
	Address       string    // checksummed, unique (case-insensitive)
	PublicKey     string
	PrivateKeyEnc string // hex ciphertext
	PrivateKeyIV  string // hex 16-byte IV
	NickName      string
	CreatedAt     time.Time // sort key for listing
}

// MessageHistory is an append-only record of a signed message. The signature
// is encrypted at rest like private keys.
type MessageHistory struct {
	ID           uuid.UUID
	WalletID     uuid.UUID // FK -> custodial_wallets.id
	Message      string
	SignatureEnc string
	SignatureIV  string
	CreatedAt    time.Time
}

// TransactionHistory is the local pending ledger: one row per submitted
// transaction, written once at submission time and never updated. Sealing
// status is derived at read time from the chain, not persisted.
type TransactionHistory struct {
	ID              uuid.UUID
	WalletID        uuid.UUID // sending wallet
	ChainID         uint64
	ToAddress       string
	AmountInEth     float64
	TransactionHash string
	Nonce           uint64
	IsInternal      bool          // recipient is a custodial wallet of any user
	ToWalletID      uuid.NullUUID // set when IsInternal
	CreatedAt       time.Time
}

// LinkedTransaction is a TransactionHistory row joined with the nicknames of
// the sending wallet and, when internal, the destination wallet.
type LinkedTransaction struct {
	TransactionHistory
	FromAddress  string
	FromNickName string
	ToNickName   *string
}

// Direction of a transfer relative to the queried address.
const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

// WalletSummary is the listing view of a wallet (no key material).
type WalletSummary struct {
	Address   string    `json:"address"`
	NickName  string    `json:"nickName"`
	PublicKey string    `json:"publicKey"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewWallet is returned from wallet creation.
type NewWallet struct {
	Address   string `json:"address"`
	NickName  string `json:"nickName"`
	PublicKey string `json:"publicKey"`
}

// Balance pairs an address with its native balance in ether.
type Balance struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// SignedMessage is returned from message signing; the signature is plaintext
// here and encrypted only for storage.
type SignedMessage struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// SendReceipt is returned from a successful submission.
type SendReceipt struct {
	ChainID         uint64  `json:"chainId"`
	Address         string  `json:"address"`
	To              string  `json:"to"`
	AmountInEth     float64 `json:"amountInEth"`
	TransactionHash string  `json:"transactionHash"`
	Nonce           uint64  `json:"nonce"`
}

// MessageItem is one entry of the paginated message history.
type MessageItem struct {
	Address   string    `json:"address"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessagePage is a window of message history.
type MessagePage struct {
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalCount int64         `json:"totalCount"`
	TotalPages int64         `json:"totalPages"`
	Items      []MessageItem `json:"items"`
}

// HistoryEntry is one row of the reconciled transaction history: either an
// indexed on-chain transfer (Sealed=true) or a locally tracked pending
// submission (Sealed=false).
type HistoryEntry struct {
	From            string    `json:"from"`
	To              string    `json:"to"`
	TransactionHash string    `json:"transactionHash"`
	Nonce           uint64    `json:"nonce"`
	Sealed          bool      `json:"sealed"`
	AmountInEth     string    `json:"amountInEth"`
	IsInternal      bool      `json:"isInternal"`
	NickName        *string   `json:"nickName,omitempty"`
	Direction       string    `json:"direction"`
	CreatedAt       time.Time `json:"createdAt"`
}
