// Package keyvault generates EVM key pairs and encrypts key material at rest.
//
// Encryption is AES-256-CBC with a 16-byte IV stored alongside the
// ciphertext, both hex-encoded. One process-wide symmetric key protects all
// wallets; compromise of that key defeats every wallet, which is an accepted
// design limit of this custody model.
package keyvault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/evmkeeper/custodial-wallet/internal/errs"
)

// IVLength is the AES block size; IVs are always exactly this long.
const IVLength = 16

// KeyPair is a freshly generated EVM key pair. PrivateKey is plaintext here
// and must be encrypted before it touches storage.
type KeyPair struct {
	Address    string // EIP-55 checksummed
	PublicKey  string // 0x-hex uncompressed secp256k1 point
	PrivateKey string // 0x-hex 32-byte scalar
}

// GenerateKeyPair produces a new random key pair from the platform CSPRNG.
func GenerateKeyPair() (KeyPair, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate key: %w", err)
	}
	return KeyPair{
		Address:    crypto.PubkeyToAddress(priv.PublicKey).Hex(),
		PublicKey:  hexutil.Encode(crypto.FromECDSAPub(&priv.PublicKey)),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(priv)),
	}, nil
}

// ParsePrivateKey decodes a 0x-hex private key produced by GenerateKeyPair.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	b, err := hexutil.Decode(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return crypto.ToECDSA(b)
}

// SignMessage signs message per EIP-191 (personal_sign) and returns the
// 65-byte signature as 0x-hex with the Ethereum v offset applied.
func SignMessage(key *ecdsa.PrivateKey, message string) (string, error) {
	hash := accounts.TextHash([]byte(message))
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	if sig[64] == 0 || sig[64] == 1 {
		sig[64] += 27
	}
	return hexutil.Encode(sig), nil
}

// Vault performs symmetric encryption of key material with a process-wide key.
type Vault struct {
	block cipher.Block
}

// New constructs a Vault from a 32-byte AES key.
func New(key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &Vault{block: block}, nil
}

// Encrypt encrypts plaintext with AES-256-CBC. A random IV is generated when
// iv is nil; passing an explicit IV makes the output deterministic.
// Returns hex ciphertext and hex IV.
func (v *Vault) Encrypt(plaintext string, iv []byte) (string, string, error) {
	if iv == nil {
		iv = make([]byte, IVLength)
		if _, err := rand.Read(iv); err != nil {
			return "", "", err
		}
	}
	if len(iv) != IVLength {
		return "", "", fmt.Errorf("iv must be %d bytes, got %d", IVLength, len(iv))
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(v.block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(out), hex.EncodeToString(iv), nil
}

// Decrypt is the inverse of Encrypt. A wrong IV, corrupted ciphertext or
// mismatched key surfaces as an error wrapping errs.ErrDecryption rather
// than silently returning garbage.
func (v *Vault) Decrypt(cipherHex, ivHex string) (string, error) {
	ct, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext hex", errs.ErrDecryption)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("%w: bad iv hex", errs.ErrDecryption)
	}
	if len(iv) != IVLength {
		return "", fmt.Errorf("%w: iv length %d", errs.ErrDecryption, len(iv))
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d", errs.ErrDecryption, len(ct))
	}

	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(v.block, iv).CryptBlocks(out, ct)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrDecryption, err)
	}
	// Stored plaintexts are hex strings; anything non-UTF-8 means the key or
	// IV did not match the ciphertext.
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not valid utf-8", errs.ErrDecryption)
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
