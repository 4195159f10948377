package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer wraps a hot private key used to sign venue orders. The maker address
// may be a proxy wallet distinct from the signing EOA.
type Signer struct {
	key    *ecdsa.PrivateKey
	signer common.Address
	maker  common.Address
}

// NewSigner parses a hex-encoded private key. If proxyAddress is empty the
// maker defaults to the derived EOA.
func NewSigner(privateKeyHex, proxyAddress string) (*Signer, error) {
	if privateKeyHex == "" {
		return nil, errors.New("private key cannot be empty")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("derive public key")
	}
	signer := crypto.PubkeyToAddress(*pub)

	maker := signer
	if proxyAddress != "" {
		if !common.IsHexAddress(proxyAddress) {
			return nil, fmt.Errorf("invalid proxy address %q", proxyAddress)
		}
		maker = common.HexToAddress(proxyAddress)
	}

	return &Signer{key: key, signer: signer, maker: maker}, nil
}

// SignerAddress is the EOA derived from the private key.
func (s *Signer) SignerAddress() string { return s.signer.Hex() }

// MakerAddress is the funding wallet orders settle against.
func (s *Signer) MakerAddress() string { return s.maker.Hex() }

// Key exposes the raw key for builders that sign internally.
func (s *Signer) Key() *ecdsa.PrivateKey { return s.key }

// SignDigest signs a 32-byte digest and returns the 65-byte signature hex
// encoded with the Ethereum recovery offset.
func (s *Signer) SignDigest(digest []byte) (string, error) {
	if len(digest) != 32 {
		return "", fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}

	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return "", fmt.Errorf("sign digest: %w", err)
	}
	sig[64] += 27

	return "0x" + common.Bytes2Hex(sig), nil
}

// HashFields keccak-hashes the packed field encoding used for order digests.
func HashFields(fields ...string) []byte {
	packed := strings.Join(fields, "\x1f")
	return crypto.Keccak256([]byte(packed))
}
