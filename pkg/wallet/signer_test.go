package wallet

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestNewSignerDerivesAddress(t *testing.T) {
	signer, err := NewSigner(testKeyHex, "")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	addr := signer.SignerAddress()
	if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
		t.Errorf("signer address = %q", addr)
	}
	// Without a proxy the maker is the signing key's own address.
	if signer.MakerAddress() != addr {
		t.Errorf("maker = %q, want %q", signer.MakerAddress(), addr)
	}
}

func TestNewSignerProxyOverridesMaker(t *testing.T) {
	proxy := "0x1234567890abcdef1234567890abcdef12345678"
	signer, err := NewSigner(testKeyHex, proxy)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	want := common.HexToAddress(proxy).Hex()
	if signer.MakerAddress() != want {
		t.Errorf("maker = %q, want %q", signer.MakerAddress(), want)
	}
	if signer.SignerAddress() == want {
		t.Error("signer address should stay the key address")
	}
}

func TestNewSignerRejectsBadKey(t *testing.T) {
	if _, err := NewSigner("not-hex", ""); err == nil {
		t.Error("expected error for invalid key")
	}
	if _, err := NewSigner("", ""); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestSignDigestDeterministic(t *testing.T) {
	signer, err := NewSigner(testKeyHex, "")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	digest := HashFields("tok-1", "BUY", "42000000", "100000000")
	if len(digest) != 32 {
		t.Fatalf("digest length = %d, want 32", len(digest))
	}

	sig1, err := signer.SignDigest(digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig2, err := signer.SignDigest(digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if sig1 != sig2 {
		t.Error("signatures differ for the same digest")
	}
	if !strings.HasPrefix(sig1, "0x") || len(sig1) != 132 {
		t.Errorf("signature = %q", sig1)
	}
}

func TestHashFieldsOrderSensitive(t *testing.T) {
	a := HashFields("a", "b")
	b := HashFields("b", "a")
	if string(a) == string(b) {
		t.Error("field order should change the digest")
	}
	// Joined with a separator, so field boundaries matter.
	if string(HashFields("ab", "c")) == string(HashFields("a", "bc")) {
		t.Error("field boundaries should change the digest")
	}
}
