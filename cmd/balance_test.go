package cmd

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletAddress(t *testing.T) {
	// Well-known throwaway test key.
	const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	const testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

	tests := []struct {
		name       string
		privateKey string
		account    string
		want       string
		wantErr    bool
	}{
		{
			name:    "explicit account address wins",
			account: testAddr,
			want:    testAddr,
		},
		{
			name:       "derived from private key",
			privateKey: testKey,
			want:       testAddr,
		},
		{
			name:       "0x prefix accepted",
			privateKey: "0x" + testKey,
			want:       testAddr,
		},
		{
			name:    "invalid account address",
			account: "not-an-address",
			wantErr: true,
		},
		{
			name:       "invalid private key",
			privateKey: "zz",
			wantErr:    true,
		},
		{
			name:    "nothing set",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := walletAddress(tt.privateKey, tt.account)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Hex())
		})
	}
}

func TestUnitsToFloat(t *testing.T) {
	assert.InDelta(t, 1.5, unitsToFloat(big.NewInt(1_500_000), 1e6), 1e-9)
	assert.Zero(t, unitsToFloat(nil, 1e6))
}
