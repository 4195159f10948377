package cmd

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/mselser95/predict-agent/pkg/wallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Check the hedge wallet balances and positions",
	Long: `Display the Polygon funding wallet used for cross-venue hedging:
- MATIC balance (for gas)
- USDC balance (for trading)
- USDC allowance (approved to the CTF Exchange)
- Open positions reported by the data API`,
	Args: cobra.NoArgs,
	RunE: runBalance,
}

var (
	//nolint:gochecknoglobals // Cobra boilerplate
	showPositions bool
	//nolint:gochecknoglobals // Cobra boilerplate
	balanceRPC string
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().BoolVarP(&showPositions, "positions", "p", true, "Show open positions")
	balanceCmd.Flags().StringVarP(&balanceRPC, "rpc", "r", "https://polygon-rpc.com", "Polygon RPC endpoint")
}

func runBalance(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	address, err := walletAddress(cfg.PrivateKey, cfg.PredictAccountAddress)
	if err != nil {
		return err
	}

	client, err := wallet.NewClient(wallet.ClientConfig{
		RPCURL: balanceRPC,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("create wallet client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("=== Wallet Balance Sheet ===\n\n")
	fmt.Printf("Address: %s\n\n", address.Hex())

	balances, err := client.GetBalances(ctx, address)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	fmt.Printf("MATIC:          %.4f\n", unitsToFloat(balances.MATIC, 1e18))
	fmt.Printf("USDC:           $%.2f\n", unitsToFloat(balances.USDC, 1e6))
	fmt.Printf("USDC allowance: $%.2f\n", unitsToFloat(balances.USDCAllowance, 1e6))

	if !showPositions {
		return nil
	}

	positions, err := client.GetPositions(ctx, address.Hex())
	if err != nil {
		return fmt.Errorf("get positions: %w", err)
	}

	if len(positions) == 0 {
		fmt.Println("\nNo open positions.")
		return nil
	}

	fmt.Printf("\nPositions (%d):\n", len(positions))
	totalValue := 0.0
	totalPnL := 0.0
	for _, pos := range positions {
		fmt.Printf("  %s [%s]: %.2f shares, $%.2f (%s)\n",
			pos.MarketSlug, pos.Outcome, pos.Size, pos.Value, formatPnL(pos.CashPnL))
		totalValue += pos.Value
		totalPnL += pos.CashPnL
	}
	fmt.Printf("\nTotal position value: $%.2f (%s)\n", totalValue, formatPnL(totalPnL))

	return nil
}

// walletAddress resolves the funding address: the explicit account address
// when set, otherwise the address derived from the private key.
func walletAddress(privateKeyHex, accountAddress string) (common.Address, error) {
	if accountAddress != "" {
		if !common.IsHexAddress(accountAddress) {
			return common.Address{}, fmt.Errorf("invalid PREDICT_ACCOUNT_ADDRESS: %s", accountAddress)
		}
		return common.HexToAddress(accountAddress), nil
	}

	if privateKeyHex == "" {
		return common.Address{}, fmt.Errorf("neither PREDICT_ACCOUNT_ADDRESS nor PRIVATE_KEY is set")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid private key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func unitsToFloat(v *big.Int, decimals float64) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), big.NewFloat(decimals)).Float64()
	return f
}
