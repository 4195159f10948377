package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Funding-wallet contracts on Polygon for the Polymarket hedge venue.
const (
	polygonUSDC        = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
	polygonCTFExchange = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"

	defaultDataAPIURL = "https://data-api.polymarket.com"
)

// Client fetches funding-wallet state: on-chain balances over RPC and open
// positions from the Polymarket data API.
type Client struct {
	rpcURL     string
	dataAPIURL string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientConfig holds wallet client configuration.
type ClientConfig struct {
	RPCURL     string
	DataAPIURL string // Defaults to the public Polymarket data API
	Logger     *zap.Logger
}

// Balances holds on-chain token balances for the funding wallet.
type Balances struct {
	MATIC         *big.Int // wei
	USDC          *big.Int // 6-decimal units
	USDCAllowance *big.Int // 6-decimal units, approved to the CTF exchange
}

// WalletPosition is one open position reported by the data API.
type WalletPosition struct {
	MarketSlug   string
	Outcome      string
	Size         float64
	Value        float64
	InitialValue float64
	CashPnL      float64
	PercentPnL   float64
}

type dataAPIPosition struct {
	Asset        string  `json:"asset"`
	ConditionID  string  `json:"conditionId"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avgPrice"`
	InitialValue float64 `json:"initialValue"`
	CurrentValue float64 `json:"currentValue"`
	CashPnL      float64 `json:"cashPnl"`
	PercentPnL   float64 `json:"percentPnl"`
	CurPrice     float64 `json:"curPrice"`
	Title        string  `json:"title"`
	Slug         string  `json:"slug"`
	Outcome      string  `json:"outcome"`
}

// NewClient creates a new funding-wallet client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("rpc url cannot be empty")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	dataAPIURL := cfg.DataAPIURL
	if dataAPIURL == "" {
		dataAPIURL = defaultDataAPIURL
	}

	return &Client{
		rpcURL:     cfg.RPCURL,
		dataAPIURL: strings.TrimRight(dataAPIURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     cfg.Logger,
	}, nil
}

// GetBalances fetches MATIC, USDC, and the exchange allowance in one pass.
func (c *Client) GetBalances(ctx context.Context, address common.Address) (*Balances, error) {
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	defer client.Close()

	matic, err := client.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("get matic balance: %w", err)
	}

	usdc, err := c.erc20Call(ctx, client, polygonUSDC, "balanceOf", address)
	if err != nil {
		return nil, fmt.Errorf("get usdc balance: %w", err)
	}

	allowance, err := c.erc20Call(ctx, client, polygonUSDC, "allowance",
		address, common.HexToAddress(polygonCTFExchange))
	if err != nil {
		return nil, fmt.Errorf("get usdc allowance: %w", err)
	}

	return &Balances{
		MATIC:         matic,
		USDC:          usdc,
		USDCAllowance: allowance,
	}, nil
}

const erc20ViewABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// erc20Call performs a read-only ERC20 call and decodes the uint256 result.
func (c *Client) erc20Call(
	ctx context.Context,
	client *ethclient.Client,
	tokenAddr, method string,
	args ...interface{},
) (*big.Int, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ViewABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	data, err := parsedABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	tokenAddress := common.HexToAddress(tokenAddr)
	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddress, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	return new(big.Int).SetBytes(result), nil
}

// GetPositions fetches open positions for an address from the data API.
// Dust positions below 0.01 shares are filtered server-side.
func (c *Client) GetPositions(ctx context.Context, address string) ([]WalletPosition, error) {
	url := fmt.Sprintf("%s/positions?user=%s&sizeThreshold=0.01", c.dataAPIURL, address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("data api: status %d", resp.StatusCode)
	}

	var apiPositions []dataAPIPosition
	if err := json.NewDecoder(resp.Body).Decode(&apiPositions); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	positions := make([]WalletPosition, 0, len(apiPositions))
	for _, pos := range apiPositions {
		if pos.Size <= 0 {
			continue
		}
		positions = append(positions, WalletPosition{
			MarketSlug:   pos.Slug,
			Outcome:      pos.Outcome,
			Size:         pos.Size,
			Value:        pos.CurrentValue,
			InitialValue: pos.InitialValue,
			CashPnL:      pos.CashPnL,
			PercentPnL:   pos.PercentPnL,
		})
	}

	return positions, nil
}
