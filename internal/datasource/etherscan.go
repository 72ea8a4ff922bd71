package datasource

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"whalescope/internal/api"
)

const (
	etherscanBaseURL = "https://api.etherscan.io/api"

	// Lido stETH token contract. Its ETH balance approximates the ETH
	// held by the largest liquid staking operator.
	lidoContractAddress = "0xae7ab96520DE3A18E5e111B5EaAb095312D7fE84"
)

// EtherscanClient covers the handful of Etherscan stats endpoints used to
// cross-check supply and staking figures.
type EtherscanClient struct {
	client *api.Client
	apiKey string
}

func NewEtherscanClient(apiKey string) *EtherscanClient {
	return &EtherscanClient{
		client: api.NewClient(
			api.WithBaseURL(etherscanBaseURL),
			api.WithTimeout(30*time.Second),
		),
		apiKey: apiKey,
	}
}

type etherscanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

func (e *EtherscanClient) call(ctx context.Context, params map[string]string) (string, error) {
	if e.apiKey == "" {
		return "", fmt.Errorf("etherscan: missing API key")
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("apikey", e.apiKey)

	if err := limiters.Wait(ctx, sourceEtherscan); err != nil {
		return "", err
	}
	resp, err := e.client.GET(ctx, "?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("etherscan request: %w", err)
	}

	var out etherscanResponse
	if err := resp.ParseJSON(&out); err != nil {
		return "", fmt.Errorf("etherscan decode: %w", err)
	}
	if out.Status != "1" {
		return "", fmt.Errorf("etherscan: %s", out.Message)
	}
	return out.Result, nil
}

// TotalSupply returns the total ETH supply in ether.
func (e *EtherscanClient) TotalSupply(ctx context.Context) (float64, error) {
	result, err := e.call(ctx, map[string]string{
		"module": "stats",
		"action": "ethsupply",
	})
	if err != nil {
		return 0, err
	}
	return weiToEther(result)
}

// LidoBalance returns the ETH balance of the Lido contract in ether.
func (e *EtherscanClient) LidoBalance(ctx context.Context) (float64, error) {
	result, err := e.call(ctx, map[string]string{
		"module":  "account",
		"action":  "balance",
		"address": lidoContractAddress,
		"tag":     "latest",
	})
	if err != nil {
		return 0, err
	}
	return weiToEther(result)
}

// weiToEther converts a decimal wei string to ether. Amounts exceed uint64
// range so big.Float does the division.
func weiToEther(wei string) (float64, error) {
	w, ok := new(big.Float).SetString(wei)
	if !ok {
		return 0, fmt.Errorf("etherscan: malformed wei value %q", wei)
	}
	eth, _ := new(big.Float).Quo(w, big.NewFloat(1e18)).Float64()
	return eth, nil
}
