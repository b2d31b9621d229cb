// Package evm provides read-only settlement-layer calls for metadata that
// events do not carry.
package evm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

const erc20MetadataABI = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

// TokenClient implements domain.TokenMetadataSource against an Ethereum RPC
// endpoint. Callers are expected to wrap it in a cache; the fields it reads
// are immutable.
type TokenClient struct {
	ec     *ethclient.Client
	abi    abi.ABI
	logger *slog.Logger
}

// NewTokenClient creates a TokenClient on the given RPC client.
func NewTokenClient(ec *ethclient.Client, logger *slog.Logger) (*TokenClient, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20MetadataABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse erc20 abi: %w", err)
	}
	return &TokenClient{
		ec:     ec,
		abi:    parsed,
		logger: logger.With(slog.String("component", "token_client")),
	}, nil
}

// Erc20Metadata reads name, symbol and decimals from the token contract.
func (c *TokenClient) Erc20Metadata(ctx context.Context, address string) (domain.Erc20, error) {
	addr := common.HexToAddress(address)

	name, err := c.callString(ctx, addr, "name")
	if err != nil {
		return domain.Erc20{}, err
	}
	symbol, err := c.callString(ctx, addr, "symbol")
	if err != nil {
		return domain.Erc20{}, err
	}
	decimals, err := c.callUint8(ctx, addr, "decimals")
	if err != nil {
		return domain.Erc20{}, err
	}

	c.logger.DebugContext(ctx, "fetched token metadata",
		slog.String("address", address),
		slog.String("symbol", symbol),
	)
	return domain.Erc20{
		ID:       strings.ToLower(addr.Hex()),
		Name:     name,
		Symbol:   symbol,
		Decimals: decimals,
	}, nil
}

func (c *TokenClient) call(ctx context.Context, addr common.Address, method string) ([]any, error) {
	data, err := c.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("evm: pack %s: %w", method, err)
	}
	out, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("evm: call %s on %s: %w", method, addr.Hex(), err)
	}
	vals, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("evm: unpack %s on %s: %w", method, addr.Hex(), err)
	}
	return vals, nil
}

func (c *TokenClient) callString(ctx context.Context, addr common.Address, method string) (string, error) {
	vals, err := c.call(ctx, addr, method)
	if err != nil {
		return "", err
	}
	s, ok := vals[0].(string)
	if !ok {
		return "", fmt.Errorf("evm: %s on %s returned %T, want string", method, addr.Hex(), vals[0])
	}
	return s, nil
}

func (c *TokenClient) callUint8(ctx context.Context, addr common.Address, method string) (uint8, error) {
	vals, err := c.call(ctx, addr, method)
	if err != nil {
		return 0, err
	}
	n, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("evm: %s on %s returned %T, want uint8", method, addr.Hex(), vals[0])
	}
	return n, nil
}
