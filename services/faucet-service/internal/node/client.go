package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/burakmert236/xsgfaucet/common/config"
	"github.com/burakmert236/xsgfaucet/common/logger"
	faucetErrors "github.com/burakmert236/xsgfaucet/services/faucet-service/internal/errors"
)

// Client talks JSON-RPC 1.0 to the funding wallet node. Every call waits on a token bucket.
type Client struct {
	url      string
	username string
	password string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *logger.Logger
	nextId   atomic.Uint64
}

type Info struct {
	Balance decimal.Decimal `json:"balance"`
	Blocks  int64           `json:"blocks"`
}

// AddressBalance is one entry of listaddressgroupings.
type AddressBalance struct {
	Address string
	Amount  decimal.Decimal
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Id      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func NewClient(cfg config.NodeConfig, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}

	return &Client{
		url:      cfg.URL,
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		logger:   log.With("component", "node"),
	}
}

func (c *Client) GetInfo(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.call(ctx, "getinfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	info, err := c.GetInfo(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return info.Balance, nil
}

func (c *Client) GetBlockCount(ctx context.Context) (int64, error) {
	info, err := c.GetInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.Blocks, nil
}

// SendToAddress returns the transaction id of the payment.
func (c *Client) SendToAddress(ctx context.Context, address string, amount decimal.Decimal) (string, error) {
	var txId string
	if err := c.call(ctx, "sendtoaddress", []any{address, json.Number(amount.String())}, &txId); err != nil {
		return "", err
	}
	c.logger.Info("Payment sent", "address", address, "amount", amount.String(), "txid", txId)
	return txId, nil
}

func (c *Client) ValidateAddress(ctx context.Context, address string) (bool, error) {
	var result struct {
		IsValid bool `json:"isvalid"`
	}
	if err := c.call(ctx, "validateaddress", []any{address}, &result); err != nil {
		return false, err
	}
	return result.IsValid, nil
}

// ListAddressGroupings flattens the wallet's address groups.
func (c *Client) ListAddressGroupings(ctx context.Context) ([]AddressBalance, error) {
	var groups [][][]json.RawMessage
	if err := c.call(ctx, "listaddressgroupings", nil, &groups); err != nil {
		return nil, err
	}

	out := make([]AddressBalance, 0)
	for _, group := range groups {
		for _, entry := range group {
			if len(entry) < 2 {
				continue
			}
			var ab AddressBalance
			if err := json.Unmarshal(entry[0], &ab.Address); err != nil {
				return nil, faucetErrors.WrapNodeError(err, "listaddressgroupings")
			}
			if err := ab.Amount.UnmarshalJSON(entry[1]); err != nil {
				return nil, faucetErrors.WrapNodeError(err, "listaddressgroupings")
			}
			out = append(out, ab)
		}
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if params == nil {
		params = []any{}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return faucetErrors.WrapNodeError(err, method)
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "1.0",
		Id:      c.nextId.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return faucetErrors.WrapNodeError(err, method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return faucetErrors.WrapNodeError(err, method)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return faucetErrors.WrapNodeError(err, method)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	// bitcoind-style nodes answer RPC errors with HTTP 500 and a JSON body
	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return faucetErrors.WrapNodeError(fmt.Errorf("http %d: %w", resp.StatusCode, err), method)
	}
	if rpcResp.Error != nil {
		return faucetErrors.NodeResponseError(method, rpcResp.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return faucetErrors.WrapNodeError(fmt.Errorf("http %d", resp.StatusCode), method)
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return faucetErrors.WrapNodeError(err, method)
		}
	}
	return nil
}
