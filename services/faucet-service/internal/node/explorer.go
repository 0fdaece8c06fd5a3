package node

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	faucetErrors "github.com/burakmert236/xsgfaucet/services/faucet-service/internal/errors"
)

// Explorer reads the public chain height from a block explorer.
type Explorer struct {
	url    string
	client *http.Client
}

type explorerBlocks struct {
	Blocks []struct {
		Height int64 `json:"height"`
	} `json:"blocks"`
}

func NewExplorer(url string, timeout time.Duration) *Explorer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Explorer{url: url, client: &http.Client{Timeout: timeout}}
}

func (e *Explorer) GetBlockCount(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return 0, faucetErrors.WrapNodeError(err, "explorer")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, faucetErrors.WrapNodeError(err, "explorer")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return 0, faucetErrors.WrapNodeError(fmt.Errorf("http %d", resp.StatusCode), "explorer")
	}

	var body explorerBlocks
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, faucetErrors.WrapNodeError(err, "explorer")
	}
	if len(body.Blocks) == 0 {
		return 0, faucetErrors.WrapNodeError(fmt.Errorf("no blocks in response"), "explorer")
	}

	return body.Blocks[0].Height, nil
}
