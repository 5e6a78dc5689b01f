package api

import (
	"context"
	"fmt"
	"net/url"
)

// GetTicker fetches the ticker for a contract symbol.
func (c *Client) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	query := url.Values{}
	query.Set("symbol", symbol)

	var resp TickerResponse
	if err := c.get(ctx, PathTicker, query, &resp); err != nil {
		return nil, fmt.Errorf("get ticker %s: %w", symbol, err)
	}

	return &resp.Data, nil
}

// TestConnection reports whether a public request succeeds.
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := c.GetTicker(ctx, "BTC_USDT")
	return err == nil
}
