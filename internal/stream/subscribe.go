package stream

import (
	"context"
	"fmt"

	"github.com/rickgao/mexc-futures/internal/sdkerr"
)

type symbolParam struct {
	Symbol string `json:"symbol"`
}

type depthParam struct {
	Symbol   string `json:"symbol"`
	Compress bool   `json:"compress"`
}

type fullDepthParam struct {
	Symbol string `json:"symbol"`
	Limit  int    `json:"limit"`
}

type klineParam struct {
	Symbol   string        `json:"symbol"`
	Interval KlineInterval `json:"interval"`
}

type filterParam struct {
	Filters []Filter `json:"filters"`
}

// Login sends a signed login request. The outcome arrives asynchronously as
// EventLogin or EventLoginFailed. When subscribe is false the server does not
// push private data until SetPersonalFilter is called.
func (c *Client) Login(ctx context.Context, subscribe bool) error {
	cc := c.current()
	if cc == nil {
		return sdkerr.AuthenticationRequired("login", "websocket not connected")
	}
	if c.creds == nil {
		return &sdkerr.Error{Kind: sdkerr.ErrAuthenticationRequired, Op: "login", Err: ErrNoCredentials}
	}

	params := c.creds.SignLoginAt(c.now())
	return c.write(ctx, cc, Message{
		Method:    "login",
		Param:     params,
		Subscribe: &subscribe,
	})
}

// SetPersonalFilter selects the private streams pushed after login. An empty
// list selects all of them.
func (c *Client) SetPersonalFilter(ctx context.Context, filters []Filter) error {
	c.mu.Lock()
	cc, loggedIn := c.conn, c.loggedIn
	c.mu.Unlock()

	if cc == nil || !loggedIn {
		return sdkerr.AuthenticationRequired("set personal filter", "must login first")
	}
	if filters == nil {
		filters = []Filter{}
	}

	return c.write(ctx, cc, Message{
		Method: "personal.filter",
		Param:  filterParam{Filters: filters},
	})
}

// SubscribeOrders selects order updates, optionally limited to symbols.
func (c *Client) SubscribeOrders(ctx context.Context, symbols ...string) error {
	return c.SetPersonalFilter(ctx, []Filter{{Filter: FilterOrder, Rules: symbols}})
}

// SubscribeOrderDeals selects order executions, optionally limited to symbols.
func (c *Client) SubscribeOrderDeals(ctx context.Context, symbols ...string) error {
	return c.SetPersonalFilter(ctx, []Filter{{Filter: FilterOrderDeal, Rules: symbols}})
}

// SubscribePositions selects position updates, optionally limited to symbols.
func (c *Client) SubscribePositions(ctx context.Context, symbols ...string) error {
	return c.SetPersonalFilter(ctx, []Filter{{Filter: FilterPosition, Rules: symbols}})
}

func (c *Client) SubscribeAssets(ctx context.Context) error {
	return c.SetPersonalFilter(ctx, []Filter{{Filter: FilterAsset}})
}

func (c *Client) SubscribeADLLevels(ctx context.Context) error {
	return c.SetPersonalFilter(ctx, []Filter{{Filter: FilterADLLevel}})
}

// SubscribeAllPrivate restores the default of pushing every private stream.
func (c *Client) SubscribeAllPrivate(ctx context.Context) error {
	return c.SetPersonalFilter(ctx, nil)
}

// SubscribeAllTickers subscribes to every contract ticker. With gzip set the
// server sends compressed binary frames.
func (c *Client) SubscribeAllTickers(ctx context.Context, gzip bool) error {
	return c.Send(ctx, Message{Method: "sub.tickers", Param: struct{}{}, Gzip: &gzip})
}

func (c *Client) UnsubscribeAllTickers(ctx context.Context) error {
	return c.Send(ctx, Message{Method: "unsub.tickers", Param: struct{}{}})
}

func (c *Client) SubscribeTicker(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "sub.ticker", symbol)
}

func (c *Client) UnsubscribeTicker(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "unsub.ticker", symbol)
}

// SubscribeDeals subscribes to trades for symbol.
func (c *Client) SubscribeDeals(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "sub.deal", symbol)
}

func (c *Client) UnsubscribeDeals(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "unsub.deal", symbol)
}

// SubscribeDepth subscribes to incremental order book updates.
func (c *Client) SubscribeDepth(ctx context.Context, symbol string, compress bool) error {
	return c.Send(ctx, Message{Method: "sub.depth", Param: depthParam{Symbol: symbol, Compress: compress}})
}

func (c *Client) UnsubscribeDepth(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "unsub.depth", symbol)
}

// SubscribeFullDepth subscribes to order book snapshots of 5, 10 or 20 levels.
func (c *Client) SubscribeFullDepth(ctx context.Context, symbol string, limit int) error {
	switch limit {
	case 5, 10, 20:
	default:
		return fmt.Errorf("%w: got %d", ErrInvalidDepthLimit, limit)
	}
	return c.Send(ctx, Message{Method: "sub.depth.full", Param: fullDepthParam{Symbol: symbol, Limit: limit}})
}

// UnsubscribeFullDepth uses the server's "usub" spelling for this channel.
func (c *Client) UnsubscribeFullDepth(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "usub.depth.full", symbol)
}

// SubscribeKline subscribes to candlesticks for symbol.
func (c *Client) SubscribeKline(ctx context.Context, symbol string, interval KlineInterval) error {
	if !interval.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
	return c.Send(ctx, Message{Method: "sub.kline", Param: klineParam{Symbol: symbol, Interval: interval}})
}

func (c *Client) UnsubscribeKline(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "unsub.kline", symbol)
}

func (c *Client) SubscribeFundingRate(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "sub.funding.rate", symbol)
}

func (c *Client) UnsubscribeFundingRate(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "unsub.funding.rate", symbol)
}

func (c *Client) SubscribeIndexPrice(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "sub.index.price", symbol)
}

func (c *Client) UnsubscribeIndexPrice(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "unsub.index.price", symbol)
}

func (c *Client) SubscribeFairPrice(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "sub.fair.price", symbol)
}

func (c *Client) UnsubscribeFairPrice(ctx context.Context, symbol string) error {
	return c.sendSymbol(ctx, "unsub.fair.price", symbol)
}

func (c *Client) sendSymbol(ctx context.Context, method, symbol string) error {
	return c.Send(ctx, Message{Method: method, Param: symbolParam{Symbol: symbol}})
}
