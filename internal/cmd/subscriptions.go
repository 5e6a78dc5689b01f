package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/mexc-futures/internal/stream"
)

// subscribeSymbol subscribes one per-symbol public event.
func subscribeSymbol(ctx context.Context, c *stream.Client, event, symbol string) error {
	switch event {
	case stream.EventTicker:
		return c.SubscribeTicker(ctx, symbol)
	case stream.EventDeal:
		return c.SubscribeDeals(ctx, symbol)
	case stream.EventDepth:
		return c.SubscribeDepth(ctx, symbol, false)
	case stream.EventKline:
		return c.SubscribeKline(ctx, symbol, stream.Min1)
	case stream.EventFundingRate:
		return c.SubscribeFundingRate(ctx, symbol)
	case stream.EventIndexPrice:
		return c.SubscribeIndexPrice(ctx, symbol)
	case stream.EventFairPrice:
		return c.SubscribeFairPrice(ctx, symbol)
	}
	return fmt.Errorf("no per-symbol channel for event %q", event)
}

// publicEvents are the events subscribeSymbol handles.
var publicEvents = map[string]bool{
	stream.EventTicker:      true,
	stream.EventDeal:        true,
	stream.EventDepth:       true,
	stream.EventKline:       true,
	stream.EventFundingRate: true,
	stream.EventIndexPrice:  true,
	stream.EventFairPrice:   true,
}

// privateFilters maps private event names to their personal filter.
var privateFilters = map[string]stream.FilterType{
	stream.EventOrderUpdate:    stream.FilterOrder,
	stream.EventOrderDeal:      stream.FilterOrderDeal,
	stream.EventPositionUpdate: stream.FilterPosition,
	stream.EventAssetUpdate:    stream.FilterAsset,
	stream.EventStopOrder:      stream.FilterStopOrder,
	stream.EventStopPlanOrder:  stream.FilterStopPlanOrder,
	stream.EventADLLevel:       stream.FilterADLLevel,
	stream.EventRiskLimit:      stream.FilterRiskLimit,
	stream.EventPlanOrder:      stream.FilterPlanOrder,
}

// subscriptionPlan is what to (re)subscribe after every connect.
type subscriptionPlan struct {
	AllTickers bool
	Public     []string // event names with a per-symbol subscribe call
	Symbols    []string
	Filters    []stream.Filter // private filters, requires login
}

// planSubscriptions splits event names into public and private subscriptions.
func planSubscriptions(events, symbols []string) (subscriptionPlan, error) {
	var plan subscriptionPlan
	plan.Symbols = symbols

	for _, ev := range events {
		ev = strings.TrimSpace(ev)
		switch {
		case ev == "":
		case ev == stream.EventTickers:
			plan.AllTickers = true
		case publicEvents[ev]:
			plan.Public = append(plan.Public, ev)
		case privateFilters[ev] != "":
			plan.Filters = append(plan.Filters, stream.Filter{Filter: privateFilters[ev], Rules: symbols})
		default:
			return plan, fmt.Errorf("unknown event %q", ev)
		}
	}

	if len(plan.Public) > 0 && len(symbols) == 0 {
		return plan, errors.New("at least one symbol is required for per-symbol events")
	}
	return plan, nil
}

// NeedsLogin reports whether the plan includes private data.
func (p subscriptionPlan) NeedsLogin() bool {
	return len(p.Filters) > 0
}

// attach installs callbacks that apply the plan on every connect and login.
// Reconnects start with no subscriptions, so they are replayed each time.
func (p subscriptionPlan) attach(ctx context.Context, client *stream.Client, logger *slog.Logger) {
	client.On(stream.EventConnected, func(stream.Event) error {
		if p.NeedsLogin() {
			if err := client.Login(ctx, false); err != nil {
				return fmt.Errorf("login: %w", err)
			}
		}
		return p.subscribePublic(ctx, client)
	})

	if p.NeedsLogin() {
		client.On(stream.EventLogin, func(stream.Event) error {
			return client.SetPersonalFilter(ctx, p.Filters)
		})
		client.On(stream.EventLoginFailed, func(ev stream.Event) error {
			logger.Error("stream login rejected", "data", string(ev.Data))
			return nil
		})
	}
}

func (p subscriptionPlan) subscribePublic(ctx context.Context, client *stream.Client) error {
	if p.AllTickers {
		if err := client.SubscribeAllTickers(ctx, false); err != nil {
			return fmt.Errorf("subscribe tickers: %w", err)
		}
	}
	for _, ev := range p.Public {
		for _, symbol := range p.Symbols {
			if err := subscribeSymbol(ctx, client, ev, symbol); err != nil {
				return fmt.Errorf("subscribe %s %s: %w", ev, symbol, err)
			}
		}
	}
	return nil
}
