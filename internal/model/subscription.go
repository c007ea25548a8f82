package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSubscription is returned by ParseSubscription for malformed input.
var ErrInvalidSubscription = errors.New("invalid subscription")

// Subscription is the vendor subscription string, one or more
// "<prefix>.<symbol>" pairs joined by commas (e.g. "T.AAPL,A.MSFT").
// Two subscriptions are equal only if their strings are identical.
type Subscription string

// Pair is a single (event, symbol) component of a Subscription.
type Pair struct {
	Event  EventType
	Symbol string
}

func (p Pair) String() string {
	return string(p.Event) + "." + p.Symbol
}

// NewSubscription joins symbols under one event prefix, in the order given.
func NewSubscription(event EventType, symbols ...string) Subscription {
	parts := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		parts = append(parts, string(event)+"."+sym)
	}
	return Subscription(strings.Join(parts, ","))
}

// ParseSubscription validates s. Every pair must use the T or A prefix and
// carry a non-empty symbol.
func ParseSubscription(s string) (Subscription, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSubscription)
	}
	for _, part := range strings.Split(s, ",") {
		ev, sym, ok := strings.Cut(part, ".")
		if !ok || sym == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidSubscription, part)
		}
		if EventType(ev) != EventTrade && EventType(ev) != EventAggregate {
			return "", fmt.Errorf("%w: unknown prefix %q", ErrInvalidSubscription, ev)
		}
	}
	return Subscription(s), nil
}

// Pairs splits the subscription into its components. Only the first "." of
// each pair separates prefix from symbol so dotted tickers survive.
// Components without a "." are skipped.
func (s Subscription) Pairs() []Pair {
	if s == "" {
		return nil
	}
	parts := strings.Split(string(s), ",")
	pairs := make([]Pair, 0, len(parts))
	for _, part := range parts {
		ev, sym, ok := strings.Cut(part, ".")
		if !ok {
			continue
		}
		pairs = append(pairs, Pair{Event: EventType(ev), Symbol: sym})
	}
	return pairs
}

// Matches reports whether a message with the given event and symbol
// belongs to this subscription.
func (s Subscription) Matches(event EventType, symbol string) bool {
	for _, p := range s.Pairs() {
		if p.Event == event && p.Symbol == symbol {
			return true
		}
	}
	return false
}
